package sexp

import (
	"testing"
)

// ===================================================================
// Positive tests
// ===================================================================

func Test_Sexp_01(t *testing.T) {
	checkOk(t, "nop", "nop")
}

func Test_Sexp_02(t *testing.T) {
	checkOk(t, "()", "()")
}

func Test_Sexp_03(t *testing.T) {
	checkOk(t, "(nop)", "(nop)")
}

func Test_Sexp_04(t *testing.T) {
	checkOk(t, "(i32.add X 1)", "(i32.add X 1)")
}

func Test_Sexp_05(t *testing.T) {
	checkOk(t, "(i32.add (local.get 0) 5)", "(i32.add (local.get 0) 5)")
}

func Test_Sexp_06(t *testing.T) {
	checkOk(t, "  ( a\tb\n c )  ", "(a b c)")
}

func Test_Sexp_07(t *testing.T) {
	checkOk(t, "(a ; comment\n b)", "(a b)")
}

func Test_Sexp_08(t *testing.T) {
	checkOk(t, "(a(b)c)", "(a (b) c)")
}

func Test_Sexp_09(t *testing.T) {
	checkAllOk(t, "a (b c) d", 3)
}

func Test_Sexp_10(t *testing.T) {
	checkOk(t, "(a b) ; trailing comment", "(a b)")
}

// ===================================================================
// Negative tests
// ===================================================================

func Test_Sexp_ErrEndOfList(t *testing.T) {
	checkErr(t, ")")
}

func Test_Sexp_ErrEndOfFile(t *testing.T) {
	checkErr(t, "(a b")
}

func Test_Sexp_ErrRemainder(t *testing.T) {
	checkErr(t, "(a) b")
}

// ===================================================================
// Helpers
// ===================================================================

func checkOk(t *testing.T, input string, expected string) {
	t.Helper()

	s, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if s.String() != expected {
		t.Errorf("expected %s, got %s", expected, s.String())
	}
}

func checkAllOk(t *testing.T, input string, n int) {
	t.Helper()

	terms, err := ParseAll(input)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if len(terms) != n {
		t.Errorf("expected %d terms, got %d", n, len(terms))
	}
}

func checkErr(t *testing.T, input string) {
	t.Helper()

	if _, err := Parse(input); err == nil {
		t.Errorf("expected error parsing %q", input)
	}
}
