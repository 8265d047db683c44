package rule

import (
	"testing"
)

var testDatabase = `
- module: core
  values: [i32.const]
  strict:
    i32.add: []
  rules:
    - id: nop
      lhs: "(config (k nop Rest...))"
      rhs: "(config (k Rest...))"
    - id: i32.add
      lhs: "(config (k (i32.add (i32.const A) (i32.const B)) Rest...))"
      rhs: "(config (k (i32.const (#wrap 32 (+ A B))) Rest...))"
- module: bytemap
  lemmas:
    - id: getRange-setRange
      lhs: "(#getRange (#setRange M A V W) A W)"
      rhs: "V"
      when: ["(#byteMap M)", "(#inRange V (* 8 W))"]
`

func Test_Database_01(t *testing.T) {
	db := loadTestDatabase(t)
	//
	if len(db.Modules()) != 2 {
		t.Fatalf("expected 2 modules, got %d", len(db.Modules()))
	}
	//
	core, ok := db.Module("core")
	if !ok || len(core.Rules) != 2 {
		t.Errorf("unexpected core module %v", core)
	}
}

func Test_Database_02(t *testing.T) {
	db := loadTestDatabase(t)
	// Only selected modules contribute lemmas.
	activation, err := db.Activate("core")
	if err != nil {
		t.Fatal(err)
	}
	//
	if len(activation.Lemmas()) != 0 {
		t.Errorf("expected no active lemmas")
	}
	//
	activation, err = db.Activate("core", "bytemap")
	if err != nil {
		t.Fatal(err)
	}
	//
	if len(activation.Lemmas()) != 1 || len(activation.Rules()) != 2 {
		t.Errorf("unexpected activation")
	}
}

func Test_Database_03(t *testing.T) {
	db := loadTestDatabase(t)
	//
	if _, err := db.Activate("nonexistent"); err == nil {
		t.Errorf("expected error for unknown module")
	}
}

func Test_Database_04(t *testing.T) {
	db := loadTestDatabase(t)
	activation, _ := db.Activate("core")
	//
	if !activation.IsValueConstructor("i32.const") {
		t.Errorf("expected i32.const to be a value constructor")
	}
	//
	if _, ok := activation.StrictPositions("i32.add"); !ok {
		t.Errorf("expected i32.add to be strict")
	}
	//
	if _, ok := activation.StrictPositions("nop"); ok {
		t.Errorf("expected nop not to be strict")
	}
}

func Test_Database_05(t *testing.T) {
	// Duplicate rule identifiers are rejected.
	modules, err := ParseModules([]byte(testDatabase))
	if err != nil {
		t.Fatal(err)
	}
	//
	if _, err := NewDatabase(append(modules, modules[0])...); err == nil {
		t.Errorf("expected duplicate error")
	}
}

func Test_Database_06(t *testing.T) {
	// Malformed patterns are load-time errors.
	input := `
- module: broken
  rules:
    - id: broken
      lhs: "(config (k"
      rhs: "(config (k))"
`
	if _, err := ParseModules([]byte(input)); err == nil {
		t.Errorf("expected parse error")
	}
}

func Test_Database_07(t *testing.T) {
	// The shipped databases load and activate together.
	db, err := LoadDatabase("../../testdata/wasm-core.yaml", "../../testdata/bytemap.yaml")
	if err != nil {
		t.Fatal(err)
	}
	//
	activation, err := db.Activate("wasm-core", "bytemap")
	if err != nil {
		t.Fatal(err)
	}
	//
	if len(activation.Rules()) == 0 || len(activation.Lemmas()) == 0 {
		t.Errorf("unexpected activation")
	}
}

func loadTestDatabase(t *testing.T) *Database {
	t.Helper()
	//
	modules, err := ParseModules([]byte(testDatabase))
	if err != nil {
		t.Fatal(err)
	}
	//
	db, err := NewDatabase(modules...)
	if err != nil {
		t.Fatal(err)
	}
	//
	return db
}
