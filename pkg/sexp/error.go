package sexp

import "fmt"

// SyntaxError is a structured error which retains the index into the original
// string where an error occurred, along with an error message.
type SyntaxError struct {
	// Byte index into string being parsed where error arose.
	index int
	// Error message being reported
	msg string
}

// Index returns the position in the original text at which this error is
// reported.
func (p *SyntaxError) Index() int {
	return p.index
}

// Message returns the message to be reported.
func (p *SyntaxError) Message() string {
	return p.msg
}

// Error implements the error interface.
func (p *SyntaxError) Error() string {
	return fmt.Sprintf("%d: %s", p.index, p.msg)
}
