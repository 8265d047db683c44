// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package term

import (
	"fmt"
	"math/big"
	"strings"
)

// Term is the recursive structural type underlying cell contents.  A term is
// either a variable (plain, frame or wildcard), a concrete integer literal, an
// application of a constructor to zero or more sub-terms, an ordered sequence,
// a key/value mapping or a byte-map.  Terms are immutable: operations which
// "modify" a term always return a fresh term.
type Term interface {
	// Cmp compares this term against another, returning a negative value if
	// this term is less, zero if they are structurally equal and a positive
	// value otherwise.  The induced ordering is total and has no semantic
	// significance beyond being stable.
	Cmp(Term) int
	// Substitute applies a given substitution to this term, returning the
	// (possibly identical) result.
	Substitute(Substitution) Term
	// Vars appends the names of all plain and frame variables occurring in
	// this term to a given set.
	Vars(map[string]bool)
	// String returns a parseable representation of this term.
	String() string
}

// Kind discriminators used for ordering terms of different shapes.
const (
	wildcardKind = iota
	varKind
	frameKind
	intKind
	applyKind
	seqKind
	mapKind
	bytesKind
)

func kindOf(t Term) int {
	switch t.(type) {
	case *Wildcard:
		return wildcardKind
	case *Var:
		return varKind
	case *Frame:
		return frameKind
	case *Int:
		return intKind
	case *Apply:
		return applyKind
	case *Seq:
		return seqKind
	case *Map:
		return mapKind
	case *Bytes:
		return bytesKind
	default:
		panic(fmt.Sprintf("unknown term %v", t))
	}
}

// Equal checks whether two terms are structurally identical.
func Equal(lhs Term, rhs Term) bool {
	return lhs.Cmp(rhs) == 0
}

// ============================================================================
// Var
// ============================================================================

// Var represents a named free variable which binds to exactly one sub-term
// during matching.
type Var struct {
	Name string
}

var _ Term = (*Var)(nil)

// NewVar constructs a fresh variable with a given name.
func NewVar(name string) *Var {
	return &Var{name}
}

// Cmp implementation for the Term interface.
func (p *Var) Cmp(o Term) int {
	if q, ok := o.(*Var); ok {
		return strings.Compare(p.Name, q.Name)
	}
	//
	return kindOf(p) - kindOf(o)
}

// Substitute implementation for the Term interface.
func (p *Var) Substitute(sub Substitution) Term {
	if t, ok := sub.Get(p.Name); ok {
		return t
	}
	//
	return p
}

// Vars implementation for the Term interface.
func (p *Var) Vars(vars map[string]bool) {
	vars[p.Name] = true
}

func (p *Var) String() string {
	return p.Name
}

// ============================================================================
// Frame
// ============================================================================

// Frame represents a variable which binds a contiguous sub-sequence of
// arbitrary length, enabling "rest of the list unspecified" patterns.  At most
// one frame may occur per sequence level, ensuring the split against
// neighbouring fixed-length elements is unique.
type Frame struct {
	Name string
}

var _ Term = (*Frame)(nil)

// NewFrame constructs a fresh frame variable with a given name.
func NewFrame(name string) *Frame {
	return &Frame{name}
}

// Cmp implementation for the Term interface.
func (p *Frame) Cmp(o Term) int {
	if q, ok := o.(*Frame); ok {
		return strings.Compare(p.Name, q.Name)
	}
	//
	return kindOf(p) - kindOf(o)
}

// Substitute implementation for the Term interface.  Observe that, since a
// frame binds a sequence slice rather than a single term, substituting a bound
// frame outside of an enclosing sequence is not meaningful and the frame is
// simply retained.  Enclosing sequences splice bound frames themselves.
func (p *Frame) Substitute(sub Substitution) Term {
	return p
}

// Vars implementation for the Term interface.
func (p *Frame) Vars(vars map[string]bool) {
	vars[p.Name] = true
}

func (p *Frame) String() string {
	return p.Name + "..."
}

// ============================================================================
// Wildcard
// ============================================================================

// Wildcard represents an anonymous variable which matches any single sub-term
// without binding anything.
type Wildcard struct{}

var _ Term = (*Wildcard)(nil)

// NewWildcard constructs a wildcard.
func NewWildcard() *Wildcard {
	return &Wildcard{}
}

// Cmp implementation for the Term interface.
func (p *Wildcard) Cmp(o Term) int {
	return kindOf(p) - kindOf(o)
}

// Substitute implementation for the Term interface.
func (p *Wildcard) Substitute(sub Substitution) Term {
	return p
}

// Vars implementation for the Term interface.
func (p *Wildcard) Vars(vars map[string]bool) {}

func (p *Wildcard) String() string {
	return "_"
}

// ============================================================================
// Int
// ============================================================================

// Int represents a concrete (arbitrary precision) integer literal.
type Int struct {
	Value big.Int
}

var _ Term = (*Int)(nil)

// NewInt constructs an integer literal from a given int64.
func NewInt(value int64) *Int {
	var val big.Int
	//
	val.SetInt64(value)
	//
	return &Int{val}
}

// NewBigInt constructs an integer literal from a given big integer, cloning it
// to preserve immutability.
func NewBigInt(value *big.Int) *Int {
	var val big.Int
	//
	val.Set(value)
	//
	return &Int{val}
}

// Cmp implementation for the Term interface.
func (p *Int) Cmp(o Term) int {
	if q, ok := o.(*Int); ok {
		return p.Value.Cmp(&q.Value)
	}
	//
	return kindOf(p) - kindOf(o)
}

// Substitute implementation for the Term interface.
func (p *Int) Substitute(sub Substitution) Term {
	return p
}

// Vars implementation for the Term interface.
func (p *Int) Vars(vars map[string]bool) {}

func (p *Int) String() string {
	return p.Value.String()
}

// ============================================================================
// Apply
// ============================================================================

// Apply represents the application of an operator or constructor to a sequence
// of sub-terms.  A nullary application (e.g. "nop") is rendered as a bare
// symbol.
type Apply struct {
	Op   string
	Args []Term
}

var _ Term = (*Apply)(nil)

// NewApply constructs an application of a given operator to zero or more
// arguments.
func NewApply(op string, args ...Term) *Apply {
	return &Apply{op, args}
}

// Cmp implementation for the Term interface.
func (p *Apply) Cmp(o Term) int {
	q, ok := o.(*Apply)
	//
	if !ok {
		return kindOf(p) - kindOf(o)
	} else if c := strings.Compare(p.Op, q.Op); c != 0 {
		return c
	}
	//
	return cmpTerms(p.Args, q.Args)
}

// Substitute implementation for the Term interface.
func (p *Apply) Substitute(sub Substitution) Term {
	return &Apply{p.Op, substituteAll(p.Args, sub)}
}

// Vars implementation for the Term interface.
func (p *Apply) Vars(vars map[string]bool) {
	for _, arg := range p.Args {
		arg.Vars(vars)
	}
}

func (p *Apply) String() string {
	if len(p.Args) == 0 {
		return p.Op
	}
	//
	var builder strings.Builder
	//
	builder.WriteString("(")
	builder.WriteString(p.Op)
	//
	for _, arg := range p.Args {
		builder.WriteString(" ")
		builder.WriteString(arg.String())
	}
	//
	builder.WriteString(")")
	//
	return builder.String()
}

// ============================================================================
// Seq
// ============================================================================

// Seq represents an ordered sequence of terms, such as a control sequence
// (head first) or a value stack (top first).  Matching against sequences is
// order sensitive.
type Seq struct {
	Items []Term
}

var _ Term = (*Seq)(nil)

// NewSeq constructs a sequence from zero or more items.
func NewSeq(items ...Term) *Seq {
	return &Seq{items}
}

// Len returns the number of items in this sequence.
func (p *Seq) Len() int {
	return len(p.Items)
}

// IsEmpty checks whether this sequence contains any items.
func (p *Seq) IsEmpty() bool {
	return len(p.Items) == 0
}

// Cmp implementation for the Term interface.
func (p *Seq) Cmp(o Term) int {
	if q, ok := o.(*Seq); ok {
		return cmpTerms(p.Items, q.Items)
	}
	//
	return kindOf(p) - kindOf(o)
}

// Substitute implementation for the Term interface.  Bound frame variables are
// spliced into the enclosing sequence at this point.
func (p *Seq) Substitute(sub Substitution) Term {
	nitems := make([]Term, 0, len(p.Items))
	//
	for _, item := range p.Items {
		if f, ok := item.(*Frame); ok {
			if slice, has := sub.GetFrame(f.Name); has {
				nitems = append(nitems, slice...)
				continue
			}
		}
		//
		nitems = append(nitems, item.Substitute(sub))
	}
	//
	return &Seq{nitems}
}

// Vars implementation for the Term interface.
func (p *Seq) Vars(vars map[string]bool) {
	for _, item := range p.Items {
		item.Vars(vars)
	}
}

func (p *Seq) String() string {
	var builder strings.Builder
	//
	builder.WriteString("(#seq")
	//
	for _, item := range p.Items {
		builder.WriteString(" ")
		builder.WriteString(item.String())
	}
	//
	builder.WriteString(")")
	//
	return builder.String()
}

// ============================================================================
// Helpers
// ============================================================================

func cmpTerms(lhs []Term, rhs []Term) int {
	if len(lhs) != len(rhs) {
		return len(lhs) - len(rhs)
	}
	//
	for i := range lhs {
		if c := lhs[i].Cmp(rhs[i]); c != 0 {
			return c
		}
	}
	//
	return 0
}

func substituteAll(terms []Term, sub Substitution) []Term {
	nterms := make([]Term, len(terms))
	//
	for i, t := range terms {
		nterms[i] = t.Substitute(sub)
	}
	//
	return nterms
}
