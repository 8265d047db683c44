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
package rewrite

import (
	"math/big"

	"github.com/consensys/go-kestrel/pkg/logic"
	"github.com/consensys/go-kestrel/pkg/rule"
	"github.com/consensys/go-kestrel/pkg/term"
)

// Bound on simplification passes.  Each pass is a full bottom-up traversal;
// reaching the bound simply leaves the term in its current (sound) form.
const maxPasses = 64

// Simplifier reduces terms via built-in arithmetic and byte-map evaluation
// plus whichever lemmas are active for the session.  A simplifier may carry a
// set of assumed atoms (the current path condition), against which lemma
// guards and built-in predicates are discharged.  Simplifiers are cheap to
// construct and immutable, hence safe to share across branches.
type Simplifier struct {
	activation  *rule.Activation
	assumptions []logic.Atom
}

// NewSimplifier constructs a simplifier over a given activation, with no
// assumptions.
func NewSimplifier(activation *rule.Activation) *Simplifier {
	return &Simplifier{activation, nil}
}

// WithAssumptions returns a simplifier which additionally assumes the given
// atoms when discharging guards.
func (p *Simplifier) WithAssumptions(atoms []logic.Atom) *Simplifier {
	return &Simplifier{p.activation, atoms}
}

// Reduce simplifies a term under a given set of assumed atoms.  This is the
// form of simplification the decision-procedure boundary consumes.
func (p *Simplifier) Reduce(assumptions []logic.Atom, t term.Term) term.Term {
	return p.WithAssumptions(assumptions).Simplify(t)
}

// Simplify reduces a given term to a fixed point (or the pass bound).
func (p *Simplifier) Simplify(t term.Term) term.Term {
	for i := 0; i < maxPasses; i++ {
		nt := p.simplify(t)
		//
		if term.Equal(nt, t) {
			return nt
		}
		//
		t = nt
	}
	//
	return t
}

// Holds determines whether a given boolean-valued term is decided under the
// current assumptions, and if so whether it holds.  A condition holds when it
// reduces to truth, or when it (or its negation) occurs amongst the assumed
// atoms.
func (p *Simplifier) Holds(cond term.Term) (decided bool, holds bool) {
	atom := logic.NewAtom(p.Simplify(cond))
	//
	if atom.Is(true) {
		return true, true
	} else if atom.Is(false) {
		return true, false
	}
	//
	for _, a := range p.assumptions {
		if atom.Cmp(a) == 0 {
			return true, true
		} else if atom.Negate().Cmp(a) == 0 {
			return true, false
		}
	}
	//
	return false, false
}

// One bottom-up simplification pass.
func (p *Simplifier) simplify(t term.Term) term.Term {
	switch e := t.(type) {
	case *term.Apply:
		nargs := make([]term.Term, len(e.Args))
		//
		for i, arg := range e.Args {
			nargs[i] = p.simplify(arg)
		}
		//
		nt := p.builtin(term.NewApply(e.Op, nargs...))
		//
		return p.applyLemmas(nt)
	case *term.Seq:
		nitems := make([]term.Term, len(e.Items))
		//
		for i, item := range e.Items {
			nitems[i] = p.simplify(item)
		}
		//
		return term.NewSeq(nitems...)
	case *term.Map:
		nentries := make([]term.MapEntry, len(e.Entries))
		//
		for i, entry := range e.Entries {
			nentries[i] = term.MapEntry{Key: p.simplify(entry.Key), Value: p.simplify(entry.Value)}
		}
		//
		return term.NewMapOf(nentries, e.Rest)
	default:
		return t
	}
}

// Attempt to apply an active lemma at a given node, returning the node
// unchanged if none applies.  Lemma guards are discharged by reduction or
// against the assumed atoms; an undischarged guard blocks the lemma (it is
// never speculated).
func (p *Simplifier) applyLemmas(t term.Term) term.Term {
	if p.activation == nil {
		return t
	}
	//
outer:
	for _, lemma := range p.activation.Lemmas() {
		sub := term.NewSubstitution()
		//
		if !term.Match(lemma.LHS, t, sub) {
			continue
		}
		//
		for _, guard := range lemma.When {
			decided, holds := p.Holds(guard.Substitute(sub))
			//
			if !decided || !holds {
				continue outer
			}
		}
		//
		return lemma.RHS.Substitute(sub)
	}
	//
	return t
}

// Built-in reduction of a single (argument-reduced) node.
//
//nolint:gocyclo
func (p *Simplifier) builtin(t *term.Apply) term.Term {
	switch t.Op {
	case "+", "-", "*", "div", "mod":
		if l, r, ok := intArgs2(t.Args); ok {
			return foldArith(t.Op, l, r)
		}
		// Symbolic cancellation, e.g. (A+1) - A.
		if base, offset, ok := logic.Linear(t); ok && base == nil {
			return term.NewBigInt(offset)
		}
		// Additive identities.
		if t.Op == "+" && len(t.Args) == 2 {
			if isZero(t.Args[0]) {
				return t.Args[1]
			} else if isZero(t.Args[1]) {
				return t.Args[0]
			}
		}
	case "==":
		return p.foldEquality(t, true)
	case "!=":
		return p.foldEquality(t, false)
	case "<", "<=":
		return p.foldOrder(t)
	case ">":
		if len(t.Args) == 2 {
			return p.foldOrder(term.NewApply("<", t.Args[1], t.Args[0]))
		}
	case ">=":
		if len(t.Args) == 2 {
			return p.foldOrder(term.NewApply("<=", t.Args[1], t.Args[0]))
		}
	case "not":
		if len(t.Args) == 1 {
			if isTruth(t.Args[0], true) {
				return falseTerm()
			} else if isTruth(t.Args[0], false) {
				return trueTerm()
			}
		}
	case "and":
		return foldConnective(t, true)
	case "or":
		return foldConnective(t, false)
	case "#wrap":
		return p.foldWrap(t)
	case "#shl", "#shr", "#bitand", "#bitor", "#bitxor":
		if l, r, ok := intArgs2(t.Args); ok {
			return foldBitwise(t.Op, l, r)
		}
	case "#getByte":
		if bm, ok := bytesArg(t.Args, 0); ok && len(t.Args) == 2 {
			if addr, ok := uintArg(t.Args, 1); ok {
				return term.NewInt(int64(bm.Get(addr)))
			}
		}
	case "#setByte":
		if bm, ok := bytesArg(t.Args, 0); ok && len(t.Args) == 3 {
			addr, okA := uintArg(t.Args, 1)
			value, okV := intArg(t.Args, 2)
			//
			if okA && okV {
				var b big.Int
				b.And(value, big.NewInt(255))
				//
				return bm.Set(addr, byte(b.Uint64()))
			}
		}
	case "#getRange":
		if bm, ok := bytesArg(t.Args, 0); ok && len(t.Args) == 3 {
			addr, okA := uintArg(t.Args, 1)
			width, okW := uintArg(t.Args, 2)
			//
			if okA && okW {
				return term.NewBigInt(bm.GetRange(addr, uint(width)))
			}
		}
	case "#setRange":
		if bm, ok := bytesArg(t.Args, 0); ok && len(t.Args) == 4 {
			addr, okA := uintArg(t.Args, 1)
			value, okV := intArg(t.Args, 2)
			width, okW := uintArg(t.Args, 3)
			//
			if okA && okV && okW {
				return bm.SetRange(addr, value, uint(width))
			}
		}
	case "#byteMap":
		return foldByteMap(t)
	case "#inRange":
		return p.foldInRange(t)
	}
	//
	return t
}

// Fold equalities (and their negations) between linear terms over a common
// symbolic base, e.g. "A+3 == A+5" folds to falsehood regardless of A.
func (p *Simplifier) foldEquality(t *term.Apply, sign bool) term.Term {
	if len(t.Args) != 2 {
		return t
	}
	//
	lhs, rhs := t.Args[0], t.Args[1]
	// Identical ground terms.
	if term.IsGround(lhs) && term.Equal(lhs, rhs) {
		return truthTerm(sign)
	}
	//
	if b1, o1, ok1 := logic.Linear(lhs); ok1 {
		if b2, o2, ok2 := logic.Linear(rhs); ok2 && logic.SameBase(b1, b2) {
			return truthTerm(sign == (o1.Cmp(o2) == 0))
		}
	}
	// Congruence through unary value constructors, e.g. (i32.const X).
	la, okL := lhs.(*term.Apply)
	ra, okR := rhs.(*term.Apply)
	//
	if okL && okR && la.Op == ra.Op && len(la.Args) == 1 && len(ra.Args) == 1 &&
		p.activation != nil && p.activation.IsValueConstructor(la.Op) {
		inner := term.NewApply("==", la.Args[0], ra.Args[0])
		//
		if sign {
			return inner
		}
		//
		return term.NewApply("not", inner)
	}
	//
	if sign {
		return t
	}
	//
	return term.NewApply("not", term.NewApply("==", lhs, rhs))
}

func (p *Simplifier) foldOrder(t *term.Apply) term.Term {
	if len(t.Args) != 2 {
		return t
	}
	//
	b1, o1, ok1 := logic.Linear(t.Args[0])
	b2, o2, ok2 := logic.Linear(t.Args[1])
	//
	if ok1 && ok2 && logic.SameBase(b1, b2) {
		if t.Op == "<" {
			return truthTerm(o1.Cmp(o2) < 0)
		}
		//
		return truthTerm(o1.Cmp(o2) <= 0)
	}
	//
	return t
}

// Reduce "#wrap w v" (v modulo 2^w).  A symbolic operand is passed through
// unchanged whenever it is known to lie within range.
func (p *Simplifier) foldWrap(t *term.Apply) term.Term {
	if len(t.Args) != 2 {
		return t
	}
	//
	width, okW := uintArg(t.Args, 0)
	//
	if !okW {
		return t
	}
	//
	if value, ok := intArg(t.Args, 1); ok {
		var (
			modulus big.Int
			result  big.Int
		)
		//
		modulus.Lsh(big.NewInt(1), uint(width))
		result.Mod(value, &modulus)
		//
		return term.NewBigInt(&result)
	}
	// Known-range symbolic operand.
	if _, holds := p.Holds(term.NewApply("#inRange", t.Args[1], t.Args[0])); holds {
		return t.Args[1]
	}
	//
	return t
}

// Reduce "#inRange v w" where decidable.  Besides concrete evaluation, the
// bounds of byte-map reads and wraps are known structurally: a byte read lies
// in [0,256) and "#wrap w v" lies in [0,2^w).
func (p *Simplifier) foldInRange(t *term.Apply) term.Term {
	if len(t.Args) != 2 {
		return t
	}
	//
	width, okW := uintArg(t.Args, 1)
	//
	if !okW {
		return t
	}
	//
	if value, ok := intArg(t.Args, 0); ok {
		var bound big.Int
		//
		bound.Lsh(big.NewInt(1), uint(width))
		//
		return truthTerm(value.Sign() >= 0 && value.Cmp(&bound) < 0)
	}
	//
	if app, ok := t.Args[0].(*term.Apply); ok {
		switch app.Op {
		case "#getByte":
			if width >= 8 {
				return trueTerm()
			}
		case "#getRange":
			if w, ok := uintArg(app.Args, 2); ok && len(app.Args) == 3 && 8*w <= width {
				return trueTerm()
			}
		case "#wrap":
			if w, ok := uintArg(app.Args, 0); ok && len(app.Args) == 2 && w <= width {
				return trueTerm()
			}
		}
	}
	//
	return t
}

// ============================================================================
// Stateless folds
// ============================================================================

func foldArith(op string, l *big.Int, r *big.Int) term.Term {
	var value big.Int
	//
	switch op {
	case "+":
		value.Add(l, r)
	case "-":
		value.Sub(l, r)
	case "*":
		value.Mul(l, r)
	case "div":
		if r.Sign() == 0 {
			return term.NewApply(op, term.NewBigInt(l), term.NewBigInt(r))
		}
		//
		value.Div(l, r)
	case "mod":
		if r.Sign() == 0 {
			return term.NewApply(op, term.NewBigInt(l), term.NewBigInt(r))
		}
		//
		value.Mod(l, r)
	}
	//
	return term.NewBigInt(&value)
}

func foldBitwise(op string, l *big.Int, r *big.Int) term.Term {
	var value big.Int
	//
	switch op {
	case "#shl":
		value.Lsh(l, uint(r.Uint64()))
	case "#shr":
		value.Rsh(l, uint(r.Uint64()))
	case "#bitand":
		value.And(l, r)
	case "#bitor":
		value.Or(l, r)
	case "#bitxor":
		value.Xor(l, r)
	}
	//
	return term.NewBigInt(&value)
}

// Fold "and" / "or" over decided operands.
func foldConnective(t *term.Apply, conjunctive bool) term.Term {
	var (
		nargs     []term.Term
		decided   = true
		absorbing = !conjunctive
	)
	//
	for _, arg := range t.Args {
		if isTruth(arg, absorbing) {
			return truthTerm(absorbing)
		} else if !isTruth(arg, conjunctive) {
			decided = false
			nargs = append(nargs, arg)
		}
	}
	//
	if decided {
		return truthTerm(conjunctive)
	} else if len(nargs) == 1 {
		return nargs[0]
	}
	//
	return term.NewApply(t.Op, nargs...)
}

// Stores preserve the byte-map invariant, since they only ever write wrapped
// bytes; hence the predicate reduces through them to the underlying map.
func foldByteMap(t *term.Apply) term.Term {
	if len(t.Args) != 1 {
		return t
	}
	//
	switch arg := t.Args[0].(type) {
	case *term.Bytes:
		return trueTerm()
	case *term.Apply:
		if (arg.Op == "#setRange" && len(arg.Args) == 4) || (arg.Op == "#setByte" && len(arg.Args) == 3) {
			return term.NewApply("#byteMap", arg.Args[0])
		}
	}
	//
	return t
}

// ============================================================================
// Helpers
// ============================================================================

func trueTerm() term.Term {
	return term.NewApply("true")
}

func falseTerm() term.Term {
	return term.NewApply("false")
}

func truthTerm(val bool) term.Term {
	if val {
		return trueTerm()
	}
	//
	return falseTerm()
}

func isTruth(t term.Term, val bool) bool {
	if app, ok := t.(*term.Apply); ok && len(app.Args) == 0 {
		return (val && app.Op == "true") || (!val && app.Op == "false")
	}
	//
	return false
}

func isZero(t term.Term) bool {
	i, ok := t.(*term.Int)
	return ok && i.Value.Sign() == 0
}

func intArg(args []term.Term, i int) (*big.Int, bool) {
	if i < len(args) {
		if v, ok := args[i].(*term.Int); ok {
			return &v.Value, true
		}
	}
	//
	return nil, false
}

func intArgs2(args []term.Term) (*big.Int, *big.Int, bool) {
	if len(args) == 2 {
		l, okL := intArg(args, 0)
		r, okR := intArg(args, 1)
		//
		if okL && okR {
			return l, r, true
		}
	}
	//
	return nil, nil, false
}

func uintArg(args []term.Term, i int) (uint64, bool) {
	if v, ok := intArg(args, i); ok && v.IsUint64() {
		return v.Uint64(), true
	}
	//
	return 0, false
}

func bytesArg(args []term.Term, i int) (*term.Bytes, bool) {
	if i < len(args) {
		if bm, ok := args[i].(*term.Bytes); ok {
			return bm, true
		}
	}
	//
	return nil, false
}
