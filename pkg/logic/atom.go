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
package logic

import (
	"math/big"

	"github.com/consensys/go-kestrel/pkg/term"
)

// Atom represents an indivisible part of a path condition: a boolean-valued
// term (e.g. an equality, an ordering, a range or byte-map predicate) together
// with a sign.  Negation is kept in the sign rather than the term, so that an
// atom and its negation always compare as structural neighbours.  Atoms are
// normalised on construction: "!=" becomes a negated "==", every ordering
// reduces to "<" (possibly negated), and concrete comparisons fold to truth
// values.
type Atom struct {
	// Sign indicates whether this atom is positive or negated.
	Sign bool
	// Pred is the underlying boolean-valued term.
	Pred term.Term
}

// True is the atom representing logical truth.
var True = Atom{true, term.NewApply("true")}

// False is the atom representing logical falsehood.
var False = Atom{false, term.NewApply("true")}

// NewAtom constructs a (normalised) atom from a given boolean-valued term.
func NewAtom(t term.Term) Atom {
	return newAtom(true, t)
}

func newAtom(sign bool, t term.Term) Atom {
	if app, ok := t.(*term.Apply); ok {
		switch app.Op {
		case "not":
			if len(app.Args) == 1 {
				return newAtom(!sign, app.Args[0])
			}
		case "false":
			if len(app.Args) == 0 {
				sign = !sign
				t = term.NewApply("true")
			}
		case "!=":
			if len(app.Args) == 2 {
				sign = !sign
				t = term.NewApply("==", app.Args[0], app.Args[1])
			}
		case ">":
			if len(app.Args) == 2 {
				t = term.NewApply("<", app.Args[1], app.Args[0])
			}
		case "<=":
			// a <= b is kept as the negation of b < a, so that an ordering
			// and its complement always share one predicate.
			if len(app.Args) == 2 {
				sign = !sign
				t = term.NewApply("<", app.Args[1], app.Args[0])
			}
		case ">=":
			if len(app.Args) == 2 {
				sign = !sign
				t = term.NewApply("<", app.Args[0], app.Args[1])
			}
		}
	}
	//
	return Atom{sign, Fold(t)}.fold()
}

// Cmp implementation for sorted sets of atoms.
func (p Atom) Cmp(o Atom) int {
	if c := p.Pred.Cmp(o.Pred); c != 0 {
		return c
	}
	//
	switch {
	case p.Sign == o.Sign:
		return 0
	case p.Sign:
		return 1
	default:
		return -1
	}
}

// Negate returns the logical negation of this atom.
func (p Atom) Negate() Atom {
	return Atom{!p.Sign, p.Pred}
}

// Is checks whether this atom is equivalent to logical truth or falsehood.
func (p Atom) Is(val bool) bool {
	if app, ok := p.Pred.(*term.Apply); ok && app.Op == "true" && len(app.Args) == 0 {
		return p.Sign == val
	}
	//
	return false
}

// Term reconstructs the boolean-valued term denoted by this atom, including
// any negation.
func (p Atom) Term() term.Term {
	if p.Sign {
		return p.Pred
	}
	//
	return term.NewApply("not", p.Pred)
}

// Substitute applies a given substitution to this atom, refolding the result.
func (p Atom) Substitute(sub term.Substitution) Atom {
	return newAtom(p.Sign, p.Pred.Substitute(sub))
}

// CloseOver this atom and another, producing a potentially updated version of
// this atom.  For example, closing "x+1==3" over "x==2" folds the former to
// truth; closing an atom over its own negation yields falsehood.
func (p Atom) CloseOver(o Atom) Atom {
	// Contradiction / duplication against the same predicate.
	if term.Equal(p.Pred, o.Pred) {
		if p.Sign != o.Sign {
			return False
		}
		//
		return p
	}
	// Propagate ground equalities.
	if name, value, ok := o.groundEquality(); ok {
		sub := term.NewSubstitution()
		sub.Bind(name, value)
		//
		q := p.Substitute(sub)
		// Only strengthen towards a decided truth value; otherwise retain the
		// original form so the variable remains visible.
		if q.Is(true) || q.Is(false) {
			return q
		}
	}
	//
	return p
}

// GroundEquality checks whether this atom has the form "X == c" (or "c == X")
// for a variable X and ground term c, returning the binding if so.
func (p Atom) groundEquality() (string, term.Term, bool) {
	app, ok := p.Pred.(*term.Apply)
	//
	if !ok || !p.Sign || app.Op != "==" || len(app.Args) != 2 {
		return "", nil, false
	}
	//
	if v, ok := app.Args[0].(*term.Var); ok && term.IsGround(app.Args[1]) {
		return v.Name, app.Args[1], true
	}
	//
	if v, ok := app.Args[1].(*term.Var); ok && term.IsGround(app.Args[0]) {
		return v.Name, app.Args[0], true
	}
	//
	return "", nil, false
}

// String returns a human-readable representation.
func (p Atom) String() string {
	if p.Sign {
		return p.Pred.String()
	}
	//
	return "¬" + p.Pred.String()
}

// Fold a decided concrete predicate into a truth constant.
func (p Atom) fold() Atom {
	app, ok := p.Pred.(*term.Apply)
	//
	if !ok {
		return p
	}
	//
	switch app.Op {
	case "==":
		if len(app.Args) == 2 {
			if l, r, ok := intArgs(app.Args); ok {
				return truth(p.Sign == (l.Cmp(r) == 0))
			}
			// Structural equality of identical ground terms.
			if term.IsGround(app.Args[0]) && term.Equal(app.Args[0], app.Args[1]) {
				return truth(p.Sign)
			}
		}
	case "<":
		if l, r, ok := intArgs(app.Args); ok {
			return truth(p.Sign == (l.Cmp(r) < 0))
		}
	case "<=":
		if l, r, ok := intArgs(app.Args); ok {
			return truth(p.Sign == (l.Cmp(r) <= 0))
		}
	case "#inRange":
		if l, r, ok := intArgs(app.Args); ok {
			var bound big.Int
			//
			bound.Lsh(big.NewInt(1), uint(r.Uint64()))
			//
			return truth(p.Sign == (l.Sign() >= 0 && l.Cmp(&bound) < 0))
		}
	case "#byteMap":
		if len(app.Args) == 1 {
			// Concrete byte-maps satisfy the invariant by construction.
			if _, ok := app.Args[0].(*term.Bytes); ok {
				return truth(p.Sign)
			}
		}
	}
	//
	return p
}

func truth(val bool) Atom {
	if val {
		return True
	}
	//
	return False
}

func intArgs(args []term.Term) (*big.Int, *big.Int, bool) {
	if len(args) != 2 {
		return nil, nil, false
	}
	//
	l, okL := args[0].(*term.Int)
	r, okR := args[1].(*term.Int)
	//
	if okL && okR {
		return &l.Value, &r.Value, true
	}
	//
	return nil, nil, false
}

// Fold performs bottom-up constant folding of arithmetic within a given term.
// This is deliberately shallow: it handles only the operators which arise from
// substituting ground equalities into atoms.  Deeper simplification (lemmas,
// byte-map reasoning) lives in the rewrite package.
func Fold(t term.Term) term.Term {
	app, ok := t.(*term.Apply)
	//
	if !ok {
		return t
	}
	//
	nargs := make([]term.Term, len(app.Args))
	//
	for i, arg := range app.Args {
		nargs[i] = Fold(arg)
	}
	//
	if l, r, ok := intArgs(nargs); ok {
		var value big.Int
		//
		switch app.Op {
		case "+":
			return term.NewBigInt(value.Add(l, r))
		case "-":
			return term.NewBigInt(value.Sub(l, r))
		case "*":
			return term.NewBigInt(value.Mul(l, r))
		case "div":
			if r.Sign() != 0 {
				return term.NewBigInt(value.Div(l, r))
			}
		case "mod":
			if r.Sign() != 0 {
				return term.NewBigInt(value.Mod(l, r))
			}
		}
	}
	//
	return term.NewApply(app.Op, nargs...)
}
