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

// Linear normalises a term as a symbolic base plus a constant offset, where a
// nil base denotes a constant.  This underpins address separation and bound
// reasoning: two expressions over one base compare by offset alone.  Terms
// outside the linear fragment report failure.
func Linear(t term.Term) (term.Term, *big.Int, bool) {
	switch e := t.(type) {
	case *term.Int:
		return nil, &e.Value, true
	case *term.Var:
		return e, big.NewInt(0), true
	case *term.Apply:
		if (e.Op == "+" || e.Op == "-") && len(e.Args) == 2 {
			return linearApply(e)
		}
		//
		return nil, nil, false
	default:
		return nil, nil, false
	}
}

func linearApply(e *term.Apply) (term.Term, *big.Int, bool) {
	b1, o1, ok1 := Linear(e.Args[0])
	b2, o2, ok2 := Linear(e.Args[1])
	//
	if !ok1 || !ok2 {
		return nil, nil, false
	}
	//
	var offset big.Int
	//
	if e.Op == "+" {
		offset.Add(o1, o2)
		//
		switch {
		case b1 == nil:
			return b2, &offset, true
		case b2 == nil:
			return b1, &offset, true
		}
	} else {
		offset.Sub(o1, o2)
		//
		switch {
		case b2 == nil:
			return b1, &offset, true
		case b1 != nil && term.Equal(b1, b2):
			return nil, &offset, true
		}
	}
	//
	return nil, nil, false
}

// SameBase checks whether two linear bases coincide (both constant, or equal
// terms).
func SameBase(b1 term.Term, b2 term.Term) bool {
	switch {
	case b1 == nil && b2 == nil:
		return true
	case b1 == nil || b2 == nil:
		return false
	default:
		return term.Equal(b1, b2)
	}
}

// Bound is a one-sided constraint on a symbolic base, derived from an
// ordering or equality atom in the linear fragment.
type Bound struct {
	// Base is the constrained symbolic term.
	Base term.Term
	// Upper indicates Base <= Limit; otherwise Base >= Limit.
	Upper bool
	// Limit is the inclusive bound.
	Limit *big.Int
}

// Bounds extracts the one-sided constraints an atom places on a symbolic
// base, where the atom lies in the linear fragment: orderings yield one bound
// and equalities yield a pair.  Atoms outside the fragment yield none.
func (p Atom) Bounds() []Bound {
	app, ok := p.Pred.(*term.Apply)
	//
	if !ok || len(app.Args) != 2 {
		return nil
	}
	//
	b1, o1, ok1 := Linear(app.Args[0])
	b2, o2, ok2 := Linear(app.Args[1])
	//
	if !ok1 || !ok2 {
		return nil
	}
	//
	var (
		one   = big.NewInt(1)
		limit big.Int
	)
	//
	switch {
	case app.Op == "<" && b1 != nil && b2 == nil:
		// base + o1 < c, i.e. base <= c-o1-1; negated: base >= c-o1.
		limit.Sub(o2, o1)
		//
		if p.Sign {
			return []Bound{{b1, true, limit.Sub(&limit, one)}}
		}
		//
		return []Bound{{b1, false, &limit}}
	case app.Op == "<" && b1 == nil && b2 != nil:
		// c < base + o2, i.e. base >= c-o2+1; negated: base <= c-o2.
		limit.Sub(o1, o2)
		//
		if p.Sign {
			return []Bound{{b2, false, limit.Add(&limit, one)}}
		}
		//
		return []Bound{{b2, true, &limit}}
	case app.Op == "==" && p.Sign && b1 != nil && b2 == nil:
		limit.Sub(o2, o1)
		return []Bound{{b1, true, &limit}, {b1, false, &limit}}
	case app.Op == "==" && p.Sign && b1 == nil && b2 != nil:
		limit.Sub(o1, o2)
		return []Bound{{b2, true, &limit}, {b2, false, &limit}}
	}
	//
	return nil
}
