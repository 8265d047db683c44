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
	"math"
	"slices"
	"strings"

	"github.com/consensys/go-kestrel/pkg/term"
	"github.com/consensys/go-kestrel/pkg/util/collection/set"
)

// Proposition provides an abstraction over path conditions made up from
// conjunctions and disjunctions of atoms.  Propositions are always stored in
// Disjunctive Normal Form (DNF): an empty set of conjuncts denotes truth,
// whilst a single empty conjunct denotes falsehood.
type Proposition struct {
	conjuncts set.SortedSet[Conjunction]
}

// Truth constructs either logical truth or logical falsehood.
func Truth(val bool) Proposition {
	if val {
		return Proposition{nil}
	}
	//
	return Proposition{[]Conjunction{{nil}}}
}

// NewProposition constructs a proposition from zero or more atoms, understood
// conjunctively.
func NewProposition(atoms ...Atom) Proposition {
	p := Truth(true)
	//
	for _, atom := range atoms {
		if atom.Is(false) {
			return Truth(false)
		} else if atom.Is(true) {
			continue
		}
		//
		p = p.And(Proposition{[]Conjunction{newConjunction(atom)}})
	}
	//
	return p
}

// Conjuncts returns the individual conjunctions which form this proposition.
func (p Proposition) Conjuncts() []Conjunction {
	return p.conjuncts
}

// IsTrue checks whether this proposition corresponds with logical truth.
func (p Proposition) IsTrue() bool {
	return len(p.conjuncts) == 0
}

// IsFalse checks whether this proposition corresponds with logical falsehood.
func (p Proposition) IsFalse() bool {
	return len(p.conjuncts) == 1 && len(p.conjuncts[0].atoms) == 0
}

// Equals returns true if the two propositions are structurally identical.
func (p Proposition) Equals(other Proposition) bool {
	if len(p.conjuncts) != len(other.conjuncts) {
		return false
	}
	//
	for i := range p.conjuncts {
		if p.conjuncts[i].Cmp(other.conjuncts[i]) != 0 {
			return false
		}
	}
	//
	return true
}

// And returns the conjunction of two propositions.
func (p Proposition) And(other Proposition) Proposition {
	var result Proposition
	//
	if p.IsFalse() || other.IsFalse() {
		return Truth(false)
	} else if p.IsTrue() {
		return other
	} else if other.IsTrue() {
		return p
	}
	//
	for i, conjunct := range p.conjuncts {
		ith := andConjunct(conjunct, other)
		//
		if i == 0 {
			result = ith
		} else {
			result = result.Or(ith)
		}
	}
	//
	return result
}

// Or returns the disjunction of two propositions.
func (p Proposition) Or(other Proposition) Proposition {
	var conjuncts set.SortedSet[Conjunction]
	//
	if p.IsTrue() || other.IsTrue() {
		return Truth(true)
	} else if p.IsFalse() {
		return other
	} else if other.IsFalse() {
		return p
	}
	//
	conjuncts.InsertAll(&p.conjuncts)
	conjuncts.InsertAll(&other.conjuncts)
	//
	return simplify(Proposition{conjuncts})
}

// Negate returns the logical negation of this proposition.
func (p Proposition) Negate() Proposition {
	var q Proposition
	//
	if p.IsTrue() {
		return Truth(false)
	} else if p.IsFalse() {
		return Truth(true)
	}
	//
	for i, c := range p.conjuncts {
		ith := negateConjunct(c)
		//
		if i == 0 {
			q = ith
		} else {
			q = q.And(ith)
		}
	}
	//
	return q
}

// Substitute applies a given substitution to every atom, re-simplifying the
// result.
func (p Proposition) Substitute(sub term.Substitution) Proposition {
	if p.IsTrue() || p.IsFalse() {
		return p
	}
	//
	result := Truth(false)
	//
	for _, c := range p.conjuncts {
		atoms := make([]Atom, len(c.atoms))
		//
		for i, a := range c.atoms {
			atoms[i] = a.Substitute(sub)
		}
		//
		result = result.Or(NewProposition(atoms...))
	}
	//
	return result
}

func (p Proposition) String() string {
	var (
		builder strings.Builder
		braces  = len(p.conjuncts) > 1
	)
	// check for true or false
	if p.IsFalse() {
		return "⊥"
	} else if p.IsTrue() {
		return "⊤"
	}
	//
	for i, c := range p.conjuncts {
		if i != 0 {
			builder.WriteString(" ∨ ")
		}
		//
		builder.WriteString(c.String(braces))
	}
	//
	return builder.String()
}

func simplify(p Proposition) Proposition {
	var (
		n       = uint(len(p.conjuncts))
		changed = true
	)
	//
	for changed {
		changed = false
		//
		for i := uint(0); i < n; i++ {
			for j := i + 1; j < n; j++ {
				if c, tautology := simplifyConjuncts(p, i, j); tautology {
					return Truth(true)
				} else {
					changed = changed || c
				}
			}
		}
	}
	// Resort the set, as it may be out of order after simplification has
	// completed.
	p.conjuncts = *set.NewSortedSet(p.conjuncts...)
	//
	return p
}

func simplifyConjuncts(p Proposition, i, j uint) (bool, bool) {
	changed, tautology := unitPropagation(p, i, j)
	//
	if !tautology {
		var (
			ith    = p.conjuncts[i]
			jth    = p.conjuncts[j]
			ithjth = ith.Implies(jth)
			jthith = jth.Implies(ith)
		)
		// NOTE: its possible that ith == jth here and, in such case, we'd
		// expect ithjth and jthith.
		switch {
		case ithjth && !jthith:
			p.conjuncts[j] = ith
		case !ithjth && jthith:
			p.conjuncts[i] = jth
		}
	}
	//
	return changed, tautology
}

func unitPropagation(p Proposition, i, j uint) (bool, bool) {
	var (
		in = len(p.conjuncts[i].atoms)
		jn = len(p.conjuncts[j].atoms)
	)
	//
	if in == 1 && jn == 1 {
		var (
			ith = p.conjuncts[i].atoms[0]
			jth = p.conjuncts[j].atoms[0]
		)
		// Check for P || ~P
		return false, ith.Cmp(jth.Negate()) == 0
	} else if (in != 1 && jn != 1) || in == 0 || jn == 0 {
		return false, false
	} else if in > jn {
		i, j = j, i
	}
	// ASSERT: len(p.conjuncts[i].atoms) == 1
	var (
		ith = p.conjuncts[i].atoms[0].Negate()
		jth = p.conjuncts[j]
	)
	// Check whether anything to do
	if kth, ok := jth.Remove(ith); ok {
		p.conjuncts[j] = kth
		return true, false
	}
	//
	return false, false
}

func negateConjunct(c Conjunction) Proposition {
	var result Proposition
	//
	for i, a := range c.atoms {
		ith := NewProposition(a.Negate())
		//
		if i == 0 {
			result = ith
		} else {
			result = result.Or(ith)
		}
	}
	//
	return result
}

func andConjunct(c Conjunction, o Proposition) Proposition {
	var conjuncts set.SortedSet[Conjunction]
	//
	for _, conjunct := range o.conjuncts {
		var nc Conjunction
		//
		nc.atoms.InsertAll(&c.atoms)
		nc.atoms.InsertAll(&conjunct.atoms)
		//
		if !nc.simplify() {
			continue
		}
		//
		conjuncts.Insert(nc)
	}
	// Sanity check
	if len(conjuncts) == 0 {
		return Truth(false)
	}
	// Done
	return Proposition{conjuncts}
}

// ============================================================================
// Conjunction
// ============================================================================

// Conjunction represents the conjunction of zero or more atoms.
type Conjunction struct {
	atoms set.SortedSet[Atom]
}

func newConjunction(atoms ...Atom) Conjunction {
	var c Conjunction
	//
	c.atoms = *set.NewSortedSet(atoms...)
	//
	return c
}

// Atoms returns the underlying atoms which are conjuncted together.
func (p Conjunction) Atoms() []Atom {
	return p.atoms
}

// Cmp implementation for the Comparable interface.
func (p Conjunction) Cmp(o Conjunction) int {
	if len(p.atoms) != len(o.atoms) {
		return len(p.atoms) - len(o.atoms)
	}
	//
	for i := range p.atoms {
		if c := p.atoms[i].Cmp(o.atoms[i]); c != 0 {
			return c
		}
	}
	//
	return 0
}

// Remove an atom from this conjunction (if it is contained within), or simply
// return this conjunction.
func (p Conjunction) Remove(atom Atom) (Conjunction, bool) {
	if i := p.atoms.Find(atom); i != math.MaxUint {
		natoms := slices.Delete(slices.Clone(p.atoms.ToArray()), int(i), int(i)+1)
		// Yes, removed.
		return Conjunction{natoms}, true
	}
	// Nothing doing
	return p, false
}

// Implies checks whether this conjunction (syntactically) implies another.
// For example, A implies (A B), whilst (A B) implies (A B C), etc.
func (p Conjunction) Implies(other Conjunction) bool {
	for _, a := range p.atoms {
		if !other.atoms.Contains(a) {
			return false
		}
	}
	//
	return true
}

func (p Conjunction) String(braces bool) string {
	var builder strings.Builder
	//
	braces = braces && len(p.atoms) > 1
	//
	if braces {
		builder.WriteString("(")
	}
	//
	for i, c := range p.atoms {
		if i != 0 {
			builder.WriteString(" ∧ ")
		}
		//
		builder.WriteString(c.String())
	}
	//
	if braces {
		builder.WriteString(")")
	}
	//
	return builder.String()
}

// Attempt to remove subsumed conditions.  Consider "x≠0 ∧ x=1" for example: the
// condition "x≠0" is subsumed by "x=1" and, hence, can be removed.  This
// returns false if the conjunction is equivalent to logical falsehood.
func (p *Conjunction) simplify() bool {
	var (
		done    = false
		changed = false
	)
	//
	for !done {
		done = true
		// This is an O(n^2) operation, but we just assume the number of
		// conjuncts (i.e. n) is small.
		for i, ci := range p.atoms {
			for _, cj := range p.atoms {
				cij := ci.CloseOver(cj)
				//
				if cij.Is(false) {
					return false
				} else if ci.Cmp(cij) != 0 {
					p.atoms[i] = cij
					changed = true
					done = false
				}
			}
		}
	}
	//
	if changed {
		// Remove any T values and resort, as things may have been disturbed.
		natoms := make([]Atom, 0, len(p.atoms))
		//
		for _, a := range p.atoms {
			if !a.Is(true) {
				natoms = append(natoms, a)
			}
		}
		//
		p.atoms = *set.NewSortedSet(natoms...)
	}
	//
	return true
}
