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
package smt

import (
	"context"
	"slices"

	"github.com/consensys/go-kestrel/pkg/logic"
	"github.com/consensys/go-kestrel/pkg/term"
)

// Reducer reduces a term under a set of assumed atoms.  This indirection lets
// the evaluation oracle reuse the engine's own simplifier without a package
// cycle.
type Reducer interface {
	Reduce(assumptions []logic.Atom, t term.Term) term.Term
}

// Model search is abandoned beyond this many free variables.
const maxModelVars = 3

// Three-valued outcome of deciding an atom or conjunct by reduction.
type truth int

const (
	truthTrue truth = iota
	truthFalse
	truthUnknown
)

// Candidate values substituted for free variables during model search.  These
// cover the boundary values at which the query shapes arising from wrapped
// arithmetic and byte-map bounds typically flip.
func candidateValues() []term.Term {
	return []term.Term{
		term.NewInt(0),
		term.NewInt(1),
		term.NewInt(2),
		term.NewInt(255),
		term.NewInt(65535),
		term.NewInt(65536),
		term.NewBytes(),
	}
}

// EvalOracle is the built-in oracle.  It decides queries by reduction: an
// entailment holds when the goal reduces to truth under each assumption
// conjunct, and fails when a bounded search over candidate variable
// assignments produces a concrete counterexample.  Whatever reduction and
// search both fail to decide is reported unknown, never guessed.
type EvalOracle struct {
	reducer Reducer
}

// NewEvalOracle constructs an evaluation oracle over a given reducer.
func NewEvalOracle(reducer Reducer) *EvalOracle {
	return &EvalOracle{reducer}
}

var _ Oracle = (*EvalOracle)(nil)

// Entails implementation for the Oracle interface.
func (p *EvalOracle) Entails(ctx context.Context, assumptions logic.Proposition, goal logic.Proposition) Validity {
	if goal.IsTrue() || assumptions.IsFalse() {
		return Valid
	}
	//
	holds := true
	//
	for _, conjunct := range conjunctsOf(assumptions) {
		if ctx.Err() != nil {
			return ValidTimeout
		}
		//
		switch p.holdsUnder(conjunct.Atoms(), goal) {
		case truthFalse:
			// Deterministically refuted, provided this conjunct is itself
			// consistent.
			if p.modelOf(ctx, []logic.Conjunction{conjunct}, nil) {
				return Invalid
			}
			// Consistency unconfirmed, hence the refutation cannot be
			// promoted to Invalid.  It still rules out Valid.
			holds = false
		case truthUnknown:
			holds = false
		}
	}
	//
	if holds {
		return Valid
	}
	// Search for a model of the assumptions falsifying the goal.
	if p.modelOf(ctx, conjunctsOf(assumptions), goal.Conjuncts()) {
		return Invalid
	} else if ctx.Err() != nil {
		return ValidTimeout
	}
	//
	return ValidUnknown
}

// Satisfiable implementation for the Oracle interface.
func (p *EvalOracle) Satisfiable(ctx context.Context, constraints logic.Proposition) Satisfiability {
	if constraints.IsTrue() {
		return Sat
	} else if constraints.IsFalse() {
		return Unsat
	}
	//
	unsat := true
	//
	for _, conjunct := range conjunctsOf(constraints) {
		if ctx.Err() != nil {
			return SatTimeout
		}
		//
		atoms := conjunct.Atoms()
		// A conjunct whose atoms all reduce to truth is its own model.
		if p.decideConjunct(nil, atoms) == truthTrue {
			return Sat
		}
		//
		if p.refuteConjunct(atoms) != truthTrue {
			unsat = false
		}
	}
	//
	if unsat {
		return Unsat
	}
	//
	if p.modelOf(ctx, conjunctsOf(constraints), nil) {
		return Sat
	} else if ctx.Err() != nil {
		return SatTimeout
	}
	//
	return SatUnknown
}

// Determine whether a goal proposition holds under a set of assumed atoms: it
// holds when some goal conjunct reduces entirely to truth, and fails when
// every goal conjunct contains a decidedly false atom.
func (p *EvalOracle) holdsUnder(assumptions []logic.Atom, goal logic.Proposition) truth {
	refuted := true
	//
	for _, conjunct := range goal.Conjuncts() {
		switch p.decideConjunct(assumptions, conjunct.Atoms()) {
		case truthTrue:
			return truthTrue
		case truthUnknown:
			refuted = false
		}
	}
	//
	if refuted {
		return truthFalse
	}
	//
	return truthUnknown
}

// Decide a conjunction of atoms under a set of assumed atoms, where possible.
func (p *EvalOracle) decideConjunct(assumptions []logic.Atom, atoms []logic.Atom) truth {
	result := truthTrue
	//
	for _, atom := range atoms {
		switch p.decideAtom(assumptions, atom) {
		case truthFalse:
			return truthFalse
		case truthUnknown:
			result = truthUnknown
		}
	}
	//
	return result
}

// Check whether a conjunction contains an internal contradiction (an atom
// refuted by the remaining atoms).
func (p *EvalOracle) refuteConjunct(atoms []logic.Atom) truth {
	for i, atom := range atoms {
		rest := slices.Concat(atoms[:i], atoms[i+1:])
		//
		if p.decideAtom(rest, atom) == truthFalse {
			return truthTrue
		}
	}
	//
	return truthFalse
}

// Decide a single atom under a set of assumed atoms, by reduction and by
// membership.
func (p *EvalOracle) decideAtom(assumptions []logic.Atom, atom logic.Atom) truth {
	reduced := logic.NewAtom(p.reducer.Reduce(assumptions, atom.Term()))
	//
	if reduced.Is(true) {
		return truthTrue
	} else if reduced.Is(false) {
		return truthFalse
	}
	//
	for _, assumed := range assumptions {
		if reduced.Cmp(assumed) == 0 {
			return truthTrue
		} else if reduced.Negate().Cmp(assumed) == 0 {
			return truthFalse
		}
	}
	//
	return decideByBounds(assumptions, reduced)
}

// Decide an ordering (or equality-derived) atom against the one-sided bounds
// the assumptions place on its base, e.g. "0 < N" decides "0 <= N-1".
func decideByBounds(assumptions []logic.Atom, atom logic.Atom) truth {
	goals := atom.Bounds()
	//
	if len(goals) == 0 {
		return truthUnknown
	}
	//
	result := truthTrue
	//
	for _, goal := range goals {
		switch decideBound(assumptions, goal) {
		case truthFalse:
			return truthFalse
		case truthUnknown:
			result = truthUnknown
		}
	}
	//
	return result
}

func decideBound(assumptions []logic.Atom, goal logic.Bound) truth {
	for _, assumed := range assumptions {
		for _, bound := range assumed.Bounds() {
			if !term.Equal(bound.Base, goal.Base) {
				continue
			}
			//
			switch {
			case goal.Upper && bound.Upper && bound.Limit.Cmp(goal.Limit) <= 0:
				// base <= b <= g.
				return truthTrue
			case goal.Upper && !bound.Upper && bound.Limit.Cmp(goal.Limit) > 0:
				// base >= b > g contradicts base <= g.
				return truthFalse
			case !goal.Upper && !bound.Upper && bound.Limit.Cmp(goal.Limit) >= 0:
				// base >= b >= g.
				return truthTrue
			case !goal.Upper && bound.Upper && bound.Limit.Cmp(goal.Limit) < 0:
				// base <= b < g contradicts base >= g.
				return truthFalse
			}
		}
	}
	//
	return truthUnknown
}

// Bounded search for an assignment of candidate values satisfying some
// constraint conjunct whilst (when a goal is supplied) falsifying every goal
// conjunct.  Reports whether one was found within bounds.
func (p *EvalOracle) modelOf(ctx context.Context, constraints []logic.Conjunction,
	negated []logic.Conjunction) bool {
	vars := freeVars(constraints, negated)
	//
	if len(vars) > maxModelVars {
		return false
	}
	//
	var found bool
	//
	p.enumerate(vars, term.NewSubstitution(), func(sub term.Substitution) bool {
		if ctx.Err() != nil {
			return true
		}
		//
		for _, conjunct := range constraints {
			if p.decideConjunct(nil, substituteAtoms(conjunct.Atoms(), sub)) != truthTrue {
				continue
			}
			//
			if p.falsifiesAll(negated, sub) {
				found = true
				return true
			}
		}
		//
		return false
	})
	//
	return found
}

func (p *EvalOracle) falsifiesAll(conjuncts []logic.Conjunction, sub term.Substitution) bool {
	for _, conjunct := range conjuncts {
		if p.decideConjunct(nil, substituteAtoms(conjunct.Atoms(), sub)) != truthFalse {
			return false
		}
	}
	//
	return true
}

// Enumerate assignments of candidate values to variables, invoking a callback
// on each until it signals completion.
func (p *EvalOracle) enumerate(vars []string, sub term.Substitution, fn func(term.Substitution) bool) bool {
	if len(vars) == 0 {
		return fn(sub)
	}
	//
	for _, value := range candidateValues() {
		attempt := sub.Clone()
		attempt.Bind(vars[0], value)
		//
		if p.enumerate(vars[1:], attempt, fn) {
			return true
		}
	}
	//
	return false
}

// The conjuncts of a proposition, with truth represented as a single empty
// conjunct.
func conjunctsOf(prop logic.Proposition) []logic.Conjunction {
	if prop.IsTrue() {
		return []logic.Conjunction{{}}
	}
	//
	return prop.Conjuncts()
}

func substituteAtoms(atoms []logic.Atom, sub term.Substitution) []logic.Atom {
	natoms := make([]logic.Atom, len(atoms))
	//
	for i, atom := range atoms {
		natoms[i] = atom.Substitute(sub)
	}
	//
	return natoms
}

func freeVars(constraints []logic.Conjunction, negated []logic.Conjunction) []string {
	set := make(map[string]bool)
	//
	for _, conjunct := range slices.Concat(constraints, negated) {
		for _, atom := range conjunct.Atoms() {
			atom.Term().Vars(set)
		}
	}
	//
	vars := make([]string, 0, len(set))
	//
	for v := range set {
		vars = append(vars, v)
	}
	//
	slices.Sort(vars)
	//
	return vars
}
