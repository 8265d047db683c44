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

// Package prove implements the deductive verifier.  A claim is discharged by
// symbolically executing its left-hand side, breadth-first, until every branch
// either reaches a state matching the right-hand side (with the ensured
// conditions entailed by the branch's path condition) or is shown unreachable.
// An irreducible branch matching neither is a counterexample candidate,
// confirmed or discarded by a satisfiability query on its path condition.
// During exploration the claim itself may be applied as a rewrite rule, once
// at least one proper step separates the application from the root.
package prove

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/consensys/go-kestrel/pkg/explore"
	"github.com/consensys/go-kestrel/pkg/logic"
	"github.com/consensys/go-kestrel/pkg/smt"
	"github.com/consensys/go-kestrel/pkg/term"
)

// History marker for a coinductive claim application.
const claimStep = "claim"

// Options bound the resources a proof attempt may consume.
type Options struct {
	// MaxSteps bounds the total number of node expansions.
	MaxSteps uint
	// MaxBranches bounds the width of any exploration wave.
	MaxBranches uint
	// Workers bounds concurrent branch expansion.
	Workers int
	// Exhaustive continues exploring after a confirmed counterexample, so
	// that every failing branch is reported rather than just the first.
	Exhaustive bool
	// SolverTimeout bounds each oracle query.  A query which times out is
	// retried once under twice the deadline before being treated as
	// undecided.
	SolverTimeout time.Duration
}

// DefaultOptions returns the standard resource bounds.
func DefaultOptions() Options {
	return Options{
		MaxSteps:      10000,
		MaxBranches:   256,
		Workers:       1,
		SolverTimeout: 10 * time.Second,
	}
}

// Verdict is the outcome of a proof attempt.
type Verdict int

const (
	// Proved indicates every branch was discharged.
	Proved Verdict = iota
	// Disproved indicates a reachable counterexample exists.
	Disproved
	// Inconclusive indicates neither a proof nor a counterexample was found
	// within resource bounds.
	Inconclusive
)

func (v Verdict) String() string {
	switch v {
	case Proved:
		return "proved"
	case Disproved:
		return "disproved"
	default:
		return "inconclusive"
	}
}

// Outcome reports the result of attempting one claim.
type Outcome struct {
	// Claim identifies the attempted claim.
	Claim string
	// Verdict of the attempt.
	Verdict Verdict
	// Reason gives a human-readable account of a non-proved verdict.
	Reason string
	// Counterexamples holds the confirmed failing branches (disproof only).
	Counterexamples []*explore.Node
	// Steps actually expanded.
	Steps uint
	// Branches is the widest wave encountered.
	Branches uint
}

// Prover discharges claims against an activation, using an oracle for
// whatever entailment and satisfiability queries reduction leaves undecided.
type Prover struct {
	explorer *explore.Explorer
	oracle   smt.Oracle
	opts     Options
}

// NewProver constructs a prover over a given explorer and oracle.
func NewProver(explorer *explore.Explorer, oracle smt.Oracle, opts Options) *Prover {
	return &Prover{explorer, oracle, opts}
}

// ProveAll attempts a collection of claims in order, returning one outcome
// per claim.  Claims are independent; an earlier disproof does not stop later
// attempts.
func (p *Prover) ProveAll(ctx context.Context, claims []Claim) []Outcome {
	outcomes := make([]Outcome, len(claims))
	//
	for i, claim := range claims {
		outcomes[i] = p.Prove(ctx, claim)
	}
	//
	return outcomes
}

// Prove attempts a single claim.
func (p *Prover) Prove(ctx context.Context, claim Claim) Outcome {
	fresh := claim.Freshen()
	//
	a := &attempt{
		prover:  p,
		claim:   claim,
		fresh:   fresh,
		rigid:   rigidBindings(fresh.LHS),
		outcome: Outcome{Claim: claim.ID},
	}
	//
	logrus.Debugf("attempting claim %q", claim.ID)
	//
	return a.run(ctx)
}

// attempt carries the state of one claim's proof search.
type attempt struct {
	prover *Prover
	// claim is the original claim, applied coinductively.
	claim Claim
	// fresh is the renamed instance being executed.
	fresh Claim
	// rigid pre-binds the executed instance's variables to themselves, making
	// them constants during target matching.
	rigid term.Substitution
	// root is the prepared initial configuration, against which unmentioned
	// cells are checked for preservation.
	root term.Configuration
	//
	outcome Outcome
}

func (p *attempt) run(ctx context.Context) Outcome {
	var (
		opts = p.prover.opts
		path = p.fresh.RequiredAtoms(term.NewSubstitution())
	)
	//
	p.root = p.prover.explorer.Rewriter().Prepare(p.fresh.LHS, path)
	//
	wave := []*explore.Node{explore.NewRoot(p.root, path)}
	//
	for len(wave) > 0 {
		if ctx.Err() != nil {
			return p.conclude("proof timeout", Inconclusive)
		}
		//
		if p.outcome.Branches < uint(len(wave)) {
			p.outcome.Branches = uint(len(wave))
		}
		//
		if uint(len(wave)) > opts.MaxBranches {
			return p.conclude(fmt.Sprintf("branch bound %d exhausted", opts.MaxBranches), Inconclusive)
		}
		//
		pending, carried := p.classify(ctx, wave)
		//
		if p.outcome.Steps+uint(len(pending)+len(carried)) > opts.MaxSteps {
			return p.conclude(fmt.Sprintf("step bound %d exhausted", opts.MaxSteps), Inconclusive)
		}
		//
		expansions, err := p.prover.explorer.ExpandAll(ctx, pending)
		//
		if err != nil {
			return p.conclude("proof timeout", Inconclusive)
		}
		//
		p.outcome.Steps += uint(len(pending) + len(carried))
		wave = carried
		//
		for _, expansion := range expansions {
			if expansion.Irreducible {
				if done := p.falsified(ctx, expansion.Node, "irreducible state does not match target"); done != nil {
					return *done
				}
				//
				continue
			}
			//
			wave = append(wave, expansion.Children...)
		}
	}
	//
	if len(p.outcome.Counterexamples) > 0 {
		return p.conclude(p.outcome.Reason, Disproved)
	} else if p.outcome.Reason != "" {
		return p.conclude(p.outcome.Reason, Inconclusive)
	}
	//
	return p.conclude("", Proved)
}

// Partition a wave into nodes still requiring expansion and nodes advanced by
// a coinductive claim application (which rejoin the next wave, so that their
// results are themselves checked against the target).  Nodes matching the
// target are discharged outright.
func (p *attempt) classify(ctx context.Context, wave []*explore.Node) ([]*explore.Node, []*explore.Node) {
	var pending, carried []*explore.Node
	//
	for _, node := range wave {
		prepared := node.Config
		//
		if node.Depth > 0 {
			prepared = p.prover.explorer.Rewriter().Prepare(node.Config, node.Path)
		}
		//
		switch p.discharged(ctx, prepared, node) {
		case truthTrue:
			logrus.Debugf("claim %q: branch discharged after %d steps", p.claim.ID, node.Depth)
			continue
		case truthUnknown:
			p.outcome.Reason = "target entailment undecided"
			continue
		}
		//
		if progressed(node) {
			if next, ok := p.applyClaim(ctx, prepared, node); ok {
				carried = append(carried, next)
				continue
			}
		}
		//
		pending = append(pending, node.WithConfig(prepared))
	}
	//
	return pending, carried
}

// Check whether a node matches the target pattern with the ensured conditions
// entailed, and with every unmentioned cell preserved from the root.
func (p *attempt) discharged(ctx context.Context, config term.Configuration, node *explore.Node) truth {
	sub := p.rigid.Clone()
	//
	if !term.MatchConfig(p.fresh.RHS, config, sub) {
		return truthFalse
	}
	//
	if !p.preserved(config) {
		return truthFalse
	}
	//
	ensures := logic.NewProposition(p.fresh.EnsuredAtoms(sub)...)
	//
	switch p.entails(ctx, node.Proposition(), ensures) {
	case smt.Valid:
		return truthTrue
	case smt.Invalid:
		return truthFalse
	default:
		return truthUnknown
	}
}

// Check that every cell not mentioned by the target pattern is unchanged from
// the root.
func (p *attempt) preserved(config term.Configuration) bool {
	for _, cell := range config.Cells() {
		if p.fresh.RHS.Has(cell.Name) {
			continue
		}
		//
		original, ok := p.root.Cell(cell.Name)
		//
		if !ok || !term.Equal(original.Content, cell.Content) {
			return false
		}
	}
	//
	return true
}

// Attempt to apply the claim itself as a rewrite rule at a node: the claim's
// left-hand side must match and the path condition must entail its required
// conditions; the result overlays the right-hand side and assumes the ensured
// conditions.
func (p *attempt) applyClaim(ctx context.Context, config term.Configuration, node *explore.Node) (*explore.Node, bool) {
	sub := term.NewSubstitution()
	//
	if !term.MatchConfig(p.claim.LHS, config, sub) {
		return nil, false
	}
	//
	requires := logic.NewProposition(p.claim.RequiredAtoms(sub)...)
	//
	if p.entails(ctx, node.Proposition(), requires) != smt.Valid {
		return nil, false
	}
	//
	next := config
	//
	for _, cell := range p.claim.RHS.Substitute(sub).Cells() {
		next = next.WithCell(cell)
	}
	//
	logrus.Debugf("claim %q applied coinductively at depth %d", p.claim.ID, node.Depth)
	//
	return node.WithConfig(config).Child(next, p.claim.EnsuredAtoms(sub), claimStep+" "+p.claim.ID), true
}

// Handle a branch which can neither step nor be discharged: a satisfiable
// path condition confirms a counterexample, an unsatisfiable one shows the
// branch unreachable, and anything else leaves the attempt inconclusive.
func (p *attempt) falsified(ctx context.Context, node *explore.Node, reason string) *Outcome {
	switch p.satisfiable(ctx, node.Proposition()) {
	case smt.Unsat:
		return nil
	case smt.Sat:
		p.outcome.Counterexamples = append(p.outcome.Counterexamples, node)
		//
		if !p.prover.opts.Exhaustive {
			done := p.conclude(reason, Disproved)
			return &done
		}
		//
		p.outcome.Reason = reason
		//
		return nil
	default:
		p.outcome.Reason = "path feasibility undecided"
		return nil
	}
}

func (p *attempt) conclude(reason string, verdict Verdict) Outcome {
	p.outcome.Verdict = verdict
	p.outcome.Reason = reason
	//
	return p.outcome
}

// ============================================================================
// Oracle access
// ============================================================================

// Three-valued outcome of a discharge check.
type truth int

const (
	truthTrue truth = iota
	truthFalse
	truthUnknown
)

// Entailment with a per-query deadline, retried once under a doubled deadline
// on timeout.
func (p *attempt) entails(ctx context.Context, assumptions logic.Proposition, goal logic.Proposition) smt.Validity {
	answer := smt.ValidTimeout
	//
	for attempt, timeout := 0, p.prover.opts.SolverTimeout; attempt < 2; attempt, timeout = attempt+1, 2*timeout {
		qctx, cancel := context.WithTimeout(ctx, timeout)
		answer = p.prover.oracle.Entails(qctx, assumptions, goal)
		cancel()
		//
		if answer != smt.ValidTimeout {
			break
		}
	}
	//
	return answer
}

func (p *attempt) satisfiable(ctx context.Context, constraints logic.Proposition) smt.Satisfiability {
	answer := smt.SatTimeout
	//
	for attempt, timeout := 0, p.prover.opts.SolverTimeout; attempt < 2; attempt, timeout = attempt+1, 2*timeout {
		qctx, cancel := context.WithTimeout(ctx, timeout)
		answer = p.prover.oracle.Satisfiable(qctx, constraints)
		cancel()
		//
		if answer != smt.SatTimeout {
			break
		}
	}
	//
	return answer
}

// Check whether a node is separated from the root by at least one proper rule
// step.  Residual refinements and earlier claim applications do not count:
// applying the claim coinductively is only sound once genuine progress has
// been made.
func progressed(node *explore.Node) bool {
	for _, step := range node.History {
		if step != explore.ResidualStep && !strings.HasPrefix(step, claimStep) {
			return true
		}
	}
	//
	return false
}

// Pre-bind every variable of a pattern to itself, so that target matching
// treats the executed instance's variables as constants whilst leaving
// target-only variables existential.
func rigidBindings(config term.Configuration) term.Substitution {
	var (
		vars = make(map[string]bool)
		sub  = term.NewSubstitution()
	)
	//
	config.Vars(vars)
	//
	for v := range vars {
		sub.Bind(v, term.NewVar(v))
		sub.BindFrame(v, []term.Term{term.NewFrame(v)})
	}
	//
	return sub
}
