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

// Package smt provides the decision-procedure boundary of the engine.  The
// rewriter, explorer and prover never decide arithmetic entailment themselves;
// whatever survives built-in reduction is delegated through the Oracle
// interface.  An external SMT solver sits behind an implementation of that
// interface, whilst the built-in evaluation oracle covers the query shapes
// arising from concrete and near-concrete path conditions.
package smt

import (
	"context"

	"github.com/consensys/go-kestrel/pkg/logic"
)

// Validity is the outcome of an entailment query.
type Validity int

const (
	// Valid indicates the goal holds under the assumptions.
	Valid Validity = iota
	// Invalid indicates the goal fails under the assumptions (a counterexample
	// exists).
	Invalid
	// ValidUnknown indicates the oracle could not decide the query.  This must
	// surface as an inconclusive verdict, never as a truth value.
	ValidUnknown
	// ValidTimeout indicates the oracle exhausted its deadline.
	ValidTimeout
)

func (v Validity) String() string {
	switch v {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	case ValidTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Satisfiability is the outcome of a satisfiability query.
type Satisfiability int

const (
	// Sat indicates the constraints have a model.
	Sat Satisfiability = iota
	// Unsat indicates the constraints are contradictory.
	Unsat
	// SatUnknown indicates the oracle could not decide the query.
	SatUnknown
	// SatTimeout indicates the oracle exhausted its deadline.
	SatTimeout
)

func (s Satisfiability) String() string {
	switch s {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	case SatTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Oracle is the external decision-procedure boundary.  Implementations must be
// safe for concurrent use, since parallel branch expansions may query the
// oracle simultaneously.
type Oracle interface {
	// Entails determines whether a given goal holds under given assumptions,
	// over the background arithmetic theory.
	Entails(ctx context.Context, assumptions logic.Proposition, goal logic.Proposition) Validity
	// Satisfiable determines whether given constraints have a model.
	Satisfiable(ctx context.Context, constraints logic.Proposition) Satisfiability
}
