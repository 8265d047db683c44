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
package rule

import (
	"github.com/consensys/go-kestrel/pkg/term"
)

// Rule is a conditional rewrite from one configuration pattern to another,
// used as a single semantic step of the underlying machine.  A rule matches a
// configuration iff every cell pattern in its left-hand side matches the
// corresponding cell (cells not mentioned are implicitly preserved unchanged)
// and its side condition evaluates true under the resulting substitution.
type Rule struct {
	// ID is a stable identifier for this rule, unique within a database.
	ID string
	// LHS is the configuration pattern to be matched.
	LHS term.Configuration
	// RHS is the configuration pattern producing the successor.  Cells absent
	// from the RHS are copied unchanged from the matched configuration.
	RHS term.Configuration
	// When gives zero or more boolean-valued terms, understood conjunctively,
	// which must hold under the matching substitution.
	When []term.Term
	// Priority orders candidate rules, with numerically lower values preferred.
	// When several rules match a configuration, only those in the lowest
	// matching tier are candidate successors.
	Priority uint
}

// Lemma is a conditional equality over the background theory (integer
// arithmetic, modular arithmetic, byte-map accessors), usable during matching
// and side-condition simplification.  A lemma is never a step: it rewrites
// terms, not configurations.  Lemmas are trusted by construction; the engine
// applies them without checking them against the base semantics, hence callers
// must activate only lemma modules verified sound by separate means.
type Lemma struct {
	// ID is a stable identifier for this lemma, unique within a database.
	ID string
	// LHS is the term pattern to be rewritten.
	LHS term.Term
	// RHS is the replacement term.
	RHS term.Term
	// When gives zero or more boolean-valued guard terms which must reduce to
	// truth before the lemma applies (e.g. a byte-map or range predicate).
	When []term.Term
}

// Module is a named grouping of rules and lemmas, the unit of activation for a
// proof session.  A module also carries the strictness and value-constructor
// declarations which drive the heating/cooling expander over its operators.
type Module struct {
	// Name identifies this module within a database.
	Name string
	// Strict maps an operator to the argument positions (0-based) which must
	// be evaluated before the operator itself, in the order given.  A nil (or
	// empty) position list means all arguments, left to right.
	Strict map[string][]uint
	// Values lists the constructors whose (ground) applications count as
	// values, e.g. "i32.const".  Integer literals are always values.
	Values []string
	// Rules gives the semantic stepping rules of this module.
	Rules []Rule
	// Lemmas gives the trusted simplification lemmas of this module.
	Lemmas []Lemma
}
