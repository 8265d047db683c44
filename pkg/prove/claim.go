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
package prove

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/consensys/go-kestrel/pkg/logic"
	"github.com/consensys/go-kestrel/pkg/term"
)

// Claim is a reachability assertion: from any state matching the left-hand
// side under the required conditions, execution reaches a state matching the
// right-hand side satisfying the ensured conditions.  Cells not mentioned on
// the right-hand side are asserted unchanged.  During its own proof a claim
// may be applied coinductively as a rewrite rule, provided at least one proper
// step has been taken.
type Claim struct {
	// ID is a stable identifier for this claim.
	ID string
	// LHS is the starting state pattern.
	LHS term.Configuration
	// RHS is the target state pattern.
	RHS term.Configuration
	// Requires are boolean-valued conditions assumed on the starting state.
	Requires []term.Term
	// Ensures are boolean-valued conditions asserted on the target state.
	Ensures []term.Term
}

// RequiredAtoms renders the required conditions under a substitution as path
// condition atoms.
func (p *Claim) RequiredAtoms(sub term.Substitution) []logic.Atom {
	return atomsOf(p.Requires, sub)
}

// EnsuredAtoms renders the ensured conditions under a substitution as path
// condition atoms.
func (p *Claim) EnsuredAtoms(sub term.Substitution) []logic.Atom {
	return atomsOf(p.Ensures, sub)
}

// Freshen returns a copy of this claim with every variable renamed apart from
// the original, so that the instance being executed can never collude with
// the claim pattern during coinductive application.  Renaming appends (or
// increments) a "!n" suffix, e.g. X becomes X!0 and X!0 becomes X!1.
func (p *Claim) Freshen() Claim {
	var (
		vars = make(map[string]bool)
		sub  = term.NewSubstitution()
	)
	//
	p.LHS.Vars(vars)
	p.RHS.Vars(vars)
	//
	for _, c := range p.Requires {
		c.Vars(vars)
	}
	//
	for _, c := range p.Ensures {
		c.Vars(vars)
	}
	//
	for v := range vars {
		fresh := freshName(v)
		//
		sub.Bind(v, term.NewVar(fresh))
		sub.BindFrame(v, []term.Term{term.NewFrame(fresh)})
	}
	//
	return Claim{
		ID:       p.ID,
		LHS:      p.LHS.Substitute(sub),
		RHS:      p.RHS.Substitute(sub),
		Requires: substituteAll(p.Requires, sub),
		Ensures:  substituteAll(p.Ensures, sub),
	}
}

func freshName(name string) string {
	if i := strings.LastIndex(name, "!"); i >= 0 {
		if n, err := strconv.Atoi(name[i+1:]); err == nil {
			return fmt.Sprintf("%s!%d", name[:i], n+1)
		}
	}
	//
	return name + "!0"
}

// ============================================================================
// YAML loading
// ============================================================================

// Claims are stored as YAML files holding a list of claims whose pattern
// fields are S-expression strings, mirroring the rule database format.
type yamlClaim struct {
	ID       string   `yaml:"id"`
	LHS      string   `yaml:"lhs"`
	RHS      string   `yaml:"rhs"`
	Requires []string `yaml:"requires"`
	Ensures  []string `yaml:"ensures"`
}

// ParseClaims parses the contents of a YAML claims file.
func ParseClaims(data []byte) ([]Claim, error) {
	var contents []yamlClaim
	//
	if err := yaml.Unmarshal(data, &contents); err != nil {
		return nil, err
	}
	//
	claims := make([]Claim, 0, len(contents))
	//
	for _, c := range contents {
		claim, err := c.translate()
		//
		if err != nil {
			return nil, err
		}
		//
		claims = append(claims, claim)
	}
	//
	return claims, nil
}

// LoadClaims reads one or more YAML claims files.
func LoadClaims(paths ...string) ([]Claim, error) {
	var claims []Claim
	//
	for _, path := range paths {
		data, err := os.ReadFile(path)
		//
		if err != nil {
			return nil, err
		}
		//
		cs, err := ParseClaims(data)
		//
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		//
		claims = append(claims, cs...)
	}
	//
	return claims, nil
}

func (p yamlClaim) translate() (Claim, error) {
	var (
		c   = Claim{ID: p.ID}
		err error
	)
	//
	if p.ID == "" {
		return c, fmt.Errorf("claim missing id")
	}
	//
	if c.LHS, err = term.ParseConfig(p.LHS); err != nil {
		return c, fmt.Errorf("claim %q lhs: %w", p.ID, err)
	}
	//
	if c.RHS, err = term.ParseConfig(p.RHS); err != nil {
		return c, fmt.Errorf("claim %q rhs: %w", p.ID, err)
	}
	//
	if c.Requires, err = parseConditions(p.Requires); err != nil {
		return c, fmt.Errorf("claim %q requires: %w", p.ID, err)
	}
	//
	if c.Ensures, err = parseConditions(p.Ensures); err != nil {
		return c, fmt.Errorf("claim %q ensures: %w", p.ID, err)
	}
	//
	return c, nil
}

func parseConditions(inputs []string) ([]term.Term, error) {
	conditions := make([]term.Term, 0, len(inputs))
	//
	for _, input := range inputs {
		c, err := term.ParseTerm(input)
		//
		if err != nil {
			return nil, err
		}
		//
		conditions = append(conditions, c)
	}
	//
	return conditions, nil
}

func atomsOf(conditions []term.Term, sub term.Substitution) []logic.Atom {
	atoms := make([]logic.Atom, 0, len(conditions))
	//
	for _, c := range conditions {
		atoms = append(atoms, logic.NewAtom(c.Substitute(sub)))
	}
	//
	return atoms
}

func substituteAll(conditions []term.Term, sub term.Substitution) []term.Term {
	nconditions := make([]term.Term, len(conditions))
	//
	for i, c := range conditions {
		nconditions[i] = c.Substitute(sub)
	}
	//
	return nconditions
}
