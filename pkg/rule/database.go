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
	"fmt"
	"slices"
)

// Database is a loaded collection of rule and lemma modules.  A database is
// constructed once per proof session and never mutated afterwards; it may be
// shared, unsynchronised, across parallel workers.
type Database struct {
	modules []Module
}

// NewDatabase constructs a database from an ordered collection of modules,
// rejecting duplicate module names and duplicate rule/lemma identifiers.
func NewDatabase(modules ...Module) (*Database, error) {
	seen := make(map[string]bool)
	//
	for _, m := range modules {
		if seen["module "+m.Name] {
			return nil, fmt.Errorf("duplicate module %q", m.Name)
		}
		//
		seen["module "+m.Name] = true
		//
		for _, r := range m.Rules {
			if seen["rule "+r.ID] {
				return nil, fmt.Errorf("duplicate rule %q", r.ID)
			}
			//
			seen["rule "+r.ID] = true
		}
		//
		for _, l := range m.Lemmas {
			if seen["lemma "+l.ID] {
				return nil, fmt.Errorf("duplicate lemma %q", l.ID)
			}
			//
			seen["lemma "+l.ID] = true
		}
	}
	//
	return &Database{slices.Clone(modules)}, nil
}

// Modules returns the modules of this database, in load order.
func (p *Database) Modules() []Module {
	return p.modules
}

// Module returns the module with a given name, if any.
func (p *Database) Module(name string) (Module, bool) {
	for _, m := range p.modules {
		if m.Name == name {
			return m, true
		}
	}
	//
	return Module{}, false
}

// Activate constructs the activation for a given selection of module names.
// This is the only mechanism for enabling optional facts: a lemma in an
// unselected module simply does not exist for the session.  An unknown module
// name is an error.
func (p *Database) Activate(names ...string) (*Activation, error) {
	var (
		activation = &Activation{
			strict: make(map[string][]uint),
			values: make(map[string]bool),
		}
	)
	//
	for _, name := range names {
		m, ok := p.Module(name)
		//
		if !ok {
			return nil, fmt.Errorf("unknown module %q", name)
		}
		//
		activation.rules = append(activation.rules, m.Rules...)
		activation.lemmas = append(activation.lemmas, m.Lemmas...)
		//
		for op, positions := range m.Strict {
			activation.strict[op] = positions
		}
		//
		for _, op := range m.Values {
			activation.values[op] = true
		}
	}
	//
	return activation, nil
}

// Activation is the read-only view of a database restricted to the modules
// selected for one proof session.
type Activation struct {
	rules  []Rule
	lemmas []Lemma
	strict map[string][]uint
	values map[string]bool
}

// Rules returns the active stepping rules.
func (p *Activation) Rules() []Rule {
	return p.rules
}

// Lemmas returns the active simplification lemmas.
func (p *Activation) Lemmas() []Lemma {
	return p.lemmas
}

// StrictPositions returns the strict argument positions declared for a given
// operator, with the second result indicating whether the operator is strict
// at all.  A nil position list means all arguments, left to right.
func (p *Activation) StrictPositions(op string) ([]uint, bool) {
	positions, ok := p.strict[op]
	return positions, ok
}

// IsValueConstructor checks whether a given operator is declared as a value
// constructor.
func (p *Activation) IsValueConstructor(op string) bool {
	return p.values[op]
}
