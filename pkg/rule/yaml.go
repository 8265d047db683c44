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
	"os"

	"github.com/goccy/go-yaml"

	"github.com/consensys/go-kestrel/pkg/term"
)

// Rule databases are stored as YAML files, each holding a list of modules
// whose pattern fields are S-expression strings.  For example:
//
//	- module: wasm-core
//	  values: [i32.const]
//	  strict:
//	    i32.add: null
//	  rules:
//	    - id: i32.add
//	      lhs: "(config (k (i32.add (i32.const A) (i32.const B)) Rest...))"
//	      rhs: "(config (k (i32.const (#wrap 32 (+ A B))) Rest...))"

type yamlModule struct {
	Module string            `yaml:"module"`
	Strict map[string][]uint `yaml:"strict"`
	Values []string          `yaml:"values"`
	Rules  []yamlRule        `yaml:"rules"`
	Lemmas []yamlLemma       `yaml:"lemmas"`
}

type yamlRule struct {
	ID       string   `yaml:"id"`
	LHS      string   `yaml:"lhs"`
	RHS      string   `yaml:"rhs"`
	When     []string `yaml:"when"`
	Priority uint     `yaml:"priority"`
}

type yamlLemma struct {
	ID   string   `yaml:"id"`
	LHS  string   `yaml:"lhs"`
	RHS  string   `yaml:"rhs"`
	When []string `yaml:"when"`
}

// ParseModules parses the contents of a YAML database file into a list of
// modules.
func ParseModules(data []byte) ([]Module, error) {
	var contents []yamlModule
	//
	if err := yaml.Unmarshal(data, &contents); err != nil {
		return nil, err
	}
	//
	modules := make([]Module, 0, len(contents))
	//
	for _, c := range contents {
		m, err := c.translate()
		//
		if err != nil {
			return nil, err
		}
		//
		modules = append(modules, m)
	}
	//
	return modules, nil
}

// LoadDatabase reads one or more YAML database files and assembles them into a
// single database.
func LoadDatabase(paths ...string) (*Database, error) {
	var modules []Module
	//
	for _, path := range paths {
		data, err := os.ReadFile(path)
		//
		if err != nil {
			return nil, err
		}
		//
		ms, err := ParseModules(data)
		//
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		//
		modules = append(modules, ms...)
	}
	//
	return NewDatabase(modules...)
}

func (p yamlModule) translate() (Module, error) {
	var m Module
	//
	if p.Module == "" {
		return m, fmt.Errorf("module missing name")
	}
	//
	m.Name = p.Module
	m.Strict = p.Strict
	m.Values = p.Values
	//
	for _, r := range p.Rules {
		rule, err := r.translate()
		//
		if err != nil {
			return m, fmt.Errorf("module %q: %w", m.Name, err)
		}
		//
		m.Rules = append(m.Rules, rule)
	}
	//
	for _, l := range p.Lemmas {
		lemma, err := l.translate()
		//
		if err != nil {
			return m, fmt.Errorf("module %q: %w", m.Name, err)
		}
		//
		m.Lemmas = append(m.Lemmas, lemma)
	}
	//
	return m, nil
}

func (p yamlRule) translate() (Rule, error) {
	var (
		r   = Rule{ID: p.ID, Priority: p.Priority}
		err error
	)
	//
	if p.ID == "" {
		return r, fmt.Errorf("rule missing id")
	}
	//
	if r.LHS, err = term.ParseConfig(p.LHS); err != nil {
		return r, fmt.Errorf("rule %q lhs: %w", p.ID, err)
	}
	//
	if r.RHS, err = term.ParseConfig(p.RHS); err != nil {
		return r, fmt.Errorf("rule %q rhs: %w", p.ID, err)
	}
	//
	if r.When, err = parseConditions(p.When); err != nil {
		return r, fmt.Errorf("rule %q when: %w", p.ID, err)
	}
	//
	return r, nil
}

func (p yamlLemma) translate() (Lemma, error) {
	var (
		l   = Lemma{ID: p.ID}
		err error
	)
	//
	if p.ID == "" {
		return l, fmt.Errorf("lemma missing id")
	}
	//
	if l.LHS, err = term.ParseTerm(p.LHS); err != nil {
		return l, fmt.Errorf("lemma %q lhs: %w", p.ID, err)
	}
	//
	if l.RHS, err = term.ParseTerm(p.RHS); err != nil {
		return l, fmt.Errorf("lemma %q rhs: %w", p.ID, err)
	}
	//
	if l.When, err = parseConditions(p.When); err != nil {
		return l, fmt.Errorf("lemma %q when: %w", p.ID, err)
	}
	//
	return l, nil
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
