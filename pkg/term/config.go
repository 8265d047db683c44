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
package term

import (
	"fmt"
	"strings"
)

// Cell is a named region of a configuration holding one kind of state, such as
// a control sequence, a value stack, a locals mapping or a linear memory.
// Singleton cells have a nil key and appear at most once per configuration;
// multiplicity cells (e.g. one per module instance) carry a key and are
// matched by it.  By convention, cell contents are always sequences at the top
// level, so that frame variables can express "and the rest unchanged".
type Cell struct {
	Name    string
	Key     Term
	Content Term
}

// NewCell constructs a singleton cell with given name and content.
func NewCell(name string, content Term) Cell {
	return Cell{name, nil, content}
}

// NewKeyedCell constructs a multiplicity cell with given name, instance key
// and content.
func NewKeyedCell(name string, key Term, content Term) Cell {
	return Cell{name, key, content}
}

// Cmp compares two cells, first by name, then key, then content.
func (p Cell) Cmp(o Cell) int {
	if c := strings.Compare(p.Name, o.Name); c != 0 {
		return c
	} else if c := cmpOptional(p.Key, o.Key); c != 0 {
		return c
	}
	//
	return p.Content.Cmp(o.Content)
}

func (p Cell) String() string {
	var builder strings.Builder
	//
	builder.WriteString("(")
	builder.WriteString(p.Name)
	//
	if p.Key != nil {
		builder.WriteString(" (#key ")
		builder.WriteString(p.Key.String())
		builder.WriteString(")")
	}
	// Render sequence contents inline, anything else as a single element.
	if seq, ok := p.Content.(*Seq); ok {
		for _, item := range seq.Items {
			builder.WriteString(" ")
			builder.WriteString(item.String())
		}
	} else {
		builder.WriteString(" ")
		builder.WriteString(p.Content.String())
	}
	//
	builder.WriteString(")")
	//
	return builder.String()
}

// Configuration is the full, ordered collection of cells representing one
// program state at one point in execution.  A configuration may be concrete
// (all contents fully determined) or symbolic (containing free variables).
// Configurations are immutable; advancing a step produces a new configuration.
type Configuration struct {
	cells []Cell
}

// NewConfiguration constructs a configuration from an ordered collection of
// cells.  Duplicate singleton cells are rejected.
func NewConfiguration(cells ...Cell) Configuration {
	for i := range cells {
		for j := i + 1; j < len(cells); j++ {
			if cells[i].Name == cells[j].Name && cells[i].Key == nil && cells[j].Key == nil {
				panic(fmt.Sprintf("duplicate singleton cell %s", cells[i].Name))
			}
		}
	}
	//
	return Configuration{cells}
}

// Cells returns the cells of this configuration, in order.
func (p Configuration) Cells() []Cell {
	return p.cells
}

// Cell returns the (first) cell with a given name, if any.
func (p Configuration) Cell(name string) (Cell, bool) {
	for _, c := range p.cells {
		if c.Name == name {
			return c, true
		}
	}
	//
	return Cell{}, false
}

// CellsNamed returns all cells with a given name (more than one is possible
// for multiplicity cells).
func (p Configuration) CellsNamed(name string) []Cell {
	var cells []Cell
	//
	for _, c := range p.cells {
		if c.Name == name {
			cells = append(cells, c)
		}
	}
	//
	return cells
}

// Has checks whether a cell with a given name exists.
func (p Configuration) Has(name string) bool {
	_, ok := p.Cell(name)
	return ok
}

// WithCell returns a new configuration in which the cell matching the given
// cell's name (and key) has been replaced, or the cell appended if no such
// cell exists.  The receiving configuration is unchanged.
func (p Configuration) WithCell(cell Cell) Configuration {
	ncells := make([]Cell, len(p.cells))
	copy(ncells, p.cells)
	//
	for i, c := range ncells {
		if c.Name == cell.Name && cmpOptional(c.Key, cell.Key) == 0 {
			ncells[i] = cell
			return Configuration{ncells}
		}
	}
	//
	return Configuration{append(ncells, cell)}
}

// Substitute applies a given substitution to every cell, returning the
// resulting configuration.
func (p Configuration) Substitute(sub Substitution) Configuration {
	ncells := make([]Cell, len(p.cells))
	//
	for i, c := range p.cells {
		var nkey Term
		//
		if c.Key != nil {
			nkey = c.Key.Substitute(sub)
		}
		//
		ncells[i] = Cell{c.Name, nkey, c.Content.Substitute(sub)}
	}
	//
	return Configuration{ncells}
}

// Vars appends the names of all variables occurring in this configuration to a
// given set.
func (p Configuration) Vars(vars map[string]bool) {
	for _, c := range p.cells {
		if c.Key != nil {
			c.Key.Vars(vars)
		}
		//
		c.Content.Vars(vars)
	}
}

// Cmp compares two configurations cell-wise.
func (p Configuration) Cmp(o Configuration) int {
	if len(p.cells) != len(o.cells) {
		return len(p.cells) - len(o.cells)
	}
	//
	for i := range p.cells {
		if c := p.cells[i].Cmp(o.cells[i]); c != 0 {
			return c
		}
	}
	//
	return 0
}

// EqualsConfig checks whether two configurations are structurally identical.
func (p Configuration) EqualsConfig(o Configuration) bool {
	return p.Cmp(o) == 0
}

func (p Configuration) String() string {
	var builder strings.Builder
	//
	builder.WriteString("(config")
	//
	for _, c := range p.cells {
		builder.WriteString(" ")
		builder.WriteString(c.String())
	}
	//
	builder.WriteString(")")
	//
	return builder.String()
}

// MatchConfig attempts to match a configuration pattern against a target
// configuration, extending a given substitution.  Every cell mentioned in the
// pattern must match the corresponding target cell (with shared variables
// binding consistently across cells); cells not mentioned are implicitly
// unconstrained.  Multiplicity cells are resolved by key, backtracking over
// candidate instances where the key is not yet ground.
func MatchConfig(pattern Configuration, target Configuration, sub Substitution) bool {
	return matchCells(pattern.cells, target, sub)
}

func matchCells(pattern []Cell, target Configuration, sub Substitution) bool {
	if len(pattern) == 0 {
		return true
	}
	//
	first := pattern[0]
	//
	for _, candidate := range target.CellsNamed(first.Name) {
		attempt := sub.Clone()
		//
		if !matchKey(first.Key, candidate.Key, attempt) {
			continue
		}
		//
		if Match(first.Content, candidate.Content, attempt) && matchCells(pattern[1:], target, attempt) {
			sub.Overwrite(attempt)
			return true
		}
	}
	//
	return false
}

func matchKey(pattern Term, key Term, sub Substitution) bool {
	switch {
	case pattern == nil && key == nil:
		return true
	case pattern == nil || key == nil:
		return false
	default:
		return Match(pattern, key, sub)
	}
}
