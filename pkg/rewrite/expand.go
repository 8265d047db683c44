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
package rewrite

import (
	"github.com/consensys/go-kestrel/pkg/rule"
	"github.com/consensys/go-kestrel/pkg/term"
)

// ControlCell names the cell over which strict evaluation order is
// administered.  Its content is a sequence whose head is the current redex.
const ControlCell = "k"

// Reserved operator marking a suspended evaluation context.  A freezer's first
// argument records the suspended operator (as a nullary application) and the
// remainder record its arguments, with the extracted argument replaced by a
// hole.  Plugging a value back into the hole restores the application.
const freezerOp = "#freezer"

// Reserved operator marking the extracted position within a freezer.
const holeOp = "#hole"

// Expander administers evaluation order over the control cell, per the strict
// argument declarations of an activation.  Heating extracts the first
// non-value strict argument of the head instruction, scheduling it before a
// freezer recording the surrounding context; cooling plugs a computed value
// back into the following freezer.  Values are never heated, so expansion
// always reaches a fixed point.
type Expander struct {
	activation *rule.Activation
}

// NewExpander constructs an expander over a given activation.
func NewExpander(activation *rule.Activation) *Expander {
	return &Expander{activation}
}

// Expand applies heating and cooling to the control cell of a configuration
// until neither applies, returning the resulting configuration.  A
// configuration without a control cell (or whose control content is not a
// sequence) is returned unchanged.
func (p *Expander) Expand(config term.Configuration) term.Configuration {
	cell, ok := config.Cell(ControlCell)
	//
	if !ok {
		return config
	}
	//
	seq, ok := cell.Content.(*term.Seq)
	//
	if !ok {
		return config
	}
	//
	for {
		nseq, changed := p.step(seq)
		//
		if !changed {
			break
		}
		//
		seq = nseq
	}
	//
	if term.Equal(seq, cell.Content) {
		return config
	}
	//
	return config.WithCell(term.Cell{Name: cell.Name, Key: cell.Key, Content: seq})
}

// Apply a single heating or cooling step, reporting whether anything changed.
func (p *Expander) step(seq *term.Seq) (*term.Seq, bool) {
	if len(seq.Items) == 0 {
		return seq, false
	}
	//
	head := seq.Items[0]
	// Cooling takes precedence: a value at the head plugs the freezer behind
	// it (if any).
	if IsValue(p.activation, head) && len(seq.Items) > 1 {
		if frozen, ok := asFreezer(seq.Items[1]); ok {
			nitems := make([]term.Term, 0, len(seq.Items)-1)
			nitems = append(nitems, plug(frozen, head))
			nitems = append(nitems, seq.Items[2:]...)
			//
			return term.NewSeq(nitems...), true
		}
	}
	//
	if app, ok := head.(*term.Apply); ok && app.Op != freezerOp {
		if positions, strict := p.activation.StrictPositions(app.Op); strict {
			if arg, frozen, ok := p.heat(app, positions); ok {
				nitems := make([]term.Term, 0, len(seq.Items)+1)
				nitems = append(nitems, arg, frozen)
				nitems = append(nitems, seq.Items[1:]...)
				//
				return term.NewSeq(nitems...), true
			}
		}
	}
	//
	return seq, false
}

// Extract the first non-value strict argument of an application, yielding the
// argument and the corresponding freezer.  A nil position list means all
// arguments are strict, left to right.
func (p *Expander) heat(app *term.Apply, positions []uint) (term.Term, term.Term, bool) {
	for i, arg := range app.Args {
		if !strictAt(positions, uint(i)) || IsValue(p.activation, arg) {
			continue
		}
		//
		nargs := make([]term.Term, len(app.Args)+1)
		nargs[0] = term.NewApply(app.Op)
		//
		for j, a := range app.Args {
			if j == i {
				nargs[j+1] = term.NewApply(holeOp)
			} else {
				nargs[j+1] = a
			}
		}
		//
		return arg, term.NewApply(freezerOp, nargs...), true
	}
	//
	return nil, nil, false
}

func strictAt(positions []uint, i uint) bool {
	if positions == nil {
		return true
	}
	//
	for _, p := range positions {
		if p == i {
			return true
		}
	}
	//
	return false
}

func asFreezer(t term.Term) (*term.Apply, bool) {
	app, ok := t.(*term.Apply)
	//
	if !ok || app.Op != freezerOp || len(app.Args) == 0 {
		return nil, false
	}
	//
	return app, true
}

// Plug a value into the hole of a freezer, restoring the suspended
// application.
func plug(frozen *term.Apply, value term.Term) term.Term {
	var (
		op    = frozen.Args[0].(*term.Apply).Op
		nargs = make([]term.Term, len(frozen.Args)-1)
	)
	//
	for i, arg := range frozen.Args[1:] {
		if app, ok := arg.(*term.Apply); ok && app.Op == holeOp {
			nargs[i] = value
		} else {
			nargs[i] = arg
		}
	}
	//
	return term.NewApply(op, nargs...)
}
