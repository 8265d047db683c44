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
	"slices"
	"strings"
)

// Substitution maps variable names to terms and frame variable names to
// sequence slices.  In any given substitution a name is bound at most once;
// attempting to rebind a name succeeds only when the new binding is
// structurally identical to the old (this is what enforces consistent
// cross-cell variable sharing during matching).
type Substitution struct {
	bindings map[string]Term
	frames   map[string][]Term
}

// NewSubstitution constructs a fresh, empty substitution.
func NewSubstitution() Substitution {
	return Substitution{
		bindings: make(map[string]Term),
		frames:   make(map[string][]Term),
	}
}

// Get returns the term bound to a given variable name, if any.
func (p Substitution) Get(name string) (Term, bool) {
	t, ok := p.bindings[name]
	return t, ok
}

// GetFrame returns the sequence slice bound to a given frame name, if any.
func (p Substitution) GetFrame(name string) ([]Term, bool) {
	ts, ok := p.frames[name]
	return ts, ok
}

// Bind attempts to bind a given variable name to a given term, returning false
// if the name is already bound to a structurally different term.
func (p Substitution) Bind(name string, t Term) bool {
	if old, ok := p.bindings[name]; ok {
		return Equal(old, t)
	}
	//
	p.bindings[name] = t
	//
	return true
}

// BindFrame attempts to bind a given frame name to a given sequence slice,
// returning false if the name is already bound to a different slice.
func (p Substitution) BindFrame(name string, ts []Term) bool {
	if old, ok := p.frames[name]; ok {
		if len(old) != len(ts) {
			return false
		}
		//
		for i := range old {
			if !Equal(old[i], ts[i]) {
				return false
			}
		}
		//
		return true
	}
	//
	p.frames[name] = slices.Clone(ts)
	//
	return true
}

// Clone returns a disjoint copy of this substitution, used for backtracking
// during matching.
func (p Substitution) Clone() Substitution {
	nbindings := make(map[string]Term, len(p.bindings))
	nframes := make(map[string][]Term, len(p.frames))
	//
	for k, v := range p.bindings {
		nbindings[k] = v
	}
	//
	for k, v := range p.frames {
		nframes[k] = v
	}
	//
	return Substitution{nbindings, nframes}
}

// Overwrite merges the bindings of another substitution into this one.  This
// is used to commit the result of a backtracking search, hence the entries are
// copied into the receiver's maps so the commit is visible through every copy
// sharing them.
func (p Substitution) Overwrite(o Substitution) {
	for k, v := range o.bindings {
		p.bindings[k] = v
	}
	//
	for k, v := range o.frames {
		p.frames[k] = v
	}
}

// Len returns the number of bound names (plain and frame).
func (p Substitution) Len() int {
	return len(p.bindings) + len(p.frames)
}

func (p Substitution) String() string {
	var (
		builder strings.Builder
		names   []string
	)
	//
	for name := range p.bindings {
		names = append(names, name)
	}
	//
	slices.Sort(names)
	builder.WriteString("{")
	//
	for i, name := range names {
		if i != 0 {
			builder.WriteString(", ")
		}
		//
		builder.WriteString(name)
		builder.WriteString("=")
		builder.WriteString(p.bindings[name].String())
	}
	//
	builder.WriteString("}")
	//
	return builder.String()
}
