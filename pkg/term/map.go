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

// MapEntry is a single key/value binding within a Map.
type MapEntry struct {
	Key   Term
	Value Term
}

// Map represents a mapping from (integer) keys to values, such as the locals
// of a function frame.  Matching against maps is order insensitive: maps are
// compared by key set rather than by sequence.  A map pattern may carry a
// "rest" variable which binds all entries not explicitly mentioned.
type Map struct {
	// Entries, sorted by key whenever keys are concrete.
	Entries []MapEntry
	// Rest is either nil (map must match exactly), a variable (binds the
	// remaining entries as a map) or a wildcard (remaining entries ignored).
	Rest Term
}

var _ Term = (*Map)(nil)

// NewMap constructs a map from zero or more entries, with no rest.
func NewMap(entries ...MapEntry) *Map {
	p := &Map{entries, nil}
	p.normalise()
	//
	return p
}

// NewMapOf constructs a map from given entries and rest term.
func NewMapOf(entries []MapEntry, rest Term) *Map {
	p := &Map{entries, rest}
	p.normalise()
	//
	return p
}

// Lookup returns the value bound to a given key, if any.
func (p *Map) Lookup(key Term) (Term, bool) {
	for _, e := range p.Entries {
		if Equal(e.Key, key) {
			return e.Value, true
		}
	}
	//
	return nil, false
}

// Insert returns a new map in which a given key is bound to a given value,
// replacing any existing binding.
func (p *Map) Insert(key Term, value Term) *Map {
	nentries := make([]MapEntry, 0, len(p.Entries)+1)
	replaced := false
	//
	for _, e := range p.Entries {
		if Equal(e.Key, key) {
			nentries = append(nentries, MapEntry{key, value})
			replaced = true
		} else {
			nentries = append(nentries, e)
		}
	}
	//
	if !replaced {
		nentries = append(nentries, MapEntry{key, value})
	}
	//
	return NewMapOf(nentries, p.Rest)
}

// Cmp implementation for the Term interface.
func (p *Map) Cmp(o Term) int {
	q, ok := o.(*Map)
	//
	if !ok {
		return kindOf(p) - kindOf(o)
	} else if len(p.Entries) != len(q.Entries) {
		return len(p.Entries) - len(q.Entries)
	}
	//
	for i := range p.Entries {
		if c := p.Entries[i].Key.Cmp(q.Entries[i].Key); c != 0 {
			return c
		} else if c := p.Entries[i].Value.Cmp(q.Entries[i].Value); c != 0 {
			return c
		}
	}
	//
	return cmpOptional(p.Rest, q.Rest)
}

// Substitute implementation for the Term interface.  If the rest variable is
// bound to a map, its entries are folded into this map.
func (p *Map) Substitute(sub Substitution) Term {
	var (
		nentries = make([]MapEntry, len(p.Entries))
		nrest    = p.Rest
	)
	//
	for i, e := range p.Entries {
		nentries[i] = MapEntry{e.Key.Substitute(sub), e.Value.Substitute(sub)}
	}
	//
	if v, ok := p.Rest.(*Var); ok {
		if t, has := sub.Get(v.Name); has {
			if m, isMap := t.(*Map); isMap {
				nentries = append(nentries, m.Entries...)
				nrest = m.Rest
			} else {
				nrest = t
			}
		}
	}
	//
	return NewMapOf(nentries, nrest)
}

// Vars implementation for the Term interface.
func (p *Map) Vars(vars map[string]bool) {
	for _, e := range p.Entries {
		e.Key.Vars(vars)
		e.Value.Vars(vars)
	}
	//
	if p.Rest != nil {
		p.Rest.Vars(vars)
	}
}

func (p *Map) String() string {
	var builder strings.Builder
	//
	builder.WriteString("(#map")
	//
	for _, e := range p.Entries {
		builder.WriteString(" (")
		builder.WriteString(e.Key.String())
		builder.WriteString(" ")
		builder.WriteString(e.Value.String())
		builder.WriteString(")")
	}
	//
	if p.Rest != nil {
		builder.WriteString(" ")
		builder.WriteString(p.Rest.String())
	}
	//
	builder.WriteString(")")
	//
	return builder.String()
}

// Sort concrete entries by key so that structurally equal maps compare equal
// regardless of the order entries were written in.
func (p *Map) normalise() {
	slices.SortStableFunc(p.Entries, func(a, b MapEntry) int {
		return a.Key.Cmp(b.Key)
	})
}

func cmpOptional(lhs Term, rhs Term) int {
	switch {
	case lhs == nil && rhs == nil:
		return 0
	case lhs == nil:
		return -1
	case rhs == nil:
		return 1
	default:
		return lhs.Cmp(rhs)
	}
}
