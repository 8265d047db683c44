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
	"math/big"
	"slices"
	"sort"
	"strings"
)

// ByteEntry is a single address/value binding within a byte-map.
type ByteEntry struct {
	Addr  uint64
	Value byte
}

// Bytes represents a concrete sparse byte-map from non-negative addresses to
// byte values, where an absent address implies the value 0.  Entries are held
// sorted by address and zero-valued entries are never stored, giving a
// canonical representation: two byte-maps denote the same memory iff they are
// structurally equal.  Symbolic memories are represented elsewhere as
// variables or #setRange application chains over an underlying byte-map.
type Bytes struct {
	entries []ByteEntry
}

var _ Term = (*Bytes)(nil)

// NewBytes constructs a byte-map from zero or more entries.  Zero-valued
// entries are dropped and duplicate addresses are rejected.
func NewBytes(entries ...ByteEntry) *Bytes {
	nentries := make([]ByteEntry, 0, len(entries))
	//
	for _, e := range entries {
		if e.Value != 0 {
			nentries = append(nentries, e)
		}
	}
	//
	slices.SortFunc(nentries, func(a, b ByteEntry) int {
		switch {
		case a.Addr < b.Addr:
			return -1
		case a.Addr > b.Addr:
			return 1
		default:
			return 0
		}
	})
	//
	for i := 1; i < len(nentries); i++ {
		if nentries[i].Addr == nentries[i-1].Addr {
			panic(fmt.Sprintf("duplicate byte-map address %d", nentries[i].Addr))
		}
	}
	//
	return &Bytes{nentries}
}

// Entries returns the (sorted, non-zero) entries of this byte-map.
func (p *Bytes) Entries() []ByteEntry {
	return p.entries
}

// Get returns the byte stored at a given address, with absent addresses
// reading as 0.
func (p *Bytes) Get(addr uint64) byte {
	i := sort.Search(len(p.entries), func(i int) bool {
		return p.entries[i].Addr >= addr
	})
	//
	if i < len(p.entries) && p.entries[i].Addr == addr {
		return p.entries[i].Value
	}
	//
	return 0
}

// Set returns a new byte-map in which a given address holds a given value.
// Storing 0 removes the entry, preserving canonical form.
func (p *Bytes) Set(addr uint64, value byte) *Bytes {
	nentries := make([]ByteEntry, 0, len(p.entries)+1)
	//
	for _, e := range p.entries {
		if e.Addr != addr {
			nentries = append(nentries, e)
		}
	}
	//
	if value != 0 {
		nentries = append(nentries, ByteEntry{addr, value})
	}
	//
	return NewBytes(nentries...)
}

// GetRange reads width bytes starting at a given address, assembling them
// little-endian into an unsigned integer.
func (p *Bytes) GetRange(addr uint64, width uint) *big.Int {
	var (
		value big.Int
		tmp   big.Int
	)
	//
	for i := uint(0); i < width; i++ {
		tmp.SetUint64(uint64(p.Get(addr + uint64(i))))
		tmp.Lsh(&tmp, 8*i)
		value.Or(&value, &tmp)
	}
	//
	return &value
}

// SetRange writes the low width bytes of a given unsigned integer starting at
// a given address, little-endian, returning the updated byte-map.
func (p *Bytes) SetRange(addr uint64, value *big.Int, width uint) *Bytes {
	var (
		next = p
		tmp  big.Int
	)
	//
	for i := uint(0); i < width; i++ {
		tmp.Rsh(value, 8*i)
		tmp.And(&tmp, big.NewInt(255))
		next = next.Set(addr+uint64(i), byte(tmp.Uint64()))
	}
	//
	return next
}

// Cmp implementation for the Term interface.
func (p *Bytes) Cmp(o Term) int {
	q, ok := o.(*Bytes)
	//
	if !ok {
		return kindOf(p) - kindOf(o)
	} else if len(p.entries) != len(q.entries) {
		return len(p.entries) - len(q.entries)
	}
	//
	for i := range p.entries {
		l, r := p.entries[i], q.entries[i]
		//
		switch {
		case l.Addr < r.Addr:
			return -1
		case l.Addr > r.Addr:
			return 1
		case l.Value != r.Value:
			return int(l.Value) - int(r.Value)
		}
	}
	//
	return 0
}

// Substitute implementation for the Term interface.  Byte-maps are concrete,
// hence substitution is the identity.
func (p *Bytes) Substitute(sub Substitution) Term {
	return p
}

// Vars implementation for the Term interface.
func (p *Bytes) Vars(vars map[string]bool) {}

func (p *Bytes) String() string {
	var builder strings.Builder
	//
	builder.WriteString("(#bytes")
	//
	for _, e := range p.entries {
		builder.WriteString(fmt.Sprintf(" (%d %d)", e.Addr, e.Value))
	}
	//
	builder.WriteString(")")
	//
	return builder.String()
}
