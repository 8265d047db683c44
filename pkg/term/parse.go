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
	"strings"
	"unicode"

	"github.com/consensys/go-kestrel/pkg/sexp"
)

// Concrete syntax for terms is S-expressions under the following lexical
// conventions: a symbol beginning with an uppercase letter is a variable (or a
// frame variable, with a "..." suffix); "_" is a wildcard; integer tokens
// (decimal or 0x-prefixed hexadecimal, possibly negative) are literals; any
// other symbol is a nullary constructor.  Lists apply their head symbol to the
// remaining elements, with the reserved heads #seq, #map and #bytes
// constructing sequences, maps and byte-maps respectively.

// ParseTerm parses a given string into a term, or returns an error if the
// string is malformed.
func ParseTerm(input string) (Term, error) {
	s, err := sexp.Parse(input)
	//
	if err != nil {
		return nil, err
	}
	//
	return FromSExp(s)
}

// MustParseTerm parses a given string into a term, panicking on malformed
// input.  This is intended for statically known inputs (e.g. in tests).
func MustParseTerm(input string) Term {
	t, err := ParseTerm(input)
	//
	if err != nil {
		panic(err)
	}
	//
	return t
}

// ParseConfig parses a given string into a configuration.  The expected shape
// is "(config (cell item...) ...)", where each cell's items form its content
// sequence and an optional "(#key k)" marker after the cell name gives the
// instance key of a multiplicity cell.
func ParseConfig(input string) (Configuration, error) {
	s, err := sexp.Parse(input)
	//
	if err != nil {
		return Configuration{}, err
	}
	//
	return ConfigFromSExp(s)
}

// MustParseConfig parses a given string into a configuration, panicking on
// malformed input.
func MustParseConfig(input string) Configuration {
	c, err := ParseConfig(input)
	//
	if err != nil {
		panic(err)
	}
	//
	return c
}

// FromSExp translates a given S-expression into a term.
func FromSExp(s sexp.SExp) (Term, error) {
	switch e := s.(type) {
	case *sexp.Symbol:
		return symbolToTerm(e.Value)
	case *sexp.List:
		return listToTerm(e)
	default:
		return nil, fmt.Errorf("unknown S-expression %s", s.String())
	}
}

// ConfigFromSExp translates a given S-expression into a configuration.
func ConfigFromSExp(s sexp.SExp) (Configuration, error) {
	list, ok := s.(*sexp.List)
	//
	if !ok || !list.MatchSymbols(1, "config") {
		return Configuration{}, fmt.Errorf("malformed configuration %s", s.String())
	}
	//
	cells := make([]Cell, 0, list.Len()-1)
	//
	for i := 1; i < list.Len(); i++ {
		cell, err := cellFromSExp(list.Get(i))
		//
		if err != nil {
			return Configuration{}, err
		}
		//
		cells = append(cells, cell)
	}
	//
	return NewConfiguration(cells...), nil
}

func cellFromSExp(s sexp.SExp) (Cell, error) {
	list, ok := s.(*sexp.List)
	//
	if !ok || list.Len() == 0 || !list.Get(0).IsSymbol() {
		return Cell{}, fmt.Errorf("malformed cell %s", s.String())
	}
	//
	var (
		name  = list.Get(0).(*sexp.Symbol).Value
		key   Term
		start = 1
	)
	// Check for a multiplicity key marker.
	if list.Len() > 1 {
		if marker, ok := list.Get(1).(*sexp.List); ok && marker.MatchSymbols(2, "#key") {
			k, err := FromSExp(marker.Get(1))
			//
			if err != nil {
				return Cell{}, err
			}
			//
			key = k
			start = 2
		}
	}
	//
	items := make([]Term, 0, list.Len()-start)
	//
	for i := start; i < list.Len(); i++ {
		item, err := FromSExp(list.Get(i))
		//
		if err != nil {
			return Cell{}, err
		}
		//
		items = append(items, item)
	}
	//
	return Cell{name, key, NewSeq(items...)}, nil
}

func symbolToTerm(value string) (Term, error) {
	if value == "" {
		return nil, fmt.Errorf("empty symbol")
	} else if value == "_" {
		return NewWildcard(), nil
	}
	// Check for integer literal
	if isNumeric(value) {
		var num big.Int
		//
		if _, ok := num.SetString(value, 0); !ok {
			return nil, fmt.Errorf("malformed number %q", value)
		}
		//
		return &Int{num}, nil
	}
	// Check for variable / frame
	if unicode.IsUpper(rune(value[0])) {
		if name, ok := strings.CutSuffix(value, "..."); ok {
			return NewFrame(name), nil
		}
		//
		return NewVar(value), nil
	}
	// Otherwise, a nullary constructor.
	return NewApply(value), nil
}

func listToTerm(list *sexp.List) (Term, error) {
	if list.Len() == 0 || !list.Get(0).IsSymbol() {
		return nil, fmt.Errorf("malformed application %s", list.String())
	}
	//
	head := list.Get(0).(*sexp.Symbol).Value
	//
	switch head {
	case "#seq":
		items, err := elementsToTerms(list, 1)
		//
		if err != nil {
			return nil, err
		}
		//
		return NewSeq(items...), nil
	case "#map":
		return listToMap(list)
	case "#bytes":
		return listToBytes(list)
	default:
		args, err := elementsToTerms(list, 1)
		//
		if err != nil {
			return nil, err
		}
		//
		return NewApply(head, args...), nil
	}
}

func listToMap(list *sexp.List) (Term, error) {
	var (
		entries []MapEntry
		rest    Term
	)
	//
	for i := 1; i < list.Len(); i++ {
		// A trailing non-list element gives the rest.
		if sym, ok := list.Get(i).(*sexp.Symbol); ok {
			if i+1 != list.Len() {
				return nil, fmt.Errorf("misplaced map rest %q", sym.Value)
			}
			//
			r, err := symbolToTerm(sym.Value)
			//
			if err != nil {
				return nil, err
			}
			//
			rest = r
			//
			break
		}
		//
		pair, ok := list.Get(i).(*sexp.List)
		//
		if !ok || pair.Len() != 2 {
			return nil, fmt.Errorf("malformed map entry %s", list.Get(i).String())
		}
		//
		key, err := FromSExp(pair.Get(0))
		//
		if err != nil {
			return nil, err
		}
		//
		value, err := FromSExp(pair.Get(1))
		//
		if err != nil {
			return nil, err
		}
		//
		entries = append(entries, MapEntry{key, value})
	}
	//
	return NewMapOf(entries, rest), nil
}

func listToBytes(list *sexp.List) (Term, error) {
	entries := make([]ByteEntry, 0, list.Len()-1)
	//
	for i := 1; i < list.Len(); i++ {
		pair, ok := list.Get(i).(*sexp.List)
		//
		if !ok || pair.Len() != 2 {
			return nil, fmt.Errorf("malformed byte-map entry %s", list.Get(i).String())
		}
		//
		addr, errA := FromSExp(pair.Get(0))
		value, errV := FromSExp(pair.Get(1))
		//
		if errA != nil {
			return nil, errA
		} else if errV != nil {
			return nil, errV
		}
		//
		addrInt, okA := addr.(*Int)
		valueInt, okV := value.(*Int)
		//
		if !okA || !okV || !addrInt.Value.IsUint64() || !valueInt.Value.IsUint64() || valueInt.Value.Uint64() > 255 {
			return nil, fmt.Errorf("malformed byte-map entry %s", pair.String())
		}
		//
		entries = append(entries, ByteEntry{addrInt.Value.Uint64(), byte(valueInt.Value.Uint64())})
	}
	//
	return NewBytes(entries...), nil
}

func elementsToTerms(list *sexp.List, start int) ([]Term, error) {
	terms := make([]Term, 0, list.Len()-start)
	//
	for i := start; i < list.Len(); i++ {
		t, err := FromSExp(list.Get(i))
		//
		if err != nil {
			return nil, err
		}
		//
		terms = append(terms, t)
	}
	//
	return terms, nil
}

func isNumeric(value string) bool {
	if strings.HasPrefix(value, "-") {
		value = value[1:]
	}
	//
	return len(value) > 0 && unicode.IsDigit(rune(value[0]))
}
