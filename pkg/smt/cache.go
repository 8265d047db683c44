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
package smt

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/consensys/go-kestrel/pkg/logic"
)

// Cache memoises oracle answers keyed on the canonically-renamed query, so
// that alpha-equivalent queries (as arise from freshened claim variables)
// resolve without a further oracle round trip.  Timeouts are never cached,
// since a retry under a longer deadline may well succeed.  A cache is safe for
// concurrent use.
type Cache struct {
	oracle     Oracle
	mutex      sync.RWMutex
	entailment map[string]Validity
	sat        map[string]Satisfiability
}

// NewCache wraps a given oracle with memoisation.
func NewCache(oracle Oracle) *Cache {
	return &Cache{
		oracle:     oracle,
		entailment: make(map[string]Validity),
		sat:        make(map[string]Satisfiability),
	}
}

var _ Oracle = (*Cache)(nil)

// Entails implementation for the Oracle interface.
func (p *Cache) Entails(ctx context.Context, assumptions logic.Proposition, goal logic.Proposition) Validity {
	key := canonicalKey(assumptions.String() + " |- " + goal.String())
	//
	p.mutex.RLock()
	cached, ok := p.entailment[key]
	p.mutex.RUnlock()
	//
	if ok {
		return cached
	}
	//
	answer := p.oracle.Entails(ctx, assumptions, goal)
	//
	if answer != ValidTimeout {
		p.mutex.Lock()
		p.entailment[key] = answer
		p.mutex.Unlock()
	}
	//
	return answer
}

// Satisfiable implementation for the Oracle interface.
func (p *Cache) Satisfiable(ctx context.Context, constraints logic.Proposition) Satisfiability {
	key := canonicalKey(constraints.String())
	//
	p.mutex.RLock()
	cached, ok := p.sat[key]
	p.mutex.RUnlock()
	//
	if ok {
		return cached
	}
	//
	answer := p.oracle.Satisfiable(ctx, constraints)
	//
	if answer != SatTimeout {
		p.mutex.Lock()
		p.sat[key] = answer
		p.mutex.Unlock()
	}
	//
	return answer
}

// Rewrite a rendered query so that variables are numbered in order of first
// occurrence.  Variable tokens are exactly those beginning with an upper-case
// letter, per the term syntax.
func canonicalKey(rendered string) string {
	var (
		builder strings.Builder
		token   strings.Builder
		renamed = make(map[string]string)
	)
	//
	flush := func() {
		t := token.String()
		first, _ := utf8.DecodeRuneInString(t)
		//
		if t != "" && first < utf8.RuneSelf && unicode.IsUpper(first) {
			if _, ok := renamed[t]; !ok {
				renamed[t] = "?" + strconv.Itoa(len(renamed))
			}
			//
			t = renamed[t]
		}
		//
		builder.WriteString(t)
		token.Reset()
	}
	//
	for _, c := range rendered {
		switch c {
		case '(', ')', ' ':
			flush()
			builder.WriteRune(c)
		default:
			token.WriteRune(c)
		}
	}
	//
	flush()
	//
	return builder.String()
}
