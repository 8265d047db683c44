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

// Match attempts to match a given pattern against a given target term,
// extending a given substitution with any new bindings.  Matching is
// deterministic and failure is an outcome rather than an error: a false return
// simply means the pattern does not fit.  On failure the substitution may have
// been partially extended, hence callers wishing to try several patterns
// should hand each attempt a fresh (or cloned) substitution.
//
// The target is expected to be free of pattern variables; matching is
// one-sided rather than full unification.
func Match(pattern Term, target Term, sub Substitution) bool {
	switch p := pattern.(type) {
	case *Wildcard:
		return true
	case *Var:
		return sub.Bind(p.Name, target)
	case *Frame:
		// Frames only make sense within an enclosing sequence.
		return false
	case *Int:
		return Equal(p, target)
	case *Apply:
		q, ok := target.(*Apply)
		//
		if !ok || p.Op != q.Op || len(p.Args) != len(q.Args) {
			return false
		}
		//
		for i := range p.Args {
			if !Match(p.Args[i], q.Args[i], sub) {
				return false
			}
		}
		//
		return true
	case *Seq:
		q, ok := target.(*Seq)
		//
		if !ok {
			return false
		}
		//
		return matchSeq(p.Items, q.Items, sub)
	case *Map:
		q, ok := target.(*Map)
		//
		if !ok || q.Rest != nil {
			return false
		}
		//
		return matchMap(p, q, sub)
	case *Bytes:
		return Equal(p, target)
	default:
		return false
	}
}

// Match a sequence pattern against a sequence of target items.  At most one
// frame variable is permitted per sequence level, hence the split between
// prefix, frame and suffix is uniquely determined by the neighbouring
// fixed-length elements.
func matchSeq(pattern []Term, target []Term, sub Substitution) bool {
	frame := -1
	// Locate the frame (if any)
	for i, item := range pattern {
		if _, ok := item.(*Frame); ok {
			if frame >= 0 {
				// Ambiguous pattern, no unique split exists.
				return false
			}
			//
			frame = i
		}
	}
	// Case 1: no frame, hence lengths must agree exactly.
	if frame < 0 {
		if len(pattern) != len(target) {
			return false
		}
		//
		for i := range pattern {
			if !Match(pattern[i], target[i], sub) {
				return false
			}
		}
		//
		return true
	}
	// Case 2: unique split around the frame.
	var (
		prefix = pattern[:frame]
		suffix = pattern[frame+1:]
		middle = len(target) - len(suffix)
	)
	//
	if len(prefix)+len(suffix) > len(target) {
		return false
	}
	//
	for i := range prefix {
		if !Match(prefix[i], target[i], sub) {
			return false
		}
	}
	//
	for i := range suffix {
		if !Match(suffix[i], target[middle+i], sub) {
			return false
		}
	}
	//
	return sub.BindFrame(pattern[frame].(*Frame).Name, target[len(prefix):middle])
}

// Match a map pattern against a concrete map.  Entries whose keys are ground
// (under the current substitution) are resolved by direct lookup; entries with
// unbound variable keys are resolved by backtracking over the remaining target
// entries in key order, taking the first consistent assignment.  Finally, the
// rest term (if any) accounts for all unmatched target entries.
func matchMap(pattern *Map, target *Map, sub Substitution) bool {
	var (
		deferred []MapEntry
		used     = make([]bool, len(target.Entries))
	)
	// Phase 1: ground keys resolved by lookup.
	for _, e := range pattern.Entries {
		key := e.Key.Substitute(sub)
		//
		if !IsGround(key) {
			deferred = append(deferred, MapEntry{key, e.Value})
			continue
		}
		//
		index := -1
		//
		for i, f := range target.Entries {
			if !used[i] && Equal(key, f.Key) {
				index = i
				break
			}
		}
		//
		if index < 0 || !Match(e.Value, target.Entries[index].Value, sub) {
			return false
		}
		//
		used[index] = true
	}
	// Phase 2: variable keys resolved by backtracking.
	if !matchMapDeferred(deferred, target.Entries, used, sub) {
		return false
	}
	// Phase 3: account for the remainder.
	return matchMapRest(pattern.Rest, target.Entries, used, sub)
}

func matchMapDeferred(deferred []MapEntry, entries []MapEntry, used []bool, sub Substitution) bool {
	if len(deferred) == 0 {
		return true
	}
	//
	first := deferred[0]
	//
	for i, f := range entries {
		if used[i] {
			continue
		}
		// Attempt against a cloned substitution so failure leaves no residue.
		attempt := sub.Clone()
		//
		if Match(first.Key, f.Key, attempt) && Match(first.Value, f.Value, attempt) {
			used[i] = true
			//
			if matchMapDeferred(deferred[1:], entries, used, attempt) {
				sub.Overwrite(attempt)
				return true
			}
			//
			used[i] = false
		}
	}
	//
	return false
}

func matchMapRest(rest Term, entries []MapEntry, used []bool, sub Substitution) bool {
	remainder := make([]MapEntry, 0, len(entries))
	//
	for i, e := range entries {
		if !used[i] {
			remainder = append(remainder, e)
		}
	}
	//
	switch r := rest.(type) {
	case nil:
		return len(remainder) == 0
	case *Wildcard:
		return true
	case *Var:
		return sub.Bind(r.Name, NewMapOf(remainder, nil))
	default:
		return false
	}
}

// IsGround checks whether a given term contains no variables (plain or frame)
// and, hence, denotes a single concrete term.
func IsGround(t Term) bool {
	vars := make(map[string]bool)
	t.Vars(vars)
	//
	return len(vars) == 0
}
