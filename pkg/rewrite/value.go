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

// IsValue determines whether a given term is a value with respect to an
// activation, meaning strict evaluation never descends into it.  Integers and
// byte-maps are always values; an application is a value exactly when its
// operator is a declared value constructor, regardless of its arguments
// (hence e.g. a constant wrapping a symbolic operand is still a value).
func IsValue(activation *rule.Activation, t term.Term) bool {
	switch e := t.(type) {
	case *term.Int, *term.Bytes:
		return true
	case *term.Apply:
		return activation != nil && activation.IsValueConstructor(e.Op)
	default:
		return false
	}
}
