/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storyboard

import (
	"regexp"
	"sort"
)

// VariableMarker starts every variable name and reference.
const VariableMarker = '$'

var (
	markerPattern = regexp.QuoteMeta(string(VariableMarker))
	reVariableDef = regexp.MustCompile(`^(` + markerPattern + `[^=]*)=(.*)$`)
	reVariableRef = regexp.MustCompile(markerPattern + `[^,]*`)
)

// VariableTable maps a variable name (marker included) to its raw replacement
// text. It is filled while the base document is parsed and read-only after.
type VariableTable struct {
	vals map[string]string
}

func (vt *VariableTable) define(name, value string) {
	if vt.vals == nil {
		vt.vals = make(map[string]string)
	}
	vt.vals[name] = value
}

// Lookup returns the value bound to name.
func (vt VariableTable) Lookup(name string) (string, bool) {
	v, ok := vt.vals[name]
	return v, ok
}

// Len is the number of bound names.
func (vt VariableTable) Len() int { return len(vt.vals) }

// Names returns the bound names in sorted order.
func (vt VariableTable) Names() []string {
	out := make([]string, 0, len(vt.vals))
	for k := range vt.vals {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Substitute replaces every reference in text with its bound value. A
// reference runs from the marker to the next comma or the end of the text.
// Replacement text is not scanned again, so a value that itself contains a
// reference stays as written. Unknown names are left untouched.
func (vt VariableTable) Substitute(text string) string {
	out, _ := vt.substitute(text, nil)
	return out
}

func (vt VariableTable) substitute(text string, rep *reporter) (string, int) {
	if len(vt.vals) == 0 {
		return text, 0
	}
	unresolved := 0
	out := reVariableRef.ReplaceAllStringFunc(text, func(ref string) string {
		if v, ok := vt.vals[ref]; ok {
			return v
		}
		unresolved++
		rep.warnf(KindUnresolvedVariable, "unresolved variable %s", ref)
		return ref
	})
	return out, unresolved
}
