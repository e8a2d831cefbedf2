/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storyboard

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Doc identifies which input document a diagnostic came from.
type Doc string

const (
	DocBase    Doc = "base"
	DocOverlay Doc = "overlay"
)

// Kind classifies a recoverable decode problem.
type Kind int

const (
	KindIllegalIndent Kind = iota + 1
	KindIllegalVariablesSection
	KindMalformedVariable
	KindUnresolvedVariable
	KindUnknownEasing
	KindUnknownCommand
	KindArityMismatch
	KindFieldCount
	KindUnknownLayer
	KindUnsupportedLayer
	KindUnknownOrigin
	KindUnknownObjectType
	KindEmptyLoop
	KindLoopLimit
)

var kindNames = map[Kind]string{
	KindIllegalIndent:           "illegal_indent",
	KindIllegalVariablesSection: "illegal_variables_section",
	KindMalformedVariable:       "malformed_variable",
	KindUnresolvedVariable:      "unresolved_variable",
	KindUnknownEasing:           "unknown_easing",
	KindUnknownCommand:          "unknown_command",
	KindArityMismatch:           "arity_mismatch",
	KindFieldCount:              "field_count",
	KindUnknownLayer:            "unknown_layer",
	KindUnsupportedLayer:        "unsupported_layer",
	KindUnknownOrigin:           "unknown_origin",
	KindUnknownObjectType:       "unknown_object_type",
	KindEmptyLoop:               "empty_loop",
	KindLoopLimit:               "loop_limit",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind_%d", int(k))
}

// Diagnostic is a non-fatal problem found while decoding. The offending unit
// (line, command or object) has been left out of the result.
type Diagnostic struct {
	Doc     Doc
	Line    int // 1-based; 0 when unknown
	Kind    Kind
	Message string
}

func (d Diagnostic) String() string {
	var b strings.Builder
	if d.Doc != "" {
		b.WriteString(string(d.Doc))
		b.WriteString(":")
	}
	if d.Line > 0 {
		fmt.Fprintf(&b, "%d:", d.Line)
	}
	if b.Len() > 0 {
		b.WriteString(" ")
	}
	b.WriteString(d.Message)
	return b.String()
}

// Diagnostics is the side channel of a decode call.
type Diagnostics []Diagnostic

// Err folds the diagnostics into one error, or nil if there are none.
// Callers running in strict mode treat a non-nil result as fatal.
func (ds Diagnostics) Err() error {
	if len(ds) == 0 {
		return nil
	}
	errs := make([]error, 0, len(ds))
	for _, d := range ds {
		errs = append(errs, errors.New(d.String()))
	}
	return errors.Join(errs...)
}

// Count returns how many diagnostics are of kind k.
func (ds Diagnostics) Count(k Kind) int {
	n := 0
	for _, d := range ds {
		if d.Kind == k {
			n++
		}
	}
	return n
}

// Log writes every diagnostic at WARN level.
func (ds Diagnostics) Log(l *slog.Logger) {
	for _, d := range ds {
		l.Warn(d.Message, slog.String("doc", string(d.Doc)), slog.Int("line", d.Line), slog.String("kind", d.Kind.String()))
	}
}

// reporter collects diagnostics for one document; line is updated as the
// caller moves through the input.
type reporter struct {
	doc   Doc
	line  int
	diags *Diagnostics
}

func (r *reporter) warnf(k Kind, format string, args ...any) {
	if r == nil || r.diags == nil {
		return
	}
	*r.diags = append(*r.diags, Diagnostic{Doc: r.doc, Line: r.line, Kind: k, Message: fmt.Sprintf(format, args...)})
}

// at returns a reporter pinned to line.
func (r *reporter) at(line int) *reporter {
	if r == nil {
		return nil
	}
	return &reporter{doc: r.doc, line: line, diags: r.diags}
}
