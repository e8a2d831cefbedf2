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
	"strings"
)

// MaxIndent is the deepest nesting an entry may have: object, command, loop child.
const MaxIndent = 2

// FieldSeparator splits an event line into fields. Quoted fields are not
// protected, so a path containing a comma is split like any other text.
const FieldSeparator = ","

var (
	reComment = regexp.MustCompile(`^\s*//`)
	reHeader  = regexp.MustCompile(`^\[.*\]$`)
	reIndent  = regexp.MustCompile(`^[_ ]*`)
)

// Entry is one event line split into fields, with the lines nested below it.
type Entry struct {
	Fields   []string
	Children []*Entry
	Line     int // 1-based source line
}

// Field returns the i-th field or "" when the line is shorter.
func (e *Entry) Field(i int) string {
	if e == nil || i < 0 || i >= len(e.Fields) {
		return ""
	}
	return e.Fields[i]
}

// Document is the parsed form of one input text.
type Document struct {
	Entries   []*Entry
	Variables VariableTable
}

// ParseOptions controls how a document is parsed.
type ParseOptions struct {
	Doc Doc
	// AllowVariables lets the document declare a [Variables] section.
	AllowVariables bool
	// Variables, when non-empty, is applied to every event line before it is split.
	Variables VariableTable
}

type section int

const (
	sectionNone section = iota
	sectionVariables
	sectionEvents
)

// ParseEntries turns text into a forest of entries taken from its [Events]
// section, and collects the [Variables] section when allowed. Lines outside
// those sections are ignored. Problems are reported, never fatal.
func ParseEntries(text string, opts ParseOptions) (Document, Diagnostics) {
	var diags Diagnostics
	rep := &reporter{doc: opts.Doc, diags: &diags}
	doc := Document{}

	sec := sectionNone
	// stack[d] is the most recent entry opened at depth d.
	stack := make([]*Entry, 0, MaxIndent+1)

	for i, raw := range strings.Split(text, "\n") {
		lineNo := i + 1
		line := strings.TrimSuffix(raw, "\r")
		lr := rep.at(lineNo)

		if reComment.MatchString(line) {
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		if trimmed := strings.TrimRight(line, " \t"); reHeader.MatchString(trimmed) {
			stack = stack[:0]
			switch strings.ToLower(trimmed) {
			case "[variables]":
				if opts.AllowVariables {
					sec = sectionVariables
				} else {
					lr.warnf(KindIllegalVariablesSection, "variables section not allowed in %s document", opts.Doc)
					sec = sectionNone
				}
			case "[events]":
				sec = sectionEvents
			default:
				sec = sectionNone
			}
			continue
		}

		switch sec {
		case sectionVariables:
			m := reVariableDef.FindStringSubmatch(strings.TrimSpace(line))
			if m == nil {
				lr.warnf(KindMalformedVariable, "malformed variable definition %q", line)
				continue
			}
			doc.Variables.define(m[1], m[2])
		case sectionEvents:
			indent := len(reIndent.FindString(line))
			rest := line[indent:]

			depth := indent
			if depth > MaxIndent || depth > len(stack) {
				lr.warnf(KindIllegalIndent, "unexpected indent of %d", indent)
				depth = min(depth, MaxIndent, len(stack))
			}

			if opts.Variables.Len() > 0 {
				rest, _ = opts.Variables.substitute(rest, lr)
			}

			e := &Entry{Fields: strings.Split(rest, FieldSeparator), Line: lineNo}
			stack = append(stack[:depth], e)
			if depth == 0 {
				doc.Entries = append(doc.Entries, e)
			} else {
				parent := stack[depth-1]
				parent.Children = append(parent.Children, e)
			}
		}
	}
	return doc, diags
}
