/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export serializes decoded storyboards: JSON (checked against an
// embedded JSON Schema), YAML, and a PDF timeline report.
package export

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"gostoryboard/internal/storyboard"
)

// FormatVersion is written into every exported document.
const FormatVersion = 1

//go:embed storyboard.schema.json
var schemaJSON []byte

// Document is the exported shape.
type Document struct {
	Version int                    `json:"version" yaml:"version"`
	Name    string                 `json:"name,omitempty" yaml:"name,omitempty"`
	Layers  *storyboard.Storyboard `json:"layers" yaml:"layers"`
}

// NewDocument wraps sb for export. A nil sb exports as five empty layers.
func NewDocument(name string, sb *storyboard.Storyboard) Document {
	if sb == nil {
		sb = &storyboard.Storyboard{}
	}
	return Document{Version: FormatVersion, Name: name, Layers: normalized(sb)}
}

// normalized returns a copy of sb whose nil layers are empty slices, so
// they export as [] rather than null.
func normalized(sb *storyboard.Storyboard) *storyboard.Storyboard {
	out := *sb
	for _, p := range []*[]storyboard.Object{&out.Background, &out.Fail, &out.Pass, &out.Foreground, &out.Overlay} {
		if *p == nil {
			*p = []storyboard.Object{}
		}
	}
	return &out
}

// WriteJSON writes doc as indented JSON.
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// ReadJSON parses a document produced by WriteJSON.
func ReadJSON(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return doc, fmt.Errorf("decode json: %w", err)
	}
	return doc, nil
}

// WriteYAML writes doc as YAML.
func WriteYAML(w io.Writer, doc Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// Write dispatches on format ("json" or "yaml").
func Write(w io.Writer, format string, doc Document) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return WriteJSON(w, doc)
	case "yaml", "yml":
		return WriteYAML(w, doc)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// ValidateJSON checks data against the embedded storyboard schema.
func ValidateJSON(data []byte) error {
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validate: %w", err)
	}
	if res.Valid() {
		return nil
	}
	errs := make([]error, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		errs = append(errs, errors.New(e.String()))
	}
	return fmt.Errorf("document does not conform to schema: %w", errors.Join(errs...))
}
