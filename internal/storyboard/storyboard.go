/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storyboard decodes storyboard scripts into a typed timeline.
//
// Input is a base document (a beatmap, which may declare [Variables]) and an
// optional overlay document whose event lines may reference those variables.
// Decoding never fails outright: malformed lines, commands and objects are
// dropped and reported as Diagnostics.
package storyboard

import (
	"errors"
	"log/slog"
	"math"
	"sort"

	applog "gostoryboard/internal/log"
)

// ErrNoStoryboard is what callers report when Load finds nothing to show.
var ErrNoStoryboard = errors.New("no storyboard")

// Storyboard groups decoded objects by layer, keeping decode order per layer.
type Storyboard struct {
	Background []Object `json:"background" yaml:"background"`
	Fail       []Object `json:"fail" yaml:"fail"`
	Pass       []Object `json:"pass" yaml:"pass"`
	Foreground []Object `json:"foreground" yaml:"foreground"`
	Overlay    []Object `json:"overlay" yaml:"overlay"`
}

// Layer returns the objects on l.
func (sb *Storyboard) Layer(l Layer) []Object {
	if sb == nil {
		return nil
	}
	if p := sb.bucket(l); p != nil {
		return *p
	}
	return nil
}

func (sb *Storyboard) bucket(l Layer) *[]Object {
	switch l {
	case LayerBackground:
		return &sb.Background
	case LayerFail:
		return &sb.Fail
	case LayerPass:
		return &sb.Pass
	case LayerForeground:
		return &sb.Foreground
	case LayerOverlay:
		return &sb.Overlay
	}
	return nil
}

// Empty reports whether no layer holds an object.
func (sb *Storyboard) Empty() bool {
	if sb == nil {
		return true
	}
	for _, l := range Layers() {
		if len(sb.Layer(l)) > 0 {
			return false
		}
	}
	return true
}

// Objects returns all objects, layer by layer.
func (sb *Storyboard) Objects() []Object {
	var out []Object
	for _, l := range Layers() {
		out = append(out, sb.Layer(l)...)
	}
	return out
}

// Stats summarizes a storyboard.
type Stats struct {
	Objects    int
	Animations int
	Commands   int
	ByLayer    map[Layer]int
	ByCommand  map[CommandType]int
	// StartTime and EndTime span every command with numeric times; both are 0 when there are none.
	StartTime float64
	EndTime   float64
}

// Stats counts objects and commands and computes the overall time span.
func (sb *Storyboard) Stats() Stats {
	st := Stats{ByLayer: map[Layer]int{}, ByCommand: map[CommandType]int{}}
	start, end := math.Inf(1), math.Inf(-1)
	for _, l := range Layers() {
		for _, o := range sb.Layer(l) {
			st.Objects++
			st.ByLayer[l]++
			if o.IsAnimation() {
				st.Animations++
			}
			for _, c := range o.Commands {
				st.Commands++
				st.ByCommand[c.Type]++
				if !math.IsNaN(c.StartTime) {
					start = math.Min(start, c.StartTime)
				}
				if !math.IsNaN(c.EndTime) {
					end = math.Max(end, c.EndTime)
				}
			}
		}
	}
	if !math.IsInf(start, 0) {
		st.StartTime = start
	}
	if !math.IsInf(end, 0) {
		st.EndTime = end
	}
	return st
}

// CommandCount is the number of commands of one type on one layer.
type CommandCount struct {
	Layer Layer
	Type  CommandType
	N     int
}

// CommandCounts tallies commands per layer and type, ordered by layer then type.
func (sb *Storyboard) CommandCounts() []CommandCount {
	var out []CommandCount
	for _, l := range Layers() {
		counts := map[CommandType]int{}
		for _, o := range sb.Layer(l) {
			for _, c := range o.Commands {
				counts[c.Type]++
			}
		}
		start := len(out)
		for typ, n := range counts {
			out = append(out, CommandCount{Layer: l, Type: typ, N: n})
		}
		sort.Slice(out[start:], func(i, j int) bool { return out[start+i].Type < out[start+j].Type })
	}
	return out
}

// Options tunes Load.
type Options struct {
	// DisableVariables skips variable substitution in the overlay document.
	DisableVariables bool
}

// Load decodes the base document and, if non-empty, the overlay document.
// Entries of the base come first, then those of the overlay. A nil
// Storyboard means no object decoded into any layer.
func Load(base, overlay string) (*Storyboard, Diagnostics) {
	return LoadWithOptions(base, overlay, Options{})
}

// LoadWithOptions is Load with explicit options.
func LoadWithOptions(base, overlay string, opts Options) (*Storyboard, Diagnostics) {
	l := applog.WithOperation(applog.WithComponent("storyboard"), "load")
	baseDoc, diags := ParseEntries(base, ParseOptions{Doc: DocBase, AllowVariables: true})
	entries := baseDoc.Entries
	l.Debug("parsed base", slog.Int("entries", len(entries)), slog.Int("variables", baseDoc.Variables.Len()))

	var rep *reporter
	if overlay != "" {
		po := ParseOptions{Doc: DocOverlay}
		if !opts.DisableVariables {
			po.Variables = baseDoc.Variables
		}
		overlayDoc, od := ParseEntries(overlay, po)
		diags = append(diags, od...)
		entries = append(entries, overlayDoc.Entries...)
		l.Debug("parsed overlay", slog.Int("entries", len(overlayDoc.Entries)))
		rep = &reporter{doc: DocOverlay, diags: &diags}
	}

	baseRep := &reporter{doc: DocBase, diags: &diags}
	sb := &Storyboard{}
	for i, e := range entries {
		r := baseRep
		if i >= len(baseDoc.Entries) {
			r = rep
		}
		o, ok := decodeObject(e, r)
		if !ok {
			continue
		}
		b := sb.bucket(o.Layer)
		*b = append(*b, o)
	}

	diags.Log(l)
	if sb.Empty() {
		l.Debug("no objects decoded")
		return nil, diags
	}
	return sb, diags
}
