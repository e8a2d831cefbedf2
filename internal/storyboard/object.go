/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storyboard

import "strings"

// ObjectType distinguishes sprites from animations.
type ObjectType string

const (
	ObjectSprite    ObjectType = "Sprite"
	ObjectAnimation ObjectType = "Animation"
)

// LoopOnce is the only loop token that stops an animation from repeating.
const LoopOnce = "LoopOnce"

// Object is a drawable placed on one layer, with its commands in document order.
type Object struct {
	Type     ObjectType `json:"type" yaml:"type"`
	Layer    Layer      `json:"layer" yaml:"layer"`
	Origin   Origin     `json:"origin" yaml:"origin"`
	Path     string     `json:"path" yaml:"path"`
	Position Coord      `json:"position" yaml:"position"`
	Commands []Command  `json:"commands" yaml:"commands"`
	// Frames is set for animations only.
	Frames *Frames `json:"frames,omitempty" yaml:"frames,omitempty"`
}

// Frames holds the animation-only fields.
type Frames struct {
	Count Scalar `json:"count" yaml:"count"`
	Delay Scalar `json:"delay" yaml:"delay"`
	Loops bool   `json:"loops" yaml:"loops"`
}

// IsAnimation reports whether o is an Animation.
func (o Object) IsAnimation() bool { return o.Type == ObjectAnimation }

// DecodeObject interprets a top-level entry. It returns false when the entry
// yields no object: legacy rows ("0" background, "2" break) silently, anything
// malformed with a diagnostic.
func DecodeObject(e *Entry) (Object, bool, Diagnostics) {
	var diags Diagnostics
	o, ok := decodeObject(e, &reporter{diags: &diags})
	return o, ok, diags
}

func decodeObject(e *Entry, rep *reporter) (Object, bool) {
	lr := rep.at(e.Line)
	typ := e.Field(0)

	switch ObjectType(typ) {
	case ObjectSprite, ObjectAnimation:
	default:
		if typ != "0" && typ != "2" {
			lr.warnf(KindUnknownObjectType, "unknown object type %q", typ)
		}
		return Object{}, false
	}

	want := 6
	if ObjectType(typ) == ObjectAnimation {
		want = 9
	}
	if len(e.Fields) != want {
		lr.warnf(KindFieldCount, "expected %d values, got %d", want, len(e.Fields))
	}

	layer, ok := ParseLayer(e.Field(1))
	if !ok {
		lr.warnf(KindUnknownLayer, "invalid value for layer: %s", e.Field(1))
		return Object{}, false
	}
	if !layer.Supported() {
		lr.warnf(KindUnsupportedLayer, "%s layer not supported", layer)
		return Object{}, false
	}

	origin, ok := ParseOrigin(e.Field(2))
	if !ok {
		lr.warnf(KindUnknownOrigin, "invalid value for origin: %s", e.Field(2))
		return Object{}, false
	}

	o := Object{
		Type:     ObjectType(typ),
		Layer:    layer,
		Origin:   origin,
		Path:     unquote(e.Field(3)),
		Position: Coord{X: scalarOf(e.Field(4)), Y: scalarOf(e.Field(5))},
		Commands: []Command{},
	}
	for _, child := range e.Children {
		o.Commands = append(o.Commands, decodeCommand(child, rep)...)
	}

	if o.Type == ObjectAnimation {
		o.Frames = &Frames{
			Count: scalarOf(e.Field(6)),
			Delay: scalarOf(e.Field(7)),
			Loops: e.Field(8) != LoopOnce,
		}
	}
	return o, true
}

// unquote strips one pair of surrounding double quotes.
func unquote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1]
	}
	return s
}
