/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storyboard

import (
	"fmt"
	"strconv"
)

// Easing identifies the interpolation curve of a command.
// Codes follow the numeric table used by storyboard scripts (0..34).
type Easing int

const (
	EasingLinear Easing = iota
	EasingOut
	EasingIn
	EasingInQuad
	EasingOutQuad
	EasingInOutQuad
	EasingInCubic
	EasingOutCubic
	EasingInOutCubic
	EasingInQuart
	EasingOutQuart
	EasingInOutQuart
	EasingInQuint
	EasingOutQuint
	EasingInOutQuint
	EasingInSine
	EasingOutSine
	EasingInOutSine
	EasingInExpo
	EasingOutExpo
	EasingInOutExpo
	EasingInCirc
	EasingOutCirc
	EasingInOutCirc
	EasingInElastic
	EasingOutElastic
	EasingOutElasticHalf
	EasingOutElasticQuarter
	EasingInOutElastic
	EasingInBack
	EasingOutBack
	EasingInOutBack
	EasingInBounce
	EasingOutBounce
	EasingInOutBounce
)

var easingNames = [...]string{
	"Linear", "Out", "In",
	"InQuad", "OutQuad", "InOutQuad",
	"InCubic", "OutCubic", "InOutCubic",
	"InQuart", "OutQuart", "InOutQuart",
	"InQuint", "OutQuint", "InOutQuint",
	"InSine", "OutSine", "InOutSine",
	"InExpo", "OutExpo", "InOutExpo",
	"InCirc", "OutCirc", "InOutCirc",
	"InElastic", "OutElastic", "OutElasticHalf", "OutElasticQuarter", "InOutElastic",
	"InBack", "OutBack", "InOutBack",
	"InBounce", "OutBounce", "InOutBounce",
}

// Valid reports whether e is one of the known curves.
func (e Easing) Valid() bool { return e >= 0 && int(e) < len(easingNames) }

func (e Easing) String() string {
	if !e.Valid() {
		return "Easing(" + strconv.Itoa(int(e)) + ")"
	}
	return easingNames[e]
}

// parseEasing resolves the numeric code of an easing field.
// An empty field reads as 0 (Linear), matching how numeric fields are read elsewhere.
func parseEasing(text string) (Easing, bool) {
	n := parseNumber(text)
	if n != n || n != float64(int(n)) {
		return 0, false
	}
	e := Easing(int(n))
	return e, e.Valid()
}

// Layer is a rendering bucket of the storyboard.
type Layer int

const (
	LayerBackground Layer = iota
	LayerFail
	LayerPass
	LayerForeground
	LayerOverlay
	// LayerSamples is recognized by name but never decoded into objects.
	LayerSamples
)

// LayerCount is the number of layers a Storyboard holds objects for.
const LayerCount = 5

var layerNames = [...]string{"Background", "Fail", "Pass", "Foreground", "Overlay", "Samples"}

// Layers lists the supported layers in bucket order.
func Layers() []Layer {
	return []Layer{LayerBackground, LayerFail, LayerPass, LayerForeground, LayerOverlay}
}

func (l Layer) String() string {
	if l < 0 || int(l) >= len(layerNames) {
		return "Layer(" + strconv.Itoa(int(l)) + ")"
	}
	return layerNames[l]
}

// Supported reports whether objects on l end up in a Storyboard.
func (l Layer) Supported() bool { return l >= 0 && l < LayerCount }

// ParseLayer resolves a layer by its exact (case-sensitive) name.
func ParseLayer(name string) (Layer, bool) {
	for i, n := range layerNames {
		if n == name {
			return Layer(i), true
		}
	}
	return 0, false
}

func (l Layer) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

func (l *Layer) UnmarshalText(b []byte) error {
	v, ok := ParseLayer(string(b))
	if !ok {
		return fmt.Errorf("unknown layer %q", string(b))
	}
	*l = v
	return nil
}

// Origin is the anchor point of an object's image.
type Origin int

const (
	OriginTopLeft Origin = iota
	OriginCentre
	OriginCentreLeft
	OriginTopRight
	OriginBottomCentre
	OriginTopCentre
	OriginCustom
	OriginCentreRight
	OriginBottomLeft
	OriginBottomRight
)

var originNames = [...]string{
	"TopLeft", "Centre", "CentreLeft", "TopRight", "BottomCentre",
	"TopCentre", "Custom", "CentreRight", "BottomLeft", "BottomRight",
}

func (o Origin) String() string {
	if o < 0 || int(o) >= len(originNames) {
		return "Origin(" + strconv.Itoa(int(o)) + ")"
	}
	return originNames[o]
}

// ParseOrigin resolves an origin by its exact name.
func ParseOrigin(name string) (Origin, bool) {
	for i, n := range originNames {
		if n == name {
			return Origin(i), true
		}
	}
	return 0, false
}

func (o Origin) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Origin) UnmarshalText(b []byte) error {
	v, ok := ParseOrigin(string(b))
	if !ok {
		return fmt.Errorf("unknown origin %q", string(b))
	}
	*o = v
	return nil
}
