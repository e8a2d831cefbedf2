/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storyboard

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Value is the closed set of types a command animates.
type Value interface {
	isValue()
}

// Scalar is a numeric field. Text that is not a number decodes to NaN and is
// carried through unchanged; it encodes as JSON null.
type Scalar float64

// Coord is a 2D point.
type Coord struct {
	X Scalar `json:"x" yaml:"x"`
	Y Scalar `json:"y" yaml:"y"`
}

// Color is an RGB triple. The 0-255 range is conventional, not enforced.
type Color struct {
	R Scalar `json:"r" yaml:"r"`
	G Scalar `json:"g" yaml:"g"`
	B Scalar `json:"b" yaml:"b"`
}

// Parameter is the argument of a parameter toggle command.
type Parameter string

const (
	ParamFlipH    Parameter = "H"
	ParamFlipV    Parameter = "V"
	ParamAdditive Parameter = "A"
)

// Valid reports whether p is one of H, V or A.
func (p Parameter) Valid() bool {
	return p == ParamFlipH || p == ParamFlipV || p == ParamAdditive
}

func (Scalar) isValue()    {}
func (Coord) isValue()     {}
func (Color) isValue()     {}
func (Parameter) isValue() {}

// IsNaN reports whether the source text was not numeric.
func (s Scalar) IsNaN() bool { return math.IsNaN(float64(s)) }

func (s Scalar) MarshalJSON() ([]byte, error) {
	f := float64(s)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

func (s *Scalar) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = Scalar(math.NaN())
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*s = Scalar(f)
	return nil
}

// parseNumber reads a numeric field. Blank text reads as 0; anything that is
// not a number reads as NaN.
func parseNumber(text string) float64 {
	t := strings.TrimSpace(text)
	if t == "" {
		return 0
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		// ParseFloat reports range errors alongside a usable ±Inf.
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return f
		}
		return math.NaN()
	}
	return f
}

// numberOr reads a numeric field, falling back to def when it is blank.
func numberOr(text string, def float64) float64 {
	if strings.TrimRight(text, " \t") == "" {
		return def
	}
	return parseNumber(text)
}

func scalarOf(text string) Scalar { return Scalar(parseNumber(text)) }
