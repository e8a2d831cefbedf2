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
	"fmt"
	"strings"
)

// CommandType is the tag in the first field of a command line.
type CommandType string

const (
	CommandFade        CommandType = "F"
	CommandMove        CommandType = "M"
	CommandMoveX       CommandType = "MX"
	CommandMoveY       CommandType = "MY"
	CommandScale       CommandType = "S"
	CommandVectorScale CommandType = "V"
	CommandRotate      CommandType = "R"
	CommandColor       CommandType = "C"
	CommandParameter   CommandType = "P"

	// Compound tags; they never appear on a decoded Command.
	tagLoop    = "L"
	tagTrigger = "T"
)

// Command is one animated property change over [StartTime, EndTime].
// StartValue and EndValue always hold the same concrete type, decided by Type:
// Scalar for F/MX/MY/S/R, Coord for M/V, Color for C and Parameter for P.
type Command struct {
	Type       CommandType `yaml:"type"`
	Easing     Easing      `yaml:"easing"`
	StartTime  float64     `yaml:"startTime"`
	EndTime    float64     `yaml:"endTime"`
	StartValue Value       `yaml:"startValue"`
	EndValue   Value       `yaml:"endValue"`
}

// Duration is EndTime - StartTime.
func (c Command) Duration() float64 { return c.EndTime - c.StartTime }

func (c Command) shifted(offset float64) Command {
	c.StartTime += offset
	c.EndTime += offset
	return c
}

type valueSpec struct {
	arity int
	parse func(fields []string) Value
}

var commandSpecs = map[CommandType]valueSpec{
	CommandFade:        {1, parseScalarValue},
	CommandMove:        {2, parseCoordValue},
	CommandMoveX:       {1, parseScalarValue},
	CommandMoveY:       {1, parseScalarValue},
	CommandScale:       {1, parseScalarValue},
	CommandVectorScale: {2, parseCoordValue},
	CommandRotate:      {1, parseScalarValue},
	CommandColor:       {3, parseColorValue},
	CommandParameter:   {1, parseParamValue},
}

// Arity returns how many fields make up one keyframe of t, or 0 if t is unknown.
func (t CommandType) Arity() int { return commandSpecs[t].arity }

func parseScalarValue(f []string) Value { return scalarOf(f[0]) }
func parseCoordValue(f []string) Value  { return Coord{X: scalarOf(f[0]), Y: scalarOf(f[1])} }
func parseColorValue(f []string) Value {
	return Color{R: scalarOf(f[0]), G: scalarOf(f[1]), B: scalarOf(f[2])}
}
func parseParamValue(f []string) Value { return Parameter(f[0]) }

// withFallback fills blank components of start from the same position in end.
func withFallback(start, end []string) []string {
	out := make([]string, len(start))
	for i, s := range start {
		if strings.TrimSpace(s) == "" && i < len(end) {
			out[i] = end[i]
		} else {
			out[i] = s
		}
	}
	return out
}

// DecodeCommand turns a command entry into typed commands. Loops are
// unrolled, triggers produce nothing, and malformed lines are dropped with a
// diagnostic.
func DecodeCommand(e *Entry) ([]Command, Diagnostics) {
	var diags Diagnostics
	cmds := decodeCommand(e, &reporter{diags: &diags})
	return cmds, diags
}

func decodeCommand(e *Entry, rep *reporter) []Command {
	switch e.Field(0) {
	case tagLoop:
		return unrollLoop(e, rep)
	case tagTrigger:
		return nil
	default:
		return decodeBasicCommand(e, rep)
	}
}

func decodeBasicCommand(e *Entry, rep *reporter) []Command {
	rep = rep.at(e.Line)

	easing, ok := parseEasing(e.Field(1))
	if !ok {
		rep.warnf(KindUnknownEasing, "unexpected easing %q", e.Field(1))
		return nil
	}

	startTime := parseNumber(e.Field(2))
	endTime := numberOr(e.Field(3), startTime)

	typ := CommandType(e.Field(0))
	spec, ok := commandSpecs[typ]
	if !ok {
		rep.warnf(KindUnknownCommand, "unknown command type %q", string(typ))
		return nil
	}

	var params []string
	if len(e.Fields) > 4 {
		params = e.Fields[4:]
	}
	if len(params) < spec.arity || len(params)%spec.arity != 0 {
		rep.warnf(KindArityMismatch, "expected n*%d params, got %d", spec.arity, len(params))
		return nil
	}

	keyframes := make([][]string, len(params)/spec.arity)
	for i := range keyframes {
		keyframes[i] = params[i*spec.arity : (i+1)*spec.arity]
	}

	switch len(keyframes) {
	case 1:
		v := spec.parse(keyframes[0])
		return []Command{{Type: typ, Easing: easing, StartTime: startTime, EndTime: endTime, StartValue: v, EndValue: v}}
	case 2:
		return []Command{{
			Type:       typ,
			Easing:     easing,
			StartTime:  startTime,
			EndTime:    endTime,
			StartValue: spec.parse(withFallback(keyframes[0], keyframes[1])),
			EndValue:   spec.parse(keyframes[1]),
		}}
	default:
		// Sequential form: each pair of neighbouring keyframes is one command,
		// spaced by the duration declared on the line.
		values := make([]Value, len(keyframes))
		for i, kf := range keyframes {
			values[i] = spec.parse(kf)
		}
		duration := endTime - startTime
		cmds := make([]Command, len(keyframes)-1)
		for i := range cmds {
			offset := duration * float64(i)
			cmds[i] = Command{
				Type:       typ,
				Easing:     easing,
				StartTime:  startTime + offset,
				EndTime:    endTime + offset,
				StartValue: values[i],
				EndValue:   values[i+1],
			}
		}
		return cmds
	}
}

// MaxLoopCommands caps the commands a single loop may unroll into. Longer
// loops are truncated to whole iterations and reported as loop_limit.
const MaxLoopCommands = 1 << 20

// loopCommandLimit is MaxLoopCommands; tests lower it.
var loopCommandLimit = MaxLoopCommands

func unrollLoop(e *Entry, rep *reporter) []Command {
	var body []Command
	for _, child := range e.Children {
		body = append(body, decodeBasicCommand(child, rep)...)
	}
	if len(body) == 0 {
		rep.at(e.Line).warnf(KindEmptyLoop, "loop has no decodable commands")
		return nil
	}

	duration := body[0].EndTime
	for _, c := range body[1:] {
		duration = max(duration, c.EndTime)
	}
	loopStart := parseNumber(e.Field(1))
	loopCount := parseNumber(e.Field(2))
	if limit := loopCommandLimit / len(body); loopCount > float64(limit) {
		rep.at(e.Line).warnf(KindLoopLimit, "loop of %s iterations exceeds %d commands, truncated to %d iterations", e.Field(2), loopCommandLimit, limit)
		loopCount = float64(limit)
	}

	var cmds []Command
	for i := 0; float64(i) < loopCount; i++ {
		offset := loopStart + float64(i)*duration
		for _, c := range body {
			cmds = append(cmds, c.shifted(offset))
		}
	}
	return cmds
}

type commandJSON struct {
	Type       CommandType     `json:"type"`
	Easing     Easing          `json:"easing"`
	StartTime  Scalar          `json:"startTime"`
	EndTime    Scalar          `json:"endTime"`
	StartValue json.RawMessage `json:"startValue"`
	EndValue   json.RawMessage `json:"endValue"`
}

func (c Command) MarshalJSON() ([]byte, error) {
	sv, err := json.Marshal(c.StartValue)
	if err != nil {
		return nil, err
	}
	ev, err := json.Marshal(c.EndValue)
	if err != nil {
		return nil, err
	}
	return json.Marshal(commandJSON{
		Type:       c.Type,
		Easing:     c.Easing,
		StartTime:  Scalar(c.StartTime),
		EndTime:    Scalar(c.EndTime),
		StartValue: sv,
		EndValue:   ev,
	})
}

func (c *Command) UnmarshalJSON(b []byte) error {
	var w commandJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	sv, err := unmarshalValue(w.Type, w.StartValue)
	if err != nil {
		return err
	}
	ev, err := unmarshalValue(w.Type, w.EndValue)
	if err != nil {
		return err
	}
	*c = Command{
		Type:       w.Type,
		Easing:     w.Easing,
		StartTime:  float64(w.StartTime),
		EndTime:    float64(w.EndTime),
		StartValue: sv,
		EndValue:   ev,
	}
	return nil
}

func unmarshalValue(t CommandType, raw json.RawMessage) (Value, error) {
	switch t.Arity() {
	case 1:
		if t == CommandParameter {
			var p Parameter
			err := json.Unmarshal(raw, &p)
			return p, err
		}
		var s Scalar
		err := json.Unmarshal(raw, &s)
		return s, err
	case 2:
		var c Coord
		err := json.Unmarshal(raw, &c)
		return c, err
	case 3:
		var c Color
		err := json.Unmarshal(raw, &c)
		return c, err
	default:
		return nil, fmt.Errorf("unknown command type %q", string(t))
	}
}
