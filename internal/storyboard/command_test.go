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
	"strings"
	"testing"
)

func entryOf(line string, children ...*Entry) *Entry {
	return &Entry{Fields: strings.Split(line, ","), Children: children, Line: 1}
}

func TestDecodeCommandSingleKeyframe(t *testing.T) {
	cmds, diags := DecodeCommand(entryOf("F,0,100,200,0.5"))
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(cmds) != 1 {
		t.Fatalf("expected 1 command, got %d", len(cmds))
	}
	c := cmds[0]
	if c.Type != CommandFade || c.StartTime != 100 || c.EndTime != 200 {
		t.Fatalf("unexpected command: %+v", c)
	}
	if c.StartValue != Scalar(0.5) || c.EndValue != c.StartValue {
		t.Fatalf("single keyframe should hold one value: %+v", c)
	}
}

func TestDecodeCommandBlankEndTime(t *testing.T) {
	cmds, _ := DecodeCommand(entryOf("R,3,250,,1.5,0"))
	if len(cmds) != 1 || cmds[0].EndTime != 250 {
		t.Fatalf("blank end time should equal start: %+v", cmds)
	}
	if cmds[0].Easing != EasingInQuad {
		t.Fatalf("easing = %v", cmds[0].Easing)
	}
}

func TestDecodeCommandStandardFormFallback(t *testing.T) {
	cmds, _ := DecodeCommand(entryOf("M,0,0,100,,5,10,20"))
	if len(cmds) != 1 {
		t.Fatalf("expected 1 command, got %d", len(cmds))
	}
	if got, want := cmds[0].StartValue, (Coord{X: 10, Y: 5}); got != want {
		t.Fatalf("start = %+v, want %+v", got, want)
	}
	if got, want := cmds[0].EndValue, (Coord{X: 10, Y: 20}); got != want {
		t.Fatalf("end = %+v, want %+v", got, want)
	}
}

func TestDecodeCommandSequentialForm(t *testing.T) {
	cmds, _ := DecodeCommand(entryOf("F,1,0,100,0,1,0.5,1"))
	if len(cmds) != 3 {
		t.Fatalf("expected 3 commands, got %d", len(cmds))
	}
	wantValues := []Scalar{0, 1, 0.5, 1}
	for i, c := range cmds {
		off := float64(i) * 100
		if c.StartTime != off || c.EndTime != 100+off {
			t.Fatalf("command %d times = %v..%v", i, c.StartTime, c.EndTime)
		}
		if c.StartValue != wantValues[i] || c.EndValue != wantValues[i+1] {
			t.Fatalf("command %d values = %v -> %v", i, c.StartValue, c.EndValue)
		}
		if c.Easing != EasingOut {
			t.Fatalf("command %d lost its easing", i)
		}
	}
}

func TestDecodeCommandSequentialFormHasNoFallback(t *testing.T) {
	cmds, _ := DecodeCommand(entryOf("V,0,0,10,,1,2,2,3,3"))
	if len(cmds) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(cmds))
	}
	if got := cmds[0].StartValue.(Coord); got.X != 0 || got.Y != 1 {
		t.Fatalf("blank component should read as 0 in sequential form: %+v", got)
	}
}

func TestDecodeCommandColorAndParameter(t *testing.T) {
	cmds, _ := DecodeCommand(entryOf("C,0,100,200,255,0,0,0,255,0"))
	if len(cmds) != 1 {
		t.Fatalf("expected 1 color command, got %d", len(cmds))
	}
	if cmds[0].StartValue != (Color{R: 255}) || cmds[0].EndValue != (Color{G: 255}) {
		t.Fatalf("unexpected colors: %+v", cmds[0])
	}

	cmds, _ = DecodeCommand(entryOf("P,0,0,0,A"))
	if len(cmds) != 1 || cmds[0].StartValue != ParamAdditive {
		t.Fatalf("unexpected parameter command: %+v", cmds)
	}
	if !cmds[0].StartValue.(Parameter).Valid() {
		t.Fatalf("A should be a valid parameter")
	}
}

func TestDecodeCommandRejectsMalformed(t *testing.T) {
	cases := []struct {
		line string
		kind Kind
	}{
		{"F,99,0,100,1", KindUnknownEasing},
		{"F,x,0,100,1", KindUnknownEasing},
		{"F,1.5,0,100,1", KindUnknownEasing},
		{"Z,0,0,100,1", KindUnknownCommand},
		{"M,0,0,100,1,2,3", KindArityMismatch},
		{"C,0,0,100", KindArityMismatch},
	}
	for _, tc := range cases {
		cmds, diags := DecodeCommand(entryOf(tc.line))
		if len(cmds) != 0 {
			t.Fatalf("%s: expected no commands, got %+v", tc.line, cmds)
		}
		if len(diags) != 1 || diags[0].Kind != tc.kind {
			t.Fatalf("%s: diagnostics = %v, want one %v", tc.line, diags, tc.kind)
		}
	}
}

func TestDecodeCommandNonNumericPassesThrough(t *testing.T) {
	cmds, diags := DecodeCommand(entryOf("S,0,0,100,abc"))
	if len(diags) != 0 || len(cmds) != 1 {
		t.Fatalf("non-numeric value should not be rejected: %v %v", cmds, diags)
	}
	if !cmds[0].StartValue.(Scalar).IsNaN() {
		t.Fatalf("expected NaN, got %v", cmds[0].StartValue)
	}
	b, err := json.Marshal(cmds[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"startValue":null`) {
		t.Fatalf("NaN should encode as null: %s", b)
	}
}

func TestDecodeCommandTriggerIsIgnored(t *testing.T) {
	cmds, diags := DecodeCommand(entryOf("T,HitSoundClap,0,1000", entryOf("F,0,0,100,1,0")))
	if len(cmds) != 0 || len(diags) != 0 {
		t.Fatalf("trigger should produce nothing: %v %v", cmds, diags)
	}
}

func TestDecodeCommandUnrollsLoop(t *testing.T) {
	loop := entryOf("L,1000,3",
		entryOf("F,0,0,100,0,1"),
		entryOf("M,0,50,200,0,0,1,1"),
	)
	cmds, diags := DecodeCommand(loop)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(cmds) != 6 {
		t.Fatalf("expected 6 commands, got %d", len(cmds))
	}
	for i := 0; i < 3; i++ {
		off := 1000 + float64(i)*200
		f, m := cmds[2*i], cmds[2*i+1]
		if f.Type != CommandFade || f.StartTime != off || f.EndTime != off+100 {
			t.Fatalf("iteration %d fade = %+v", i, f)
		}
		if m.Type != CommandMove || m.StartTime != off+50 || m.EndTime != off+200 {
			t.Fatalf("iteration %d move = %+v", i, m)
		}
	}
}

func TestDecodeCommandEmptyLoop(t *testing.T) {
	cmds, diags := DecodeCommand(entryOf("L,0,4", entryOf("F,99,0,1,1")))
	if len(cmds) != 0 {
		t.Fatalf("expected no commands, got %d", len(cmds))
	}
	if diags.Count(KindEmptyLoop) != 1 || diags.Count(KindUnknownEasing) != 1 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
}

func TestCommandJSONRoundTrip(t *testing.T) {
	in := Command{Type: CommandVectorScale, Easing: EasingOutBack, StartTime: 5, EndTime: 10, StartValue: Coord{X: 1, Y: 2}, EndValue: Coord{X: 3, Y: 4}}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out Command
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: %+v vs %+v", out, in)
	}
}

func TestDecodeCommandLoopLimit(t *testing.T) {
	old := loopCommandLimit
	loopCommandLimit = 10
	defer func() { loopCommandLimit = old }()

	loop := entryOf("L,0,1e12", entryOf("F,0,0,100,1"), entryOf("S,0,0,100,1"))
	cmds, diags := DecodeCommand(loop)
	if len(cmds) != 10 {
		t.Fatalf("expected 5 whole iterations (10 commands), got %d", len(cmds))
	}
	if diags.Count(KindLoopLimit) != 1 {
		t.Fatalf("expected loop_limit diagnostic: %v", diags)
	}
	if last := cmds[9]; last.Type != CommandScale || last.StartTime != 400 {
		t.Fatalf("last unrolled command = %+v", last)
	}

	// within the limit nothing is reported
	if cmds, diags := DecodeCommand(entryOf("L,0,5", entryOf("F,0,0,100,1"), entryOf("S,0,0,100,1"))); len(cmds) != 10 || len(diags) != 0 {
		t.Fatalf("loop at the limit: %d commands, %v", len(cmds), diags)
	}
}

func TestCommandDuration(t *testing.T) {
	cmds, _ := DecodeCommand(entryOf("M,0,250,1000,0,0,10,10"))
	if d := cmds[0].Duration(); d != 750 {
		t.Fatalf("Duration = %v, want 750", d)
	}
	cmds, _ = DecodeCommand(entryOf("F,0,500,,1"))
	if d := cmds[0].Duration(); d != 0 {
		t.Fatalf("instant command Duration = %v, want 0", d)
	}
}

func TestParameterValid(t *testing.T) {
	for _, p := range []Parameter{ParamFlipH, ParamFlipV, ParamAdditive} {
		if !p.Valid() {
			t.Fatalf("%q should be valid", p)
		}
	}
	for _, p := range []Parameter{"", "h", "X", "HV"} {
		if p.Valid() {
			t.Fatalf("%q should be invalid", p)
		}
	}
	cmds, _ := DecodeCommand(entryOf("P,0,0,0,A"))
	if p, ok := cmds[0].StartValue.(Parameter); !ok || !p.Valid() {
		t.Fatalf("decoded parameter = %#v", cmds[0].StartValue)
	}
}
