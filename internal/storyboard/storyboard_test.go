/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storyboard

import (
	"reflect"
	"testing"
)

func TestLoadEndToEnd(t *testing.T) {
	input := "[Events]\nSprite,Background,Centre,\"bg.jpg\",0,0\n C,0,100,200,255,0,0,0,255,0"
	sb, diags := Load(input, "")
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if sb == nil || len(sb.Background) != 1 {
		t.Fatalf("expected one background object, got %+v", sb)
	}
	o := sb.Background[0]
	if o.Type != ObjectSprite || o.Path != "bg.jpg" || len(o.Commands) != 1 {
		t.Fatalf("unexpected object: %+v", o)
	}
	want := Command{Type: CommandColor, Easing: EasingLinear, StartTime: 100, EndTime: 200, StartValue: Color{R: 255}, EndValue: Color{G: 255}}
	if o.Commands[0] != want {
		t.Fatalf("command = %+v, want %+v", o.Commands[0], want)
	}
	for _, l := range []Layer{LayerFail, LayerPass, LayerForeground, LayerOverlay} {
		if len(sb.Layer(l)) != 0 {
			t.Fatalf("layer %v should be empty", l)
		}
	}
}

func TestLoadSignalsNoStoryboard(t *testing.T) {
	sb, _ := Load("[Events]\n0,0,\"bg.jpg\",0,0\n2,100,200\n", "")
	if sb != nil {
		t.Fatalf("expected nil storyboard, got %+v", sb)
	}
	if !sb.Empty() {
		t.Fatalf("nil storyboard should report empty")
	}

	sb, _ = Load("[Events]\nSprite,Background,Centre,bg.jpg,0,0\n", "")
	if sb == nil || sb.Empty() {
		t.Fatalf("single background object must not read as no storyboard")
	}
}

func TestLoadSubstitutesOverlayVariables(t *testing.T) {
	base := "[Variables]\n$X=5\n"
	overlay := "[Events]\nSprite,Foreground,Centre,a.png,0,0\n M,0,0,0,$X,1\n"
	sb, diags := Load(base, overlay)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	c := sb.Foreground[0].Commands[0]
	if c.StartValue != (Coord{X: 5, Y: 1}) {
		t.Fatalf("variable not substituted: %+v", c.StartValue)
	}

	sb, _ = LoadWithOptions(base, overlay, Options{DisableVariables: true})
	if !sb.Foreground[0].Commands[0].StartValue.(Coord).X.IsNaN() {
		t.Fatalf("disabled substitution should leave the reference in place")
	}
}

func TestLoadMatchesConcatenation(t *testing.T) {
	base := "[Events]\nSprite,Background,Centre,bg.jpg,0,0\n F,0,0,100,0,1\nSprite,Foreground,TopLeft,a.png,1,2\n"
	overlay := "[Events]\nSprite,Background,Centre,bg2.jpg,0,0\n M,0,0,100,0,0,10,10,20,20\nAnimation,Overlay,Centre,x.png,0,0,2,10,LoopOnce\n"

	split, _ := Load(base, overlay)
	joined, _ := Load(base+overlay, "")
	if !reflect.DeepEqual(split, joined) {
		t.Fatalf("split and joined decode differ:\n%+v\n%+v", split, joined)
	}
	if len(split.Background) != 2 || split.Background[1].Path != "bg2.jpg" {
		t.Fatalf("overlay objects should follow base objects: %+v", split.Background)
	}
}

func TestLoadBadObjectDoesNotStopDecoding(t *testing.T) {
	input := "[Events]\nSprite,Nowhere,Centre,a.png,0,0\n F,0,0,1,1\nSprite,Pass,Centre,b.png,0,0\n"
	sb, diags := Load(input, "")
	if diags.Count(KindUnknownLayer) != 1 {
		t.Fatalf("expected unknown layer diagnostic, got %v", diags)
	}
	if diags[0].Doc != DocBase || diags[0].Line != 2 {
		t.Fatalf("diagnostic position = %s:%d", diags[0].Doc, diags[0].Line)
	}
	if sb == nil || len(sb.Pass) != 1 || sb.Pass[0].Path != "b.png" {
		t.Fatalf("following object missing: %+v", sb)
	}
	if diags.Err() == nil {
		t.Fatalf("strict mode error expected")
	}
}

func TestStoryboardStats(t *testing.T) {
	input := "[Events]\nSprite,Background,Centre,bg.jpg,0,0\n F,0,-50,100,0,1\nAnimation,Foreground,Centre,a.png,0,0,2,10\n L,1000,2\n  R,0,0,250,0,1\n"
	sb, _ := Load(input, "")
	st := sb.Stats()
	if st.Objects != 2 || st.Animations != 1 || st.Commands != 3 {
		t.Fatalf("unexpected counts: %+v", st)
	}
	if st.ByLayer[LayerForeground] != 1 || st.ByCommand[CommandRotate] != 2 {
		t.Fatalf("unexpected breakdown: %+v", st)
	}
	if st.StartTime != -50 || st.EndTime != 1500 {
		t.Fatalf("span = %v..%v", st.StartTime, st.EndTime)
	}
	if n := len(sb.Objects()); n != 2 {
		t.Fatalf("Objects() = %d", n)
	}
}

func TestCommandCountsOrdered(t *testing.T) {
	text := "[Events]\n" +
		"Sprite,Foreground,Centre,\"a.png\",0,0\n" +
		" S,0,0,100,1\n" +
		" F,0,0,100,1\n" +
		" F,0,100,200,1,0\n" +
		"Sprite,Background,Centre,\"b.png\",0,0\n" +
		" R,0,0,100,0,1\n"
	sb, _ := Load(text, "")
	got := sb.CommandCounts()
	want := []CommandCount{
		{Layer: LayerBackground, Type: CommandRotate, N: 1},
		{Layer: LayerForeground, Type: CommandFade, N: 2},
		{Layer: LayerForeground, Type: CommandScale, N: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("CommandCounts = %+v, want %+v", got, want)
	}
	var none *Storyboard
	if none.CommandCounts() != nil {
		t.Fatalf("nil storyboard should have no counts")
	}
}
