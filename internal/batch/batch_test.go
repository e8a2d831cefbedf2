/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"gostoryboard/internal/storage"
	"gostoryboard/internal/storyboard"
)

func TestRunKeepsOrderAndBoundsWorkers(t *testing.T) {
	var inFlight, peak int32
	jobs := make([]Job, 20)
	for i := range jobs {
		jobs[i] = Job{Name: fmt.Sprintf("job-%02d", i)}
	}
	results := Run(context.Background(), jobs, 3, func(ctx context.Context, job Job) Result {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return Result{Job: job, Key: job.Name}
	})
	if len(results) != len(jobs) {
		t.Fatalf("expected %d results, got %d", len(jobs), len(results))
	}
	for i, r := range results {
		if r.Key != jobs[i].Name {
			t.Fatalf("result %d out of order: %s", i, r.Key)
		}
	}
	if peak > 3 {
		t.Fatalf("expected at most 3 concurrent decodes, saw %d", peak)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := int32(0)
	results := Run(ctx, []Job{{Name: "a"}, {Name: "b"}}, 1, func(ctx context.Context, job Job) Result {
		atomic.AddInt32(&called, 1)
		return Result{Job: job}
	})
	for _, r := range results {
		if !errors.Is(r.Err, context.Canceled) {
			t.Fatalf("expected cancellation, got %v", r.Err)
		}
	}
	if called != 0 {
		t.Fatalf("decode should not run after cancel")
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestDecoderCachesCleanDecodes(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "map.osu", "[Events]\nSprite,Background,Centre,\"bg.png\",0,0\n F,0,0,100,1\n")
	ix, err := storage.OpenIndex(filepath.Join(dir, "index.sqlite"))
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	defer ix.Close()

	d := Decoder{Index: ix}
	first := d.Decode(context.Background(), Job{Name: "map", Base: base})
	if first.Err != nil || first.Cached || first.Storyboard == nil {
		t.Fatalf("first decode: %+v", first)
	}
	second := d.Decode(context.Background(), Job{Name: "map", Base: base})
	if second.Err != nil || !second.Cached {
		t.Fatalf("second decode should hit the cache: %+v", second)
	}
	if second.Key != first.Key || len(second.Storyboard.Background) != 1 {
		t.Fatalf("cached result differs: %+v", second)
	}
}

func TestDecoderStrictAndDiagnostics(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "map.osu", "[Events]\nSprite,Background,Centre,\"bg.png\",0,0\n Q,0,0,100,1\n")
	ix, err := storage.OpenIndex(filepath.Join(dir, "index.sqlite"))
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	defer ix.Close()

	lenient := Decoder{Index: ix}.Decode(context.Background(), Job{Base: base})
	if lenient.Err != nil || len(lenient.Diagnostics) == 0 || lenient.Storyboard == nil {
		t.Fatalf("lenient decode: %+v", lenient)
	}
	strict := Decoder{Index: ix, Strict: true}.Decode(context.Background(), Job{Base: base})
	if strict.Err == nil || strict.Cached {
		t.Fatalf("strict decode should fail and bypass the cache: %+v", strict)
	}
	if strict.Diagnostics.Count(storyboard.KindUnknownCommand) != 1 {
		t.Fatalf("expected an unknown command diagnostic: %v", strict.Diagnostics)
	}
}

func TestDecoderMissingFile(t *testing.T) {
	r := Decoder{}.Decode(context.Background(), Job{Base: filepath.Join(t.TempDir(), "nope.osu")})
	if r.Err == nil {
		t.Fatalf("expected read error")
	}
}

func TestDecoderNamesJobFromMetadata(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "Artist - Song (Mapper) [Hard].osu", "osu file format v14\n\n[Metadata]\nTitle:Song\nArtist:Artist\nVersion:Hard\n\n[Events]\nSprite,Pass,Centre,\"a.png\",0,0\n")
	loose := writeFile(t, dir, "loose.osb", "[Events]\nSprite,Pass,Centre,\"a.png\",0,0\n")

	if r := (Decoder{}).Decode(context.Background(), Job{Base: base}); r.Job.Name != "Artist - Song [Hard]" {
		t.Fatalf("name from metadata = %q", r.Job.Name)
	}
	if r := (Decoder{}).Decode(context.Background(), Job{Base: loose}); r.Job.Name != "loose" {
		t.Fatalf("name from file = %q", r.Job.Name)
	}
}
