/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package batch decodes many storyboards concurrently with a bounded worker pool.
package batch

import (
	"context"
	"errors"
	"log/slog"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"gostoryboard/internal/beatmap"
	applog "gostoryboard/internal/log"
	"gostoryboard/internal/storage"
	"gostoryboard/internal/storyboard"
)

// Job names one storyboard to decode: either loose files or a difficulty
// inside a beatmap archive.
type Job struct {
	Name       string
	Base       string
	Overlay    string
	Archive    string
	Difficulty string
}

// Result is the outcome of one job. Storyboard is nil when the sources hold
// no storyboard or could not be read.
type Result struct {
	Job         Job
	Key         string
	Storyboard  *storyboard.Storyboard
	Diagnostics storyboard.Diagnostics
	Cached      bool
	Err         error
}

// DecodeFunc processes one job.
type DecodeFunc func(ctx context.Context, job Job) Result

// Run decodes jobs with at most workers in flight and returns one result per
// job in input order. workers <= 0 means one per CPU. Jobs not yet started
// when ctx is cancelled report the context error.
func Run(ctx context.Context, jobs []Job, workers int, decode DecodeFunc) []Result {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	l := applog.WithOperation(applog.WithComponent("batch"), "run")
	start := time.Now()
	results := make([]Result, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = Result{Job: job, Err: err}
				return nil
			}
			results[i] = decode(gctx, job)
			return nil
		})
	}
	_ = g.Wait()

	failed, cached := 0, 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
		if r.Cached {
			cached++
		}
	}
	l.Info("batch done", slog.Int("jobs", len(jobs)), slog.Int("failed", failed), slog.Int("cached", cached),
		slog.Int("workers", workers), slog.Duration("took", time.Since(start)))
	return results
}

// Read loads the source documents of a job.
func Read(job Job) (beatmap.Documents, error) {
	if job.Archive == "" {
		return beatmap.ReadDocuments(job.Base, job.Overlay)
	}
	a, err := beatmap.OpenArchive(job.Archive)
	if err != nil {
		return beatmap.Documents{}, err
	}
	defer a.Close()
	return a.Load(job.Difficulty)
}

// Decoder is the standard DecodeFunc. With an Index, clean decodes are cached
// by content hash and served from the cache on later runs. Decodes that
// produced diagnostics are never cached, so Strict sees them every time.
type Decoder struct {
	Index   *storage.Index
	Options storyboard.Options
	Strict  bool
}

// Decode reads, decodes and optionally caches one job.
func (d Decoder) Decode(ctx context.Context, job Job) Result {
	res := Result{Job: job}
	docs, err := Read(job)
	if err != nil {
		res.Err = err
		return res
	}
	if res.Job.Name == "" {
		res.Job.Name = displayName(docs)
	}
	res.Key = storage.Key(docs.Base, docs.Overlay)
	if d.Options.DisableVariables {
		res.Key = storage.Key(res.Key, "novars")
	}
	l := applog.WithOperation(applog.WithComponent("batch"), "decode").With(slog.String("job", res.Job.Name))

	if d.Index != nil {
		sb, ok, err := d.Index.Get(ctx, res.Key)
		if err != nil {
			l.Warn("cache read failed", slog.Any("err", err))
		} else if ok {
			res.Storyboard, res.Cached = sb, true
			return res
		}
	}

	res.Storyboard, res.Diagnostics = storyboard.LoadWithOptions(docs.Base, docs.Overlay, d.Options)
	if d.Strict {
		if err := res.Diagnostics.Err(); err != nil {
			res.Err = err
		}
	}
	if d.Index != nil && len(res.Diagnostics) == 0 {
		if err := d.Index.Put(ctx, res.Key, res.Job.Name, res.Storyboard); err != nil && !errors.Is(err, context.Canceled) {
			l.Warn("cache write failed", slog.Any("err", err))
		}
	}
	return res
}

// displayName labels a job from the beatmap metadata, falling back to the file name.
func displayName(docs beatmap.Documents) string {
	if md, err := beatmap.ReadMetadata(docs.Base); err == nil && md.Title != "" {
		return md.Name()
	}
	return strings.TrimSuffix(path.Base(filepath.ToSlash(docs.BaseName)), path.Ext(docs.BaseName))
}
