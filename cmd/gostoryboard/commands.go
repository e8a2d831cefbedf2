/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"gostoryboard/internal/batch"
	"gostoryboard/internal/beatmap"
	"gostoryboard/internal/catalog"
	"gostoryboard/internal/config"
	"gostoryboard/internal/crash"
	"gostoryboard/internal/export"
	applog "gostoryboard/internal/log"
	"gostoryboard/internal/storage"
	"gostoryboard/internal/storyboard"
	"gostoryboard/internal/version"
)

type app struct {
	cfg    config.AppConfig
	secret string
	stdout io.Writer
	stderr io.Writer
	crash  *crash.Info
}

func (a *app) run(args []string) int {
	if len(args) == 0 {
		usage(a.stdout)
		return 0
	}
	cmd, rest := args[0], args[1:]
	if a.crash != nil {
		a.crash.Command = cmd
		a.crash.Inputs = rest
	}
	switch cmd {
	case "version", "--version", "-v":
		fmt.Fprintln(a.stdout, "GoStoryboard")
		fmt.Fprintln(a.stdout, version.String())
		return 0
	case "decode":
		return a.decode(rest)
	case "osz":
		return a.osz(rest)
	case "batch":
		return a.batch(rest)
	case "report":
		return a.report(rest)
	case "publish":
		return a.publish(rest)
	case "cache":
		return a.cache(rest)
	case "config":
		return a.config(rest)
	case "help", "-h", "--help":
		usage(a.stdout)
		return 0
	}
	fmt.Fprintf(a.stderr, "unknown command %q\n\n", cmd)
	usage(a.stderr)
	return 2
}

// decodeFlags are shared by every command that decodes.
type decodeFlags struct {
	format  string
	out     string
	index   string
	strict  bool
	noVars  bool
	noCache bool
}

func (a *app) flagSet(name string, df *decodeFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	if df != nil {
		fs.StringVar(&df.format, "format", a.cfg.Export.Format, "output format: json or yaml")
		fs.StringVar(&df.out, "o", "", "output path (default stdout)")
		fs.StringVar(&df.index, "index", a.cfg.Index.Path, "decode cache path (empty disables the cache)")
		fs.BoolVar(&df.strict, "strict", a.cfg.Decode.Strict, "fail on any decode diagnostic")
		fs.BoolVar(&df.noVars, "novars", !a.cfg.Decode.Variables, "disable [Variables] substitution")
		fs.BoolVar(&df.noCache, "no-cache", false, "bypass the decode cache")
	}
	return fs
}

// parse returns the exit code to use when flag parsing ends the command.
func parse(fs *flag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0, false
		}
		return 2, false
	}
	return 0, true
}

// decoder builds the decoder for df. The returned closer releases the cache.
func (a *app) decoder(df decodeFlags) (batch.Decoder, func(), error) {
	d := batch.Decoder{Options: storyboard.Options{DisableVariables: df.noVars}, Strict: df.strict}
	if df.noCache || df.index == "" {
		return d, func() {}, nil
	}
	ix, err := storage.OpenIndex(df.index)
	if err != nil {
		return d, func() {}, err
	}
	d.Index = ix
	return d, func() { _ = ix.Close() }, nil
}

func (a *app) fail(err error) int {
	applog.WithComponent("cli").Error("command failed", slog.Any("err", err))
	fmt.Fprintln(a.stderr, "Error:", err)
	return 1
}

func (a *app) decode(args []string) int {
	var df decodeFlags
	fs := a.flagSet("decode", &df)
	if code, ok := parse(fs, args); !ok {
		return code
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		fmt.Fprintln(a.stderr, "decode requires <base> and an optional [overlay]")
		return 2
	}
	return a.decodeOne(df, batch.Job{Base: fs.Arg(0), Overlay: fs.Arg(1)})
}

func (a *app) osz(args []string) int {
	var df decodeFlags
	fs := a.flagSet("osz", &df)
	if code, ok := parse(fs, args); !ok {
		return code
	}
	switch fs.NArg() {
	case 1:
		ar, err := beatmap.OpenArchive(fs.Arg(0))
		if err != nil {
			return a.fail(err)
		}
		defer ar.Close()
		for _, d := range ar.Difficulties() {
			fmt.Fprintln(a.stdout, d)
		}
		return 0
	case 2:
		return a.decodeOne(df, batch.Job{Archive: fs.Arg(0), Difficulty: fs.Arg(1)})
	}
	fmt.Fprintln(a.stderr, "osz requires <archive> and an optional [difficulty]")
	return 2
}

func (a *app) decodeOne(df decodeFlags, job batch.Job) int {
	d, closeIndex, err := a.decoder(df)
	if err != nil {
		return a.fail(err)
	}
	defer closeIndex()
	res := d.Decode(context.Background(), job)
	if res.Err != nil {
		return a.fail(res.Err)
	}
	if res.Storyboard == nil {
		fmt.Fprintln(a.stderr, "no storyboard found")
		return 0
	}
	if err := a.emit(res, df.format, df.out); err != nil {
		return a.fail(err)
	}
	return 0
}

// emit writes the export document for res to out, or stdout when out is empty.
func (a *app) emit(res batch.Result, format, out string) error {
	var buf bytes.Buffer
	if err := export.Write(&buf, format, export.NewDocument(res.Job.Name, res.Storyboard)); err != nil {
		return err
	}
	if a.cfg.Export.Validate && !strings.EqualFold(format, "yaml") && !strings.EqualFold(format, "yml") {
		if err := export.ValidateJSON(buf.Bytes()); err != nil {
			return err
		}
	}
	if out == "" {
		_, err := a.stdout.Write(buf.Bytes())
		return err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	return os.WriteFile(out, buf.Bytes(), 0o644)
}

func (a *app) batch(args []string) int {
	var df decodeFlags
	fs := a.flagSet("batch", &df)
	workers := fs.Int("workers", a.cfg.Batch.Workers, "concurrent decodes")
	if code, ok := parse(fs, args); !ok {
		return code
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(a.stderr, "batch requires at least one input")
		return 2
	}
	jobs, err := expandJobs(fs.Args())
	if err != nil {
		return a.fail(err)
	}
	d, closeIndex, err := a.decoder(df)
	if err != nil {
		return a.fail(err)
	}
	defer closeIndex()

	results := batch.Run(context.Background(), jobs, *workers, d.Decode)
	failed := 0
	for i, r := range results {
		status := "ok"
		switch {
		case r.Err != nil:
			status = "error: " + firstLine(r.Err.Error())
			failed++
		case r.Storyboard == nil:
			status = "no storyboard"
		case r.Cached:
			status = "cached"
		}
		st := r.Storyboard.Stats()
		fmt.Fprintf(a.stdout, "%s\t%d objects\t%d commands\t%d warnings\t%s\n", r.Job.Name, st.Objects, st.Commands, len(r.Diagnostics), status)
		if df.out != "" && r.Err == nil && r.Storyboard != nil {
			name := fmt.Sprintf("%03d-%s.%s", i+1, fileSafe(r.Job.Name), extFor(df.format))
			if err := a.emit(r, df.format, filepath.Join(df.out, name)); err != nil {
				return a.fail(err)
			}
		}
	}
	if failed > 0 {
		fmt.Fprintf(a.stderr, "%d of %d jobs failed\n", failed, len(results))
		return 1
	}
	return 0
}

// expandJobs turns inputs into jobs: one per difficulty of an archive, and
// one per loose base file paired with the first overlay in its directory.
func expandJobs(inputs []string) ([]batch.Job, error) {
	var jobs []batch.Job
	for _, in := range inputs {
		switch strings.ToLower(filepath.Ext(in)) {
		case ".osz":
			ar, err := beatmap.OpenArchive(in)
			if err != nil {
				return nil, err
			}
			for _, diff := range ar.Difficulties() {
				jobs = append(jobs, batch.Job{Archive: in, Difficulty: diff})
			}
			_ = ar.Close()
		case beatmap.BaseExt:
			overlays, _ := filepath.Glob(filepath.Join(filepath.Dir(in), "*"+beatmap.OverlayExt))
			sort.Strings(overlays)
			job := batch.Job{Base: in}
			if len(overlays) > 0 {
				job.Overlay = overlays[0]
			}
			jobs = append(jobs, job)
		default:
			jobs = append(jobs, batch.Job{Base: in})
		}
	}
	return jobs, nil
}

func (a *app) report(args []string) int {
	var df decodeFlags
	fs := a.flagSet("report", &df)
	title := fs.String("title", "", "report title (default: beatmap name)")
	maxRows := fs.Int("max", 50, "commands listed per object")
	if code, ok := parse(fs, args); !ok {
		return code
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		fmt.Fprintln(a.stderr, "report requires <base> and an optional [overlay]")
		return 2
	}
	d, closeIndex, err := a.decoder(df)
	if err != nil {
		return a.fail(err)
	}
	defer closeIndex()
	res := d.Decode(context.Background(), batch.Job{Base: fs.Arg(0), Overlay: fs.Arg(1)})
	if res.Err != nil {
		return a.fail(res.Err)
	}
	if res.Storyboard == nil {
		fmt.Fprintln(a.stderr, "no storyboard found")
		return 0
	}
	out := df.out
	if out == "" {
		out = strings.TrimSuffix(fs.Arg(0), filepath.Ext(fs.Arg(0))) + ".pdf"
	}
	t := *title
	if t == "" {
		t = res.Job.Name
	}
	if err := export.WriteTimelinePDF(out, res.Storyboard, export.PDFOptions{Title: t, MaxCommands: *maxRows}); err != nil {
		return a.fail(err)
	}
	fmt.Fprintln(a.stdout, "Wrote", out)
	return 0
}

func (a *app) publish(args []string) int {
	var df decodeFlags
	fs := a.flagSet("publish", &df)
	name := fs.String("name", "", "catalog name (default: beatmap name)")
	dsn := fs.String("dsn", a.cfg.Catalog.DSN, "catalog connection string")
	if code, ok := parse(fs, args); !ok {
		return code
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		fmt.Fprintln(a.stderr, "publish requires <base> and an optional [overlay]")
		return 2
	}
	d, closeIndex, err := a.decoder(df)
	if err != nil {
		return a.fail(err)
	}
	defer closeIndex()
	res := d.Decode(context.Background(), batch.Job{Name: *name, Base: fs.Arg(0), Overlay: fs.Arg(1)})
	if res.Err != nil {
		return a.fail(res.Err)
	}

	timeout := time.Duration(a.cfg.Catalog.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	c, err := catalog.Open(ctx, catalog.Options{DSN: *dsn, User: a.cfg.Catalog.User, Password: a.secret})
	if err != nil {
		return a.fail(err)
	}
	defer c.Close()
	if err := c.Migrate(ctx); err != nil {
		return a.fail(err)
	}
	id, err := c.Publish(ctx, res.Job.Name, res.Key, res.Storyboard)
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.stdout, "Published %s as #%d\n", res.Job.Name, id)
	return 0
}

func (a *app) cache(args []string) int {
	fs := a.flagSet("cache", nil)
	path := fs.String("index", a.cfg.Index.Path, "decode cache path")
	if code, ok := parse(fs, args); !ok {
		return code
	}
	if *path == "" {
		fmt.Fprintln(a.stderr, "no decode cache configured (set index.path or -index)")
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(a.stderr, "cache requires list, search or stats")
		return 2
	}
	ix, err := storage.OpenIndex(*path)
	if err != nil {
		return a.fail(err)
	}
	defer ix.Close()
	ctx := context.Background()

	switch fs.Arg(0) {
	case "list":
		entries, err := ix.List(ctx)
		if err != nil {
			return a.fail(err)
		}
		for _, e := range entries {
			fmt.Fprintf(a.stdout, "%s\t%s\t%d objects\t%d commands\t%s\n", e.Key, e.Name, e.Objects, e.Commands, e.CreatedAt.Format(time.RFC3339))
		}
	case "search":
		hits, err := ix.Search(ctx, strings.Join(fs.Args()[1:], " "), 0)
		if err != nil {
			return a.fail(err)
		}
		for _, h := range hits {
			fmt.Fprintf(a.stdout, "%s\t%s\t%s\t%s\n", h.Key, h.Name, h.Layer, h.Path)
		}
	case "stats":
		if fs.NArg() != 2 {
			fmt.Fprintln(a.stderr, "cache stats requires <key>")
			return 2
		}
		counts, err := ix.Stats(ctx, fs.Arg(1))
		if err != nil {
			return a.fail(err)
		}
		for _, c := range counts {
			fmt.Fprintf(a.stdout, "%s\t%s\t%d\n", c.Layer, c.Type, c.N)
		}
	default:
		fmt.Fprintf(a.stderr, "unknown cache command %q\n", fs.Arg(0))
		return 2
	}
	return 0
}

func (a *app) config(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(a.stderr, "config requires show, path, set-password or forget-password")
		return 2
	}
	switch args[0] {
	case "show":
		enc := yaml.NewEncoder(a.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(a.cfg); err != nil {
			return a.fail(err)
		}
		_ = enc.Close()
		for _, key := range []string{"decode.strict", "index.path", "catalog.dsn", "batch.workers", "export.format", "logging.level"} {
			if env, ok := config.EnvOverrideFor(key); ok {
				fmt.Fprintf(a.stdout, "# %s pinned by %s\n", key, env)
			}
		}
	case "path":
		p, err := config.ConfigPath()
		if err != nil {
			return a.fail(err)
		}
		fmt.Fprintln(a.stdout, p)
	case "set-password":
		if len(args) != 2 {
			fmt.Fprintln(a.stderr, "set-password requires <password>")
			return 2
		}
		fileCfg, err := config.LoadFile()
		if err != nil {
			return a.fail(err)
		}
		if err := config.SetCatalogPassword(fileCfg.Catalog, args[1]); err != nil {
			return a.fail(err)
		}
		fmt.Fprintln(a.stdout, "Catalog password stored in the system keychain.")
	case "forget-password":
		if err := config.ForgetCatalogPassword(a.cfg.Catalog); err != nil {
			return a.fail(err)
		}
		fmt.Fprintln(a.stdout, "Catalog password removed.")
	default:
		fmt.Fprintf(a.stderr, "unknown config command %q\n", args[0])
		return 2
	}
	return 0
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

func extFor(format string) string {
	if strings.EqualFold(format, "yaml") || strings.EqualFold(format, "yml") {
		return "yaml"
	}
	return "json"
}

func fileSafe(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}
