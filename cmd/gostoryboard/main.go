/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gostoryboard/internal/config"
	"gostoryboard/internal/crash"
	applog "gostoryboard/internal/log"
	"gostoryboard/internal/version"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "GoStoryboard: decode storyboard scripts into layered timelines")
	fmt.Fprintf(w, "Version: %s\n", version.String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  gostoryboard version|-v|--version               Show version")
	fmt.Fprintln(w, "  gostoryboard decode [flags] <base> [overlay]     Decode loose .osu/.osb files")
	fmt.Fprintln(w, "  gostoryboard osz [flags] <archive> [difficulty]  Decode a difficulty from an .osz archive, or list them")
	fmt.Fprintln(w, "  gostoryboard batch [flags] <file>...             Decode many files and archives concurrently")
	fmt.Fprintln(w, "  gostoryboard report [flags] <base> [overlay]     Write a PDF timeline report")
	fmt.Fprintln(w, "  gostoryboard publish [flags] <base> [overlay]    Publish a decoded storyboard to the catalog")
	fmt.Fprintln(w, "  gostoryboard cache list|search <words>|stats <key>")
	fmt.Fprintln(w, "  gostoryboard config show|path|set-password <pw>|forget-password")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run a command with -h to see its flags.")
}

func main() {
	cfg, secret, cfgErr := config.Load()
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", cfgErr))
	}

	info := &crash.Info{}
	if cfg.Index.Path != "" {
		info.Dir = filepath.Dir(cfg.Index.Path)
	}
	defer crash.Recover(info)

	a := &app{cfg: cfg, secret: secret, stdout: os.Stdout, stderr: os.Stderr, crash: info}
	l.Debug("start", slog.Int("args", len(os.Args)))
	if code := a.run(os.Args[1:]); code != 0 {
		os.Exit(code)
	}
}
