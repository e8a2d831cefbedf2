/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package beatmap reads the text documents a storyboard is decoded from:
// loose .osu/.osb files or the members of an .osz archive.
package beatmap

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	BaseExt    = ".osu"
	OverlayExt = ".osb"
)

// ErrDifficultyNotFound is returned when no .osu member matches the requested difficulty.
var ErrDifficultyNotFound = errors.New("difficulty not found")

// Documents is the decoder input: the base document and the optional overlay.
type Documents struct {
	BaseName    string
	Base        string
	OverlayName string
	Overlay     string
}

// DecodeText returns b as UTF-8, dropping a byte-order mark. UTF-16 input
// with a BOM is converted.
func DecodeText(b []byte) (string, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, b)
	if err != nil {
		return "", fmt.Errorf("decode text: %w", err)
	}
	return string(out), nil
}

// ReadDocuments loads loose files. overlayPath may be empty.
func ReadDocuments(basePath, overlayPath string) (Documents, error) {
	var docs Documents
	b, err := os.ReadFile(basePath)
	if err != nil {
		return docs, fmt.Errorf("read base: %w", err)
	}
	if docs.Base, err = DecodeText(b); err != nil {
		return docs, err
	}
	docs.BaseName = basePath
	if overlayPath == "" {
		return docs, nil
	}
	b, err = os.ReadFile(overlayPath)
	if err != nil {
		return docs, fmt.Errorf("read overlay: %w", err)
	}
	if docs.Overlay, err = DecodeText(b); err != nil {
		return docs, err
	}
	docs.OverlayName = overlayPath
	return docs, nil
}

// Archive is an opened .osz file.
type Archive struct {
	Path string
	zr   *zip.ReadCloser
}

// OpenArchive opens an .osz (zip) archive.
func OpenArchive(p string) (*Archive, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return &Archive{Path: p, zr: zr}, nil
}

// Close releases the archive.
func (a *Archive) Close() error { return a.zr.Close() }

func hasExt(name, ext string) bool { return strings.EqualFold(path.Ext(name), ext) }

// Difficulties lists the .osu members, sorted by name.
func (a *Archive) Difficulties() []string {
	var out []string
	for _, f := range a.zr.File {
		if hasExt(f.Name, BaseExt) {
			out = append(out, f.Name)
		}
	}
	sort.Strings(out)
	return out
}

// Load returns the first .osu member (in archive order) whose name contains
// difficulty, and the first .osb member if the archive has one.
func (a *Archive) Load(difficulty string) (Documents, error) {
	var docs Documents
	var base, overlay *zip.File
	for _, f := range a.zr.File {
		switch {
		case base == nil && hasExt(f.Name, BaseExt) && strings.Contains(f.Name, difficulty):
			base = f
		case overlay == nil && hasExt(f.Name, OverlayExt):
			overlay = f
		}
	}
	if base == nil {
		return docs, fmt.Errorf("%s in %s: %w", difficulty, a.Path, ErrDifficultyNotFound)
	}
	var err error
	if docs.Base, err = readMember(base); err != nil {
		return docs, err
	}
	docs.BaseName = base.Name
	if overlay != nil {
		if docs.Overlay, err = readMember(overlay); err != nil {
			return docs, err
		}
		docs.OverlayName = overlay.Name
	}
	return docs, nil
}

func readMember(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer func() { _ = rc.Close() }()
	b, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", f.Name, err)
	}
	return DecodeText(b)
}
