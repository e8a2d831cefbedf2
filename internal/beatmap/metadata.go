/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package beatmap

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/ini.v1"
)

// Metadata is the descriptive part of a beatmap.
type Metadata struct {
	Title                string `ini:"Title"`
	TitleUnicode         string `ini:"TitleUnicode"`
	Artist               string `ini:"Artist"`
	Creator              string `ini:"Creator"`
	Version              string `ini:"Version"`
	Source               string `ini:"Source"`
	BeatmapID            int    `ini:"BeatmapID"`
	AudioFilename        string `ini:"-"`
	WidescreenStoryboard bool   `ini:"-"`
}

// Name is a display label: "Artist - Title [Version]".
func (m Metadata) Name() string {
	s := strings.TrimSpace(m.Artist + " - " + m.Title)
	if m.Version != "" {
		s += " [" + m.Version + "]"
	}
	return s
}

var reSection = regexp.MustCompile(`^\[(.*)\]\s*$`)

// ReadMetadata reads the [General] and [Metadata] sections of a base
// document. Only those sections are handed to the ini parser; the rest of a
// beatmap is not key/value data.
func ReadMetadata(text string) (Metadata, error) {
	var m Metadata
	var kept []string
	keep := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if sm := reSection.FindStringSubmatch(strings.TrimSpace(line)); sm != nil {
			keep = sm[1] == "General" || sm[1] == "Metadata"
		}
		if keep {
			kept = append(kept, line)
		}
	}

	f, err := ini.LoadSources(ini.LoadOptions{
		KeyValueDelimiters:      ":",
		SkipUnrecognizableLines: true,
		IgnoreContinuation:      true,
		IgnoreInlineComment:     true,
		PreserveSurroundedQuote: true,
	}, []byte(strings.Join(kept, "\n")))
	if err != nil {
		return m, fmt.Errorf("parse metadata: %w", err)
	}
	if err := f.Section("Metadata").MapTo(&m); err != nil {
		return m, fmt.Errorf("map metadata: %w", err)
	}
	gen := f.Section("General")
	m.AudioFilename = gen.Key("AudioFilename").String()
	m.WidescreenStoryboard = gen.Key("WidescreenStoryboard").MustBool(false)
	return m, nil
}
