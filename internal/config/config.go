/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted as YAML in the user scope.
// Environment variables are read-only overrides applied at load time.
//
// config_version: bump when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Decode        DecodeConfig  `yaml:"decode"`
	Index         IndexConfig   `yaml:"index"`
	Catalog       CatalogConfig `yaml:"catalog"`
	Export        ExportConfig  `yaml:"export"`
	Batch         BatchConfig   `yaml:"batch"`
	Logging       LoggingConfig `yaml:"logging"`
}

type DecodeConfig struct {
	// Strict turns every decode diagnostic into a failure.
	Strict bool `yaml:"strict"`
	// Variables enables [Variables] substitution in overlay documents.
	Variables bool `yaml:"variables"`
}

type IndexConfig struct {
	Path string `yaml:"path"` // empty disables the decode cache
}

type CatalogConfig struct {
	DSN       string `yaml:"dsn"`
	User      string `yaml:"user"`
	TimeoutMs int    `yaml:"timeout_ms"`
	// The password is not stored on disk; it lives in the OS keychain.
}

type ExportConfig struct {
	Format   string `yaml:"format"` // "json" | "yaml"
	Validate bool   `yaml:"validate"`
}

type BatchConfig struct {
	Workers int `yaml:"workers"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Decode:        DecodeConfig{Strict: false, Variables: true},
		Catalog:       CatalogConfig{TimeoutMs: 10000},
		Export:        ExportConfig{Format: "json", Validate: true},
		Batch:         BatchConfig{Workers: runtime.NumCPU()},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvStrict       = "GSB_STRICT"
	EnvIndexPath    = "GSB_INDEX_PATH"
	EnvCatalogDSN   = "GSB_CATALOG_DSN"
	EnvWorkers      = "GSB_WORKERS"
	EnvExportFormat = "GSB_EXPORT_FORMAT"
	EnvLogLevel     = "GSB_LOG_LEVEL"
	EnvLogFormat    = "GSB_LOG_FORMAT"
	EnvLogSource    = "GSB_LOG_SOURCE"
	EnvLogFile      = "GSB_LOG_FILE"
)

// envKeys maps dotted config keys to the env var that pins them.
var envKeys = map[string]string{
	"decode.strict":  EnvStrict,
	"index.path":     EnvIndexPath,
	"catalog.dsn":    EnvCatalogDSN,
	"batch.workers":  EnvWorkers,
	"export.format":  EnvExportFormat,
	"logging.level":  EnvLogLevel,
	"logging.format": EnvLogFormat,
	"logging.source": EnvLogSource,
	"logging.file":   EnvLogFile,
}

// pathOverride replaces ConfigPath in tests.
var pathOverride string

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	if pathOverride != "" {
		return pathOverride, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "GoStoryboard")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "GoStoryboard")
	default:
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "gostoryboard")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "gostoryboard")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults and merges
// environment overrides. The catalog password is read from the keychain and
// returned separately.
func Load() (AppConfig, string, error) {
	cfg, err := LoadFile()
	if err != nil {
		return cfg, "", err
	}
	applyEnvOverrides(&cfg)
	secret, _ := tokenStore.Get(keyringService, secretKey(cfg.Catalog))
	return cfg, secret, nil
}

// LoadFile reads the user config file over the defaults, without environment
// overrides. Callers that write the config back start from this so env-only
// values never reach the file.
func LoadFile() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	if data, err := os.ReadFile(path); err == nil {
		// Unmarshal over the defaults so keys missing from the file keep them.
		fileCfg := Defaults()
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	return cfg, nil
}

// Save writes the user config YAML and stores the catalog password in the keychain when non-empty.
func Save(cfg AppConfig, password string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if password != "" {
		if err := tokenStore.Set(keyringService, secretKey(cfg.Catalog), password); err != nil {
			return err
		}
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// booleans: copy directly so user preferences persist
	dst.Decode.Strict = src.Decode.Strict
	dst.Decode.Variables = src.Decode.Variables
	if s := strings.TrimSpace(src.Index.Path); s != "" {
		dst.Index.Path = s
	}
	if s := strings.TrimSpace(src.Catalog.DSN); s != "" {
		dst.Catalog.DSN = s
	}
	if s := strings.TrimSpace(src.Catalog.User); s != "" {
		dst.Catalog.User = s
	}
	if src.Catalog.TimeoutMs > 0 {
		dst.Catalog.TimeoutMs = src.Catalog.TimeoutMs
	}
	if s := strings.TrimSpace(src.Export.Format); s != "" {
		dst.Export.Format = strings.ToLower(s)
	}
	dst.Export.Validate = src.Export.Validate
	if src.Batch.Workers > 0 {
		dst.Batch.Workers = src.Batch.Workers
	}
	if s := strings.TrimSpace(src.Logging.Level); s != "" {
		dst.Logging.Level = strings.ToLower(s)
	}
	if s := strings.TrimSpace(src.Logging.Format); s != "" {
		dst.Logging.Format = strings.ToLower(s)
	}
	dst.Logging.Source = src.Logging.Source
	if s := strings.TrimSpace(src.Logging.File); s != "" {
		dst.Logging.File = s
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(strings.TrimSpace(v))
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvStrict)); v != "" {
		cfg.Decode.Strict = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvIndexPath)); v != "" {
		cfg.Index.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCatalogDSN)); v != "" {
		cfg.Catalog.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvWorkers)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Batch.Workers = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvExportFormat)); v != "" {
		cfg.Export.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the dotted key is overridden by the environment.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := envKeys[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}
