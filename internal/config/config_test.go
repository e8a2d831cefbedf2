/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type memStore map[string]string

func (m memStore) Get(service, key string) (string, error) {
	v, ok := m[service+"/"+key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}
func (m memStore) Set(service, key, value string) error { m[service+"/"+key] = value; return nil }
func (m memStore) Delete(service, key string) error     { delete(m, service+"/"+key); return nil }

func useTemp(t *testing.T) (string, memStore) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	store := memStore{}
	oldPath, oldStore := pathOverride, tokenStore
	pathOverride, tokenStore = path, store
	t.Cleanup(func() { pathOverride, tokenStore = oldPath, oldStore })
	for _, env := range envKeys {
		t.Setenv(env, "")
	}
	return path, store
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	useTemp(t)
	cfg, secret, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if secret != "" {
		t.Fatalf("unexpected secret %q", secret)
	}
	if !cfg.Decode.Variables || cfg.Decode.Strict || cfg.Export.Format != "json" || cfg.Batch.Workers < 1 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path, store := useTemp(t)
	cfg := Defaults()
	cfg.Decode.Strict = true
	cfg.Catalog.DSN = "postgres://localhost/sb"
	cfg.Catalog.User = "mapper"
	cfg.Batch.Workers = 3
	if err := Save(cfg, "hunter2"); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file missing: %v", err)
	}
	if store[keyringService+"/catalog:mapper"] != "hunter2" {
		t.Fatalf("password not stored in keychain: %v", store)
	}

	got, secret, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !got.Decode.Strict || got.Catalog.DSN != cfg.Catalog.DSN || got.Batch.Workers != 3 || secret != "hunter2" {
		t.Fatalf("round trip mismatch: %+v secret=%q", got, secret)
	}

	if err := ForgetCatalogPassword(got.Catalog); err != nil {
		t.Fatalf("ForgetCatalogPassword: %v", err)
	}
	if len(store) != 0 {
		t.Fatalf("password not removed: %v", store)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path, _ := useTemp(t)
	if err := os.WriteFile(path, []byte("index:\n  path: /tmp/sb.sqlite\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Index.Path != "/tmp/sb.sqlite" {
		t.Fatalf("index path = %q", cfg.Index.Path)
	}
	if !cfg.Decode.Variables || !cfg.Export.Validate {
		t.Fatalf("keys absent from the file should keep defaults: %+v", cfg)
	}
}

func TestEnvOverrides(t *testing.T) {
	useTemp(t)
	t.Setenv(EnvStrict, "yes")
	t.Setenv(EnvWorkers, "7")
	t.Setenv(EnvExportFormat, "YAML")
	t.Setenv(EnvLogLevel, "DEBUG")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.Decode.Strict || cfg.Batch.Workers != 7 || cfg.Export.Format != "yaml" || cfg.Logging.Level != "debug" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if env, ok := EnvOverrideFor("batch.workers"); !ok || env != EnvWorkers {
		t.Fatalf("EnvOverrideFor(batch.workers) = %q %v", env, ok)
	}
	if _, ok := EnvOverrideFor("index.path"); ok {
		t.Fatalf("index.path is not overridden")
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging = LoggingConfig{Level: " Debug ", Format: "json", Source: true, File: "/tmp/gsb.log"}
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "/tmp/gsb.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestSetCatalogPasswordLeavesFileUntouched(t *testing.T) {
	path, store := useTemp(t)
	base := Defaults()
	base.Catalog.User = "mapper"
	if err := Save(base, ""); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}

	t.Setenv(EnvCatalogDSN, "postgres://ci-only-host/db")
	t.Setenv(EnvStrict, "true")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Catalog.DSN != "postgres://ci-only-host/db" || !cfg.Decode.Strict {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if err := SetCatalogPassword(cfg.Catalog, "pw"); err != nil {
		t.Fatalf("SetCatalogPassword() error: %v", err)
	}
	if store[keyringService+"/catalog:mapper"] != "pw" {
		t.Fatalf("password not stored: %v", store)
	}
	after, _ := os.ReadFile(path)
	if !bytes.Equal(before, after) {
		t.Fatalf("config file changed:\n%s", after)
	}

	fileCfg, err := LoadFile()
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if fileCfg.Catalog.DSN != "" || fileCfg.Decode.Strict || fileCfg.Catalog.User != "mapper" {
		t.Fatalf("LoadFile should ignore env overrides: %+v", fileCfg)
	}

	t.Setenv(EnvCatalogDSN, "")
	t.Setenv(EnvStrict, "")
	got, secret, _ := Load()
	if got.Catalog.DSN != "" || got.Decode.Strict || secret != "pw" {
		t.Fatalf("env values leaked into the file: %+v secret=%q", got, secret)
	}
	if err := SetCatalogPassword(got.Catalog, ""); err == nil {
		t.Fatalf("expected error for empty password")
	}
}
