/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config loads the operator's single, unified configuration schema:
// compiled-in defaults, optionally overlaid by a YAML file, optionally
// overlaid again by DEVSERVER_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/api/resource"
)

// EnvPrefix is prepended to the upper-snake-cased key name to form the
// overriding environment variable, e.g. expirationInterval -> DEVSERVER_EXPIRATION_INTERVAL.
const EnvPrefix = "DEVSERVER_"

// DefaultConfigPath is where the operator looks for a config file absent an
// explicit override.
const DefaultConfigPath = "/etc/devserver-operator/config.yaml"

// OperatorConfig is the unified schema covering both configuration shapes
// found in original_source/ (one carrying expirationInterval/workerLimit,
// the other carrying only defaultPersistentHomeSize) — spec.md §9's Open
// Question, resolved by merging both key sets into one struct.
type OperatorConfig struct {
	ExpirationInterval           int    `yaml:"expirationInterval"`
	FlavorReconciliationInterval int    `yaml:"flavorReconciliationInterval"`
	WorkerLimit                  int    `yaml:"workerLimit"`
	PostingEnabled                bool   `yaml:"postingEnabled"`
	DefaultDevServerImage        string `yaml:"defaultDevserverImage"`
	StaticDependenciesImage      string `yaml:"staticDependenciesImage"`
	DefaultPersistentHomeSize    string `yaml:"defaultPersistentHomeSize"`
}

// Defaults returns the compiled-in defaults from spec.md §6's table.
func Defaults() OperatorConfig {
	return OperatorConfig{
		ExpirationInterval:           60,
		FlavorReconciliationInterval: 60,
		WorkerLimit:                  1,
		PostingEnabled:               false,
		DefaultDevServerImage:        "ghcr.io/devserver-io/devserver:latest",
		StaticDependenciesImage:      "ghcr.io/devserver-io/devserver-static-deps:latest",
		DefaultPersistentHomeSize:    "10Gi",
	}
}

// Load builds the effective configuration: defaults, then path (if it
// exists; a missing optional file is not an error), then environment
// overrides.
func Load(path string) (OperatorConfig, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return OperatorConfig{}, fmt.Errorf("parse config file %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// optional file, absence is fine
		default:
			return OperatorConfig{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}

func applyEnvOverrides(cfg *OperatorConfig) {
	if v, ok := envInt("expirationInterval"); ok {
		cfg.ExpirationInterval = v
	}
	if v, ok := envInt("flavorReconciliationInterval"); ok {
		cfg.FlavorReconciliationInterval = v
	}
	if v, ok := envInt("workerLimit"); ok {
		cfg.WorkerLimit = v
	}
	if v, ok := envBool("postingEnabled"); ok {
		cfg.PostingEnabled = v
	}
	if v, ok := envString("defaultDevserverImage"); ok {
		cfg.DefaultDevServerImage = v
	}
	if v, ok := envString("staticDependenciesImage"); ok {
		cfg.StaticDependenciesImage = v
	}
	if v, ok := envString("defaultPersistentHomeSize"); ok {
		cfg.DefaultPersistentHomeSize = v
	}
}

// envName upper-snake-cases a camelCase config key and prefixes it, e.g.
// "expirationInterval" -> "DEVSERVER_EXPIRATION_INTERVAL".
func envName(key string) string {
	var b strings.Builder
	for i, r := range key {
		if r >= 'A' && r <= 'Z' && i > 0 {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return EnvPrefix + strings.ToUpper(b.String())
}

func envString(key string) (string, bool) {
	v, ok := os.LookupEnv(envName(key))
	return v, ok
}

func envInt(key string) (int, bool) {
	raw, ok := os.LookupEnv(envName(key))
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func envBool(key string) (bool, bool) {
	raw, ok := os.LookupEnv(envName(key))
	if !ok {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// PersistentHomeQuantity parses DefaultPersistentHomeSize into a
// resource.Quantity for use by internal/resources.
func (c OperatorConfig) PersistentHomeQuantity() (resource.Quantity, error) {
	return resource.ParseQuantity(c.DefaultPersistentHomeSize)
}
