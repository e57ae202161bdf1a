// The MIT License (MIT)

// Copyright (c) 2017-2020 Uber Technologies Inc.

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package config

import (
	"fmt"
	"os"
	"path/filepath"

	uconfig "go.uber.org/config"
)

const (
	// EnvKeyRoot the environment variable key for runtime root dir
	EnvKeyRoot = "STORMD_ROOT"
	// EnvKeyConfigDir the environment variable key for config dir
	EnvKeyConfigDir = "STORMD_CONFIG_DIR"
	// EnvKeyEnvironment is the environment variable key for environment
	EnvKeyEnvironment = "STORMD_ENVIRONMENT"

	baseFile       = "base.yaml"
	envDevelopment = "development"
	fileSuffixYaml = ".yaml"
)

// Load reads <configDir>/base.yaml and then layers <configDir>/<env>.yaml on
// top of it when present. ${VAR} references are expanded from the process
// environment using lookupEnv, or os.LookupEnv when it is nil.
func Load(env string, configDir string, lookupEnv LookupEnvFunc, cfg *Config) error {
	if env == "" {
		env = envDevelopment
	}
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}

	files, err := getConfigFiles(env, configDir)
	if err != nil {
		return err
	}

	options := make([]uconfig.YAMLOption, 0, len(files)+1)
	for _, f := range files {
		options = append(options, uconfig.File(f))
	}
	options = append(options, uconfig.Expand(lookupEnv))

	provider, err := uconfig.NewYAML(options...)
	if err != nil {
		return fmt.Errorf("read config files %v: %w", files, err)
	}
	if err := provider.Get(uconfig.Root).Populate(cfg); err != nil {
		return fmt.Errorf("populate config: %w", err)
	}
	return nil
}

// getConfigFiles returns the files to load in order of increasing precedence.
// base.yaml is required, the environment file is optional.
func getConfigFiles(env string, configDir string) ([]string, error) {
	base := filepath.Join(configDir, baseFile)
	if _, err := os.Stat(base); err != nil {
		return nil, fmt.Errorf("no config found at %s: %w", base, err)
	}
	files := []string{base}

	envFile := filepath.Join(configDir, env+fileSuffixYaml)
	if _, err := os.Stat(envFile); err == nil {
		files = append(files, envFile)
	}
	return files, nil
}
