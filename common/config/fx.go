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

	"go.uber.org/fx"
)

// Module provides the daemon Config loaded from the config directory.
var Module = fx.Module("configfx",
	fx.Provide(New),
)

// Context is the runtime context the config is loaded for.
type Context struct {
	Environment string
}

// Params defines the dependencies of the configfx module.
type Params struct {
	fx.In

	Context   Context
	LookupEnv LookupEnvFunc `optional:"true"`
	ConfigDir string        `name:"config-dir"`

	Lifecycle fx.Lifecycle
}

// LookupEnvFunc returns the value of the environment variable given by key.
// It should behave the same as `os.LookupEnv`.
type LookupEnvFunc func(key string) (string, bool)

// New loads, defaults and validates the config.
func New(p Params) (Config, error) {
	var cfg Config
	if err := Load(p.Context.Environment, p.ConfigDir, p.LookupEnv, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	cfg.fillDefaults()

	p.Lifecycle.Append(fx.StartHook(cfg.Validate))

	return cfg, nil
}

// NewForTest returns a defaulted config for the in-memory store, applying overrides on top.
func NewForTest(overrides ...func(*Config)) Config {
	cfg := Config{
		Store: Store{Type: StoreTypeMemory},
	}
	for _, o := range overrides {
		o(&cfg)
	}
	cfg.fillDefaults()
	return cfg
}
