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
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/multierr"
)

const (
	// StoreTypeEtcd keeps cluster state in etcd.
	StoreTypeEtcd = "etcd"
	// StoreTypeMemory keeps cluster state in process, for local runs and tests.
	StoreTypeMemory = "memory"

	// DefaultPort is the first worker slot port, matching the usual supervisor.slots.ports.
	DefaultPort = 6700
)

type (
	// Config contains the configuration shared by the nimbus and supervisor daemons.
	Config struct {
		// Log is the logging config
		Log Logger `yaml:"log"`
		// Store is the coordination store config
		Store Store `yaml:"store"`
		// Nimbus is the master daemon config
		Nimbus Nimbus `yaml:"nimbus"`
		// Supervisor is the node agent config
		Supervisor Supervisor `yaml:"supervisor"`
		// Metrics is the metrics reporting config
		Metrics Metrics `yaml:"metrics"`
		// Sentry is the crash reporting config used when a daemon fails fast
		Sentry Sentry `yaml:"sentry"`
		// ShutdownTimeout bounds graceful shutdown before the process is halted
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	}

	// Logger contains the config items for logger
	Logger struct {
		// Stdout is true if the output needs to goto standard out
		Stdout bool `yaml:"stdout"`
		// Level is the desired log level
		Level string `yaml:"level"`
		// OutputFile is the path to the log output file
		OutputFile string `yaml:"outputFile"`
		// Encoding decides the format, supports "console" and "json".
		// "json" will print the log in JSON format(better for machine), while "console" will print in plain-text format(more human friendly)
		// Default is "json"
		Encoding string `yaml:"encoding"`
	}

	// Store selects and configures the coordination store
	Store struct {
		Type string `yaml:"type"`
		Etcd Etcd   `yaml:"etcd"`
	}

	// Etcd configures the etcd backed store
	Etcd struct {
		Endpoints   []string      `yaml:"endpoints"`
		DialTimeout time.Duration `yaml:"dialTimeout"`
		// Prefix namespaces every key written by the cluster
		Prefix string `yaml:"prefix"`
	}

	// Nimbus configures the master daemon
	Nimbus struct {
		// TransitionTimeout bounds how long a caller waits for a submitted transition
		TransitionTimeout time.Duration `yaml:"transitionTimeout"`
	}

	// Supervisor configures the node agent
	Supervisor struct {
		// ID identifies the node in assignments. A random id is generated when empty.
		ID       string `yaml:"id"`
		Hostname string `yaml:"hostname"`
		// Ports are the worker slots this node offers
		Ports []int `yaml:"ports"`

		HeartbeatInterval time.Duration `yaml:"heartbeatInterval"`
		SyncInterval      time.Duration `yaml:"syncInterval"`
		MonitorInterval   time.Duration `yaml:"monitorInterval"`
		// WorkerTimeout is how long a running worker may go without a heartbeat
		WorkerTimeout time.Duration `yaml:"workerTimeout"`
		// WorkerStartTimeout is the grace period before a new worker's first heartbeat
		WorkerStartTimeout time.Duration `yaml:"workerStartTimeout"`
		// KillWorkersOnShutdown stops every local worker when the supervisor exits
		KillWorkersOnShutdown bool `yaml:"killWorkersOnShutdown"`

		Worker WorkerLaunch `yaml:"worker"`
	}

	// WorkerLaunch describes how the local process controller launches a worker
	WorkerLaunch struct {
		Command string            `yaml:"command"`
		Args    []string          `yaml:"args"`
		WorkDir string            `yaml:"workDir"`
		Env     map[string]string `yaml:"env"`
	}

	// Metrics configures tally
	Metrics struct {
		Prefix         string            `yaml:"prefix"`
		Tags           map[string]string `yaml:"tags"`
		ReportInterval time.Duration     `yaml:"reportInterval"`
		// Prometheus exposes metrics over HTTP when set
		Prometheus *Prometheus `yaml:"prometheus"`
	}

	// Prometheus configures the prometheus reporter
	Prometheus struct {
		ListenAddress string `yaml:"listenAddress"`
		HandlerPath   string `yaml:"handlerPath"`
		TimerType     string `yaml:"timerType"`
	}

	// Sentry configures crash reporting
	Sentry struct {
		DSN          string        `yaml:"dsn"`
		Environment  string        `yaml:"environment"`
		FlushTimeout time.Duration `yaml:"flushTimeout"`
	}
)

func (c *Config) fillDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Encoding == "" {
		c.Log.Encoding = "json"
	}
	if c.Log.OutputFile == "" {
		c.Log.Stdout = true
	}

	if c.Store.Type == "" {
		c.Store.Type = StoreTypeEtcd
	}
	if c.Store.Etcd.DialTimeout == 0 {
		c.Store.Etcd.DialTimeout = 5 * time.Second
	}
	if c.Store.Etcd.Prefix == "" {
		c.Store.Etcd.Prefix = "/stormd"
	}

	if c.Nimbus.TransitionTimeout == 0 {
		c.Nimbus.TransitionTimeout = 30 * time.Second
	}

	c.Supervisor.fillDefaults()

	if c.Metrics.Prefix == "" {
		c.Metrics.Prefix = "stormd"
	}
	if c.Metrics.ReportInterval == 0 {
		c.Metrics.ReportInterval = time.Second
	}

	if c.Sentry.FlushTimeout == 0 {
		c.Sentry.FlushTimeout = 2 * time.Second
	}

	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = time.Second
	}
}

func (s *Supervisor) fillDefaults() {
	if s.Hostname == "" {
		if host, err := os.Hostname(); err == nil {
			s.Hostname = host
		}
	}
	if len(s.Ports) == 0 {
		s.Ports = []int{DefaultPort, DefaultPort + 1, DefaultPort + 2, DefaultPort + 3}
	}
	if s.HeartbeatInterval == 0 {
		s.HeartbeatInterval = 5 * time.Second
	}
	if s.SyncInterval == 0 {
		s.SyncInterval = 10 * time.Second
	}
	if s.MonitorInterval == 0 {
		s.MonitorInterval = 3 * time.Second
	}
	if s.WorkerTimeout == 0 {
		s.WorkerTimeout = 30 * time.Second
	}
	if s.WorkerStartTimeout == 0 {
		s.WorkerStartTimeout = 120 * time.Second
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs error
	switch c.Store.Type {
	case StoreTypeMemory:
	case StoreTypeEtcd:
		if len(c.Store.Etcd.Endpoints) == 0 {
			errs = multierr.Append(errs, errors.New("store.etcd.endpoints must not be empty"))
		}
	default:
		errs = multierr.Append(errs, fmt.Errorf("unknown store type %q", c.Store.Type))
	}

	seen := make(map[int]struct{}, len(c.Supervisor.Ports))
	for _, port := range c.Supervisor.Ports {
		if port <= 0 || port > 65535 {
			errs = multierr.Append(errs, fmt.Errorf("supervisor port %d out of range", port))
		}
		if _, ok := seen[port]; ok {
			errs = multierr.Append(errs, fmt.Errorf("supervisor port %d listed twice", port))
		}
		seen[port] = struct{}{}
	}
	if c.Supervisor.MonitorInterval < 0 || c.Supervisor.SyncInterval < 0 || c.Supervisor.HeartbeatInterval < 0 {
		errs = multierr.Append(errs, errors.New("supervisor intervals must not be negative"))
	}
	if c.ShutdownTimeout < 0 {
		errs = multierr.Append(errs, errors.New("shutdownTimeout must not be negative"))
	}
	return errs
}
