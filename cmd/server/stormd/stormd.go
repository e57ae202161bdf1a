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

package stormd

import (
	"context"
	"fmt"
	stdLog "log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/fx"

	"github.com/yawfe/stormd/common/config"
	"github.com/yawfe/stormd/common/log"
	"github.com/yawfe/stormd/common/log/tag"
)

const (
	nimbusDaemon     = "nimbus"
	supervisorDaemon = "supervisor"

	// haltExitCode is used when graceful shutdown does not finish in time.
	haltExitCode = 20
)

// halt terminates the process.
var halt = os.Exit

// fxAppInterface is the part of fx.App the daemon runner needs.
type fxAppInterface interface {
	Start(context.Context) error
	Stop(context.Context) error
	Done() <-chan os.Signal
}

// BuildCLI is the main entry point for the stormd server
func BuildCLI(releaseVersion string, gitRevision string) *cli.App {
	app := cli.NewApp()
	app.Name = "stormd"
	app.Usage = "Storm cluster daemons"
	app.Version = fmt.Sprintf("%v (commit %v)", releaseVersion, gitRevision)
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "root",
			Aliases: []string{"r"},
			Value:   ".",
			Usage:   "root directory of execution environment",
			EnvVars: []string{config.EnvKeyRoot},
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Value:   "config",
			Usage:   "config dir is a path relative to root, or an absolute path",
			EnvVars: []string{config.EnvKeyConfigDir},
		},
		&cli.StringFlag{
			Name:    "env",
			Aliases: []string{"e"},
			Value:   "development",
			Usage:   "runtime environment",
			EnvVars: []string{config.EnvKeyEnvironment},
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:  nimbusDaemon,
			Usage: "start the master daemon",
			Action: func(c *cli.Context) error {
				return runDaemon(nimbusDaemon, newFxApp(c, nimbusDaemon))
			},
		},
		{
			Name:  supervisorDaemon,
			Usage: "start the node agent",
			Action: func(c *cli.Context) error {
				return runDaemon(supervisorDaemon, newFxApp(c, supervisorDaemon))
			},
		},
	}
	return app
}

// daemonApp is an fx app together with what its shutdown needs.
type daemonApp struct {
	fxAppInterface
	shutdownTimeout time.Duration
	logger          log.Logger
}

func newFxApp(c *cli.Context, daemon string) daemonApp {
	var app daemonApp
	app.fxAppInterface = fx.New(
		fx.Provide(func() appContext {
			return appContext{
				CfgContext: config.Context{Environment: getEnvironment(c)},
				ConfigDir:  getConfigDir(c),
			}
		}),
		_commonModule,
		Module(daemon),
		fx.Invoke(func(cfg config.Config, logger log.Logger) {
			app.shutdownTimeout = cfg.ShutdownTimeout
			app.logger = logger
		}),
	)
	return app
}

// runDaemon starts app, blocks until a shutdown signal and stops it. A stop
// that outlives the shutdown timeout halts the process.
func runDaemon(daemon string, app daemonApp) error {
	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("start %v: %w", daemon, err)
	}

	// Block until FX receives a shutdown signal
	<-app.Done()

	timeout := app.shutdownTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	watchdog := time.AfterFunc(timeout, func() {
		if app.logger != nil {
			app.logger.Error("Graceful shutdown timed out, halting.", tag.Service(daemon), tag.Timeout(timeout))
		}
		halt(haltExitCode)
	})
	defer watchdog.Stop()

	stopCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return app.Stop(stopCtx)
}

type appContext struct {
	fx.Out

	CfgContext config.Context
	ConfigDir  string `name:"config-dir"`
}

func getEnvironment(c *cli.Context) string {
	return strings.TrimSpace(c.String("env"))
}

func getConfigDir(c *cli.Context) string {
	return constructPathIfNeed(getRootDir(c), c.String("config"))
}

func getRootDir(c *cli.Context) string {
	dirpath := c.String("root")
	if len(dirpath) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			stdLog.Fatalf("os.Getwd() failed, err=%v", err)
		}
		return cwd
	}
	return dirpath
}

// constructPathIfNeed would append the dir as the root dir
// when the file wasn't absolute path.
func constructPathIfNeed(dir string, file string) string {
	if !filepath.IsAbs(file) {
		return filepath.Join(dir, file)
	}
	return file
}
