// MIT License
//
// Copyright (c) 2024 The Nailgun Authors
//
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

package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bhamiltoncx/nailgun"
	"github.com/bhamiltoncx/nailgun/internal/nlog"
	"github.com/bhamiltoncx/nailgun/internal/registry"
	"github.com/bhamiltoncx/nailgun/internal/transport"
)

func newServeCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the nailgun daemon, accepting connections and dispatching nails",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return fmt.Errorf("binding flags: %w", err)
			}
			cfg, err := loadConfig(v, configPath)
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file (default $HOME/.nailgund.yaml)")
	cmd.Flags().String("addr", "127.0.0.1:2113", "TCP address to listen on")
	cmd.Flags().String("pipe", "", "Windows named pipe path to listen on instead of TCP (e.g. \\\\.\\pipe\\nailgund)")
	cmd.Flags().Int("pool-capacity", 64, "maximum number of simultaneously live session workers")
	cmd.Flags().Int("idle-high-water", 16, "number of idle workers kept around for reuse")
	cmd.Flags().Bool("reject-new", false, "reject new connections instead of blocking once pool-capacity is reached")
	cmd.Flags().Float64("spawn-bursts-per-second", 0, "with reject-new, cap how often a brand new worker may be spawned (0 disables)")
	cmd.Flags().Int("heartbeat-timeout-ms", nailgun.DefaultHeartbeatMs, "milliseconds a session may go without client activity before it is torn down")
	cmd.Flags().Int("max-header-chunk", nailgun.DefaultMaxHeaderChunk, "maximum bytes in a single header chunk payload")
	cmd.Flags().Int("max-stdin-chunk", nailgun.DefaultMaxStdinChunk, "maximum bytes in a single stdin chunk payload")
	cmd.Flags().String("log-level", "info", "log level: trace, debug, info, warn, error")

	return cmd
}

func runServe(cfg serverConfig) error {
	log := nlog.New("nailgund", cfg.LogLevel)

	heartbeat := time.Duration(cfg.HeartbeatTimeoutMs) * time.Millisecond
	reg := registry.New(heartbeat, log.Named("registry"))
	registry.RegisterDemoHandlers(reg)

	server := nailgun.NewServer(reg, nailgun.Config{
		Pool: nailgun.PoolConfig{
			Capacity:             cfg.PoolCapacity,
			IdleHighWater:        cfg.IdleHighWater,
			RejectNew:            cfg.RejectNew,
			SpawnBurstsPerSecond: cfg.SpawnBurstsPerSec,
		},
		MaxHeaderChunk:  cfg.MaxHeaderChunk,
		MaxStdinChunk:   cfg.MaxStdinChunk,
		OutputBlockSize: nailgun.DefaultOutputBlock,
		Logger:          log.Named("server"),
	})

	var ln net.Listener
	var err error
	if cfg.Pipe != "" {
		ln, err = transport.NewPipe(cfg.Pipe)
	} else {
		ln, err = transport.NewTCP(cfg.Addr)
	}
	if err != nil {
		return fmt.Errorf("binding listener: %w", err)
	}
	log.Info("listening", "addr", ln.Addr().String())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received, draining in-flight sessions")
		server.Shutdown()
		ln.Close()
	}()

	if err := server.Serve(ln); err != nil {
		log.Error("server exited", "error", err)
		return err
	}
	return nil
}
