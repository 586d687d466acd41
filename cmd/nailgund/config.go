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
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// serverConfig is the layered configuration for `nailgund serve`: flags
// override environment variables (NAILGUN_*) which override the YAML
// config file which override the flag defaults registered in serve.go. A
// missing config file at the default path is skipped.
type serverConfig struct {
	Addr               string  `mapstructure:"addr"`
	Pipe               string  `mapstructure:"pipe"`
	PoolCapacity       int     `mapstructure:"pool-capacity"`
	IdleHighWater      int     `mapstructure:"idle-high-water"`
	RejectNew          bool    `mapstructure:"reject-new"`
	SpawnBurstsPerSec  float64 `mapstructure:"spawn-bursts-per-second"`
	HeartbeatTimeoutMs int     `mapstructure:"heartbeat-timeout-ms"`
	MaxHeaderChunk     int     `mapstructure:"max-header-chunk"`
	MaxStdinChunk      int     `mapstructure:"max-stdin-chunk"`
	LogLevel           string  `mapstructure:"log-level"`
}

func defaultConfigPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".nailgund.yaml"), nil
}

func loadConfig(v *viper.Viper, explicitPath string) (serverConfig, error) {
	v.SetEnvPrefix("nailgun")
	v.AutomaticEnv()

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		path, err := defaultConfigPath()
		if err != nil {
			return serverConfig{}, err
		}
		v.SetConfigFile(path)
	}
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		missingDefault := explicitPath == "" && errors.Is(err, fs.ErrNotExist)
		if !notFound && !missingDefault {
			return serverConfig{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg serverConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return serverConfig{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}
