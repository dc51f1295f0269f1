// Copyright 2025 Antfly, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cmd holds the spanalign subcommands.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/antflydb/antfly-go/libaf/logging"
	"github.com/antflydb/spanalign"
	"github.com/antflydb/spanalign/lib/document"
	"github.com/antflydb/spanalign/lib/tokenizer"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Version is set by main from the build.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "spanalign",
	Short: "Align extracted triplets to document spans and score them",
	Long: `spanalign anchors free-text (subject, predicate, object) triplets to token
spans of their source documents and scores predicted span triplets against
reference annotations.`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

// Execute runs the root command.
func Execute() {
	rootCmd.Version = Version
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	defaults := spanalign.DefaultConfig()

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./spanalign.yaml or $HOME/.spanalign.yaml)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-style", "terminal", "log style (terminal, json)")
	pf.String("tokenizer", defaults.Tokenizer, fmt.Sprintf("document tokenizer (%s, %s)", document.TokenizerRule, document.TokenizerProse))
	pf.String("counter", defaults.Counter, fmt.Sprintf("token counter for budgets: a tiktoken encoding or %q", tokenizer.CounterWhitespace))
	pf.Int("workers", 0, "documents processed concurrently (0 = GOMAXPROCS)")
	pf.Duration("cache-ttl", defaults.CacheTTL, "how long tokenized documents stay cached")
	pf.StringSlice("strategies", nil, "resolution strategies in order, e.g. span/sentence/exact (default all)")
	pf.String("metrics-file", "", "write prometheus metrics to this textfile after the run")

	mustBindPFlag("log.level", pf.Lookup("log-level"))
	mustBindPFlag("log.style", pf.Lookup("log-style"))
	mustBindPFlag("tokenizer", pf.Lookup("tokenizer"))
	mustBindPFlag("counter", pf.Lookup("counter"))
	mustBindPFlag("workers", pf.Lookup("workers"))
	mustBindPFlag("cache_ttl", pf.Lookup("cache-ttl"))
	mustBindPFlag("strategies", pf.Lookup("strategies"))
	mustBindPFlag("metrics_file", pf.Lookup("metrics-file"))
}

func mustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

func initConfig(cmd *cobra.Command, args []string) error {
	viper.SetEnvPrefix("SPANALIGN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("spanalign")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
	}
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

// newLogger builds the logger from log.level and log.style.
func newLogger() *zap.Logger {
	return logging.NewLogger(&logging.Config{
		Level: logging.Level(viper.GetString("log.level")),
		Style: logging.Style(viper.GetString("log.style")),
	})
}

// configFromViper builds the pipeline config from flags, file and env.
func configFromViper() spanalign.Config {
	cfg := spanalign.DefaultConfig()
	cfg.Tokenizer = viper.GetString("tokenizer")
	cfg.Counter = viper.GetString("counter")
	cfg.Workers = viper.GetInt("workers")
	cfg.CacheTTL = viper.GetDuration("cache_ttl")
	cfg.Strategies = viper.GetStringSlice("strategies")
	cfg.MetricsFile = viper.GetString("metrics_file")
	if viper.IsSet("max_tokens") {
		cfg.MaxTokens = viper.GetInt("max_tokens")
	}
	return cfg
}

// runPipeline builds a logger and pipeline, runs fn, and writes the metrics
// textfile when one is configured.
func runPipeline(fn func(p *spanalign.Pipeline, logger *zap.Logger) error) error {
	logger := newLogger()
	defer func() {
		_ = logger.Sync()
	}()

	cfg := configFromViper()
	p, err := spanalign.NewPipeline(cfg, spanalign.WithLogger(logger))
	if err != nil {
		return err
	}
	defer p.Close()

	runErr := fn(p, logger)
	if cfg.MetricsFile != "" {
		if err := spanalign.WriteMetrics(cfg.MetricsFile); err != nil {
			return errors.Join(runErr, err)
		}
		logger.Debug("Wrote metrics", zap.String("path", cfg.MetricsFile))
	}
	return runErr
}

// openInput opens path for reading; "" and "-" mean stdin.
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	return f, nil
}

// createOutput creates path for writing; "" and "-" mean stdout.
func createOutput(cmd *cobra.Command, path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopWriteCloser{cmd.OutOrStdout()}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating output: %w", err)
	}
	return f, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// writeOutput writes values as JSON Lines to path.
func writeOutput[T any](cmd *cobra.Command, path string, values []T) (err error) {
	w, err := createOutput(cmd, path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, w.Close())
	}()
	return spanalign.WriteJSONLines(w, values)
}
