// Copyright 2026 Balioune Networks
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// ofcls inspects classifier rule sets and replays captured traffic
// against them.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/balioune/ovs/pkg/classifier"
)

func main() {
	executable := filepath.Base(os.Args[0])
	cmd := &cobra.Command{
		Use:           executable,
		Short:         "Flow classifier rule set tool",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
	}
	cmd.AddCommand(
		newDump(),
		newMatch(),
	)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func setupLog(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	cfg.DisableStacktrace = true
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	return cfg.Build()
}

func parseInclude(s string) (classifier.Include, error) {
	switch s {
	case "exact":
		return classifier.IncludeExact, nil
	case "wild":
		return classifier.IncludeWild, nil
	case "all":
		return classifier.IncludeAll, nil
	default:
		return 0, errors.Errorf("unknown include %q, want exact, wild or all", s)
	}
}
