// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Fantom-foundation/Ember/go/chainspec"
	cliUtils "github.com/Fantom-foundation/Ember/go/driver/cli"
	"github.com/Fantom-foundation/Ember/go/vm"
	"github.com/dsnet/golib/unitconv"
	"github.com/urfave/cli/v2"
)

var RunCmd = cliUtils.AddCommonFlags(cli.Command{
	Action:    doRun,
	Name:      "run",
	Usage:     "Executes the transactions of a scenario and prints their receipts",
	ArgsUsage: "<scenario.json>",
	Flags: []cli.Flag{
		cliUtils.ForkFlag,
		cliUtils.TraceFlag,
		cliUtils.StatsFlag,
		cliUtils.LocalFlag,
	},
})

func doRun(context *cli.Context) error {
	if context.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one scenario file, got %d arguments", context.Args().Len())
	}
	scenario, err := loadScenario(context.Args().First())
	if err != nil {
		return err
	}

	fork, override, err := cliUtils.ForkFlag.Fetch(context)
	if err != nil {
		return err
	}
	if override {
		scenario.Fork = fork
	}
	spec, err := chainspec.ForFork(scenario.Fork)
	if err != nil {
		return err
	}

	config := vm.Config{
		WithStatistics: cliUtils.StatsFlag.Fetch(context),
	}
	if cliUtils.TraceFlag.Fetch(context) {
		config.Trace = context.App.ErrWriter
		if config.Trace == nil {
			config.Trace = os.Stderr
		}
	}
	interpreter, err := vm.NewInterpreter(spec, config)
	if err != nil {
		return err
	}

	out := context.App.Writer
	if out == nil {
		out = os.Stdout
	}

	start := time.Now()
	outcome, err := scenario.run(interpreter, cliUtils.LocalFlag.Fetch(context))
	if err != nil {
		return err
	}
	duration := time.Since(start)

	if err := printOutcome(out, outcome); err != nil {
		return err
	}
	if config.WithStatistics {
		if err := interpreter.DumpProfile(out); err != nil {
			return err
		}
	}

	rate := float64(outcome.GasUsed) / duration.Seconds()
	fmt.Fprintf(out, "Executed %d transactions on %v, skipped %d, %d gas in %v (%sgas/s)\n",
		len(outcome.Receipts), scenario.Fork, len(outcome.Skipped), outcome.GasUsed,
		duration.Round(time.Microsecond), unitconv.FormatPrefix(rate, unitconv.SI, 0),
	)

	return scenario.check(outcome)
}

func printOutcome(out io.Writer, outcome *Outcome) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(outcome)
}
