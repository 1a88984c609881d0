// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package cliUtils

import (
	"fmt"
	"os"
	"runtime/pprof"

	"github.com/Fantom-foundation/Ember/go/ember"
	"github.com/urfave/cli/v2"
)

type forkFlagType struct {
	cli.StringFlag
}

var ForkFlag = &forkFlagType{
	cli.StringFlag{
		Name:    "fork",
		Aliases: []string{"f"},
		Usage:   "fork to execute transactions with, overrides the fork of the scenario",
	},
}

// Fetch returns the selected fork. The second result is false if no fork was
// selected.
func (f *forkFlagType) Fetch(context *cli.Context) (ember.Fork, bool, error) {
	name := context.String(f.Name)
	if name == "" {
		return 0, false, nil
	}
	fork, err := ember.ParseFork(name)
	if err != nil {
		return 0, false, err
	}
	return fork, true, nil
}

type traceFlagType struct {
	cli.BoolFlag
}

var TraceFlag = &traceFlagType{
	cli.BoolFlag{
		Name:  "trace",
		Usage: "log every executed instruction to stderr",
	},
}

func (f *traceFlagType) Fetch(context *cli.Context) bool {
	return context.Bool(f.Name)
}

type statsFlagType struct {
	cli.BoolFlag
}

var StatsFlag = &statsFlagType{
	cli.BoolFlag{
		Name:  "stats",
		Usage: "collect and print instruction statistics",
	},
}

func (f *statsFlagType) Fetch(context *cli.Context) bool {
	return context.Bool(f.Name)
}

type localFlagType struct {
	cli.BoolFlag
}

var LocalFlag = &localFlagType{
	cli.BoolFlag{
		Name:  "local",
		Usage: "run transactions as local calls, without validation and gas purchase",
	},
}

func (f *localFlagType) Fetch(context *cli.Context) bool {
	return context.Bool(f.Name)
}

var commonFlags = []cli.Flag{
	cpuProfileFlag,
}

var cpuProfileFlag = &cli.StringFlag{
	Name:  "cpuprofile",
	Usage: "store CPU profile in the provided filename",
}

func AddCommonFlags(command cli.Command) cli.Command {
	command.Flags = append(command.Flags, commonFlags...)

	action := command.Action
	command.Action = func(ctx *cli.Context) (err error) {

		if cpuprofileFilename := ctx.String(cpuProfileFlag.Name); cpuprofileFilename != "" {
			f, err := os.Create(cpuprofileFilename)
			if err != nil {
				return fmt.Errorf("could not create CPU profile: %w", err)
			}
			if err := pprof.StartCPUProfile(f); err != nil {
				return fmt.Errorf("could not start CPU profile: %w", err)
			}
			defer pprof.StopCPUProfile()
		}

		return action(ctx)
	}
	return command
}
