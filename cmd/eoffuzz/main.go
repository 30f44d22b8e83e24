// Copyright 2025 The go-eoffuzz Authors
// This file is part of go-eoffuzz.
//
// go-eoffuzz is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-eoffuzz is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-eoffuzz. If not, see <http://www.gnu.org/licenses/>.

// eoffuzz mutates EOF state-test fixtures and runs them through multiple VM
// implementations, flagging consensus splits.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum/go-eoffuzz/fuzzer"
)

var (
	corpusFlag = &cli.StringFlag{
		Name:     "corpus",
		Usage:    "Directory with seed state-test fixtures",
		Required: true,
	}
	workdirFlag = &cli.StringFlag{
		Name:  "workdir",
		Usage: "Working directory for mutated fixtures and runner output",
		Value: "eoffuzz-work",
	}
	stepsFlag = &cli.IntFlag{
		Name:  "steps",
		Usage: "Number of mutation rounds to run",
		Value: 100,
	}
	seedFlag = &cli.Int64Flag{
		Name:  "seed",
		Usage: "Random seed (0 derives one from the clock)",
	}
	runtestFlag = &cli.StringFlag{
		Name:  "runtest",
		Usage: "Path to the differential runtest binary (empty: mutate only)",
	}
	clientFlag = &cli.StringSliceFlag{
		Name:  "client",
		Usage: "Client to run as name=path, repeatable",
	}
	skipTraceFlag = &cli.BoolFlag{
		Name:  "skiptrace",
		Usage: "Pass --skiptrace to the runtest binary",
	}
	cleanupFlag = &cli.BoolFlag{
		Name:  "cleanup",
		Usage: "Delete a step's mutated fixtures once the step finishes",
	}
	prefixFlag = &cli.StringFlag{
		Name:  "prefix",
		Usage: "Filename prefix for mutated fixtures",
		Value: "mutated_test",
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: 3,
	}
)

var app = &cli.App{
	Name:   "eoffuzz",
	Usage:  "differential fuzzer for EOF bytecode containers",
	Action: run,
	Flags: []cli.Flag{
		corpusFlag,
		workdirFlag,
		stepsFlag,
		seedFlag,
		runtestFlag,
		clientFlag,
		skipTraceFlag,
		cleanupFlag,
		prefixFlag,
		verbosityFlag,
	},
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	handler := log.NewTerminalHandlerWithLevel(os.Stderr,
		log.FromLegacyLevel(ctx.Int(verbosityFlag.Name)), true)
	log.SetDefault(log.NewLogger(handler))

	clients, err := parseClients(ctx.StringSlice(clientFlag.Name))
	if err != nil {
		return err
	}
	seed := ctx.Int64(seedFlag.Name)
	if seed == 0 {
		seed = time.Now().UnixNano()
		log.Info("Derived random seed", "seed", seed)
	}
	f, err := fuzzer.New(fuzzer.Config{
		CorpusDir:     ctx.String(corpusFlag.Name),
		WorkDir:       ctx.String(workdirFlag.Name),
		Steps:         ctx.Int(stepsFlag.Name),
		Seed:          seed,
		RuntestBinary: ctx.String(runtestFlag.Name),
		Clients:       clients,
		SkipTrace:     ctx.Bool(skipTraceFlag.Name),
		CleanupTests:  ctx.Bool(cleanupFlag.Name),
		TestPrefix:    ctx.String(prefixFlag.Name),
	})
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Run()
}

func parseClients(specs []string) ([]fuzzer.Client, error) {
	clients := make([]fuzzer.Client, 0, len(specs))
	for _, spec := range specs {
		name, path, ok := strings.Cut(spec, "=")
		if !ok || name == "" || path == "" {
			return nil, fmt.Errorf("invalid client spec %q, want name=path", spec)
		}
		clients = append(clients, fuzzer.Client{Name: name, Path: path})
	}
	return clients, nil
}
