// Copyright 2025 The go-eoffuzz Authors
// This file is part of the go-eoffuzz library.
//
// The go-eoffuzz library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-eoffuzz library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-eoffuzz library. If not, see <http://www.gnu.org/licenses/>.

package fuzzer

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum/go-eoffuzz/mutate"
)

// Client names one VM implementation for the runtest binary, passed on as
// --<name> <path>.
type Client struct {
	Name string
	Path string
}

// Config carries every fuzzing knob. The zero value is not usable; at least
// CorpusDir and WorkDir must be set.
type Config struct {
	CorpusDir string
	WorkDir   string
	Steps     int
	Seed      int64

	// RuntestBinary is the external differential executor. When empty, the
	// mutation rounds still run but no clients are executed.
	RuntestBinary string
	Clients       []Client
	SkipTrace     bool

	// CleanupTests removes a step's mutated fixture files once the step
	// finishes.
	CleanupTests bool
	TestPrefix   string

	// Strategies and Validator default to the full strategy set and the
	// round-trip validator.
	Strategies []mutate.Strategy
	Validator  mutate.Validator
}

// Fuzzer holds the state of one differential fuzzing run over a corpus.
type Fuzzer struct {
	cfg     Config
	corpus  []*Entry
	mutator *mutate.Mutator
	rnd     *rand.Rand
	lock    *flock.Flock
}

// New loads the corpus, locks the working directory and prepares the
// mutator. Close must be called to release the directory lock.
func New(cfg Config) (*Fuzzer, error) {
	if cfg.TestPrefix == "" {
		cfg.TestPrefix = "mutated_test"
	}
	if cfg.Strategies == nil {
		cfg.Strategies = mutate.DefaultStrategies()
	}
	if cfg.Validator == nil {
		cfg.Validator = mutate.RoundTripValidator()
	}
	corpus, err := LoadCorpus(cfg.CorpusDir)
	if err != nil {
		return nil, fmt.Errorf("loading corpus: %w", err)
	}
	if len(corpus) == 0 {
		return nil, errors.New("empty corpus")
	}
	if err := os.MkdirAll(cfg.WorkDir, 0755); err != nil {
		return nil, err
	}
	lock := flock.New(filepath.Join(cfg.WorkDir, "LOCK"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, fmt.Errorf("work directory %s is in use", cfg.WorkDir)
	}
	return &Fuzzer{
		cfg:     cfg,
		corpus:  corpus,
		mutator: mutate.NewMutator(mutate.NewRegistry(cfg.Strategies...), cfg.Validator),
		rnd:     rand.New(rand.NewSource(cfg.Seed)),
		lock:    lock,
	}, nil
}

// Close releases the working directory lock.
func (f *Fuzzer) Close() error {
	return f.lock.Unlock()
}

// Run executes the configured number of fuzzing steps.
func (f *Fuzzer) Run() error {
	for step := 0; step < f.cfg.Steps; step++ {
		if err := f.runStep(step); err != nil {
			return err
		}
	}
	return nil
}

// runStep mutates the whole corpus once, writes it out and executes the
// differential runner against the fresh files.
func (f *Fuzzer) runStep(step int) error {
	f.mutateCorpus()
	if err := f.writeCorpus(step); err != nil {
		return err
	}
	if f.cfg.RuntestBinary != "" {
		if err := f.executeRuntest(step); err != nil {
			return err
		}
	}
	f.finishRound(step)
	return nil
}

// mutateCorpus runs one mutation round per corpus entry. Entries are
// independent (each owns a private container per mutation), so the round is
// fanned out across goroutines; a failing entry stays unmutated and never
// aborts the round.
func (f *Fuzzer) mutateCorpus() {
	// Seeds are drawn up front: the master source is not safe for
	// concurrent use.
	seeds := make([]int64, len(f.corpus))
	for i := range seeds {
		seeds[i] = f.rnd.Int63()
	}
	var g errgroup.Group
	for i, entry := range f.corpus {
		i, entry := i, entry
		g.Go(func() error {
			f.mutateEntry(entry, rand.New(rand.NewSource(seeds[i])))
			return nil
		})
	}
	// The closures never return an error; entries that fail keep their
	// previous code and are logged inside mutateEntry.
	_ = g.Wait()
}

// mutateEntry applies one mutation attempt to every EOF account of every
// fixture in the entry.
func (f *Fuzzer) mutateEntry(entry *Entry, rnd *rand.Rand) {
	defer func() {
		if r := recover(); r != nil {
			// A broken corpus entry must not take the run down; keep it
			// unmutated and move on.
			log.Error("Mutation panicked, keeping entry unmutated", "source", entry.Source, "err", r)
		}
	}()
	for name, fixture := range entry.Tests {
		ctx := contextFor(fixture)
		for addr, account := range fixture.Pre {
			if !account.IsEOF() {
				continue
			}
			mutated, res, err := f.mutator.MutateCode(account.Code, ctx, rnd)
			if err != nil {
				log.Warn("Mutation failed, keeping account", "test", name, "account", addr, "err", err)
				continue
			}
			if !res.Applied {
				log.Debug("Mutation skipped", "test", name, "account", addr, "reason", res.Desc)
				continue
			}
			account.Code = mutated
			fixture.Pre[addr] = account
			appendMutationLog(fixture, fmt.Sprintf("account %s: %s", addr, res.Desc))
		}
	}
}

func appendMutationLog(fixture *Fixture, line string) {
	if fixture.Info == nil {
		fixture.Info = map[string]any{}
	}
	prev, _ := fixture.Info["mutations"].(string)
	fixture.Info["mutations"] = prev + line + "\n"
}

// writeCorpus materializes the current corpus as one fixture file per entry.
func (f *Fuzzer) writeCorpus(step int) error {
	for idx, entry := range f.corpus {
		data, err := json.MarshalIndent(entry.Tests, "", "  ")
		if err != nil {
			return err
		}
		name := filepath.Join(f.cfg.WorkDir, fmt.Sprintf("%s_%d_%d.json", f.cfg.TestPrefix, step, idx))
		if err := os.WriteFile(name, data, 0644); err != nil {
			return err
		}
	}
	return nil
}

// executeRuntest spawns the external differential executor over the step's
// fixture files and quarantines any file it reports a consensus fault for.
func (f *Fuzzer) executeRuntest(step int) error {
	outputDir := filepath.Join(f.cfg.WorkDir, fmt.Sprintf("runtest_%s_%d", f.cfg.TestPrefix, step))
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}
	args := make([]string, 0, 2*len(f.cfg.Clients)+4)
	for _, client := range f.cfg.Clients {
		args = append(args, "--"+client.Name, client.Path)
	}
	args = append(args, "--outdir", outputDir)
	if f.cfg.SkipTrace {
		args = append(args, "--skiptrace")
	}
	pattern := filepath.Join(f.cfg.WorkDir, fmt.Sprintf("%s_%d_*.json", f.cfg.TestPrefix, step))
	args = append(args, pattern)

	argsFile := filepath.Join(outputDir, "runtest-args.txt")
	if err := os.WriteFile(argsFile, []byte(f.cfg.RuntestBinary+" "+strings.Join(args, " ")), 0644); err != nil {
		return err
	}

	cmd := exec.Command(f.cfg.RuntestBinary, args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	os.WriteFile(filepath.Join(outputDir, "runtest-out.txt"), []byte(stdout.String()), 0644)
	os.WriteFile(filepath.Join(outputDir, "runtest-err.txt"), []byte(stderr.String()), 0644)
	if runErr != nil && !errors.As(runErr, new(*exec.ExitError)) {
		return fmt.Errorf("executing runtest: %w", runErr)
	}

	// The runner prints the paths of fixtures whose clients disagreed.
	fileRe := regexp.MustCompile(regexp.QuoteMeta(f.cfg.WorkDir) +
		fmt.Sprintf(`[/\\]%s_%d_\d+\.json`, regexp.QuoteMeta(f.cfg.TestPrefix), step))
	seen := map[string]bool{}
	for _, match := range fileRe.FindAllString(stdout.String(), -1) {
		if seen[match] {
			continue
		}
		seen[match] = true
		log.Warn("Consensus fault found", "file", match)
		if err := os.Rename(match, filepath.Join(outputDir, filepath.Base(match))); err != nil {
			log.Error("Failed to quarantine fixture", "file", match, "err", err)
		}
	}
	return nil
}

// finishRound logs progress and removes the step's fixture files when
// configured to.
func (f *Fuzzer) finishRound(step int) {
	log.Info("Finished fuzzing step", "step", step+1, "of", f.cfg.Steps)
	if !f.cfg.CleanupTests {
		return
	}
	pattern := filepath.Join(f.cfg.WorkDir, fmt.Sprintf("%s_%d_*.json", f.cfg.TestPrefix, step))
	files, err := filepath.Glob(pattern)
	if err != nil {
		return
	}
	for _, file := range files {
		os.Remove(file)
	}
}
