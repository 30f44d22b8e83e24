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
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/log"
)

// Entry is one corpus member: the fixtures of a single seed file.
type Entry struct {
	Source string
	Tests  Fixtures
}

// LoadCorpus walks a seed directory and loads every parseable state-test
// fixture file. Unparseable files are skipped with a debug log; a corpus is
// built from whatever survives.
func LoadCorpus(dir string) ([]*Entry, error) {
	var corpus []*Entry
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var tests Fixtures
		if err := json.Unmarshal(data, &tests); err != nil {
			log.Debug("Skipping unparseable corpus file", "file", path, "err", err)
			return nil
		}
		for _, fixture := range tests {
			if fixture == nil || fixture.Pre == nil {
				log.Debug("Skipping corpus file without pre-state", "file", path)
				return nil
			}
		}
		for _, fixture := range tests {
			// Provenance for the output files; mutation descriptions are
			// appended here round by round.
			fixture.Info = map[string]any{
				"comment":   "diff_fuzz corpus file",
				"source":    d.Name(),
				"mutations": "",
			}
		}
		corpus = append(corpus, &Entry{Source: d.Name(), Tests: tests})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return corpus, nil
}
