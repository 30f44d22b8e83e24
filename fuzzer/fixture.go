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

// Package fuzzer drives differential fuzzing rounds: it mutates the EOF
// contracts of a state-test corpus, writes the mutated fixtures to a working
// directory and hands them to an external runtest binary that compares the
// execution across client implementations.
package fuzzer

import (
	"bytes"
	"encoding/json"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/ethereum/go-eoffuzz/mutate"
)

// Account is one pre-state account of a state-test fixture. Only the code is
// interpreted; everything else round-trips as raw JSON.
type Account struct {
	Balance json.RawMessage `json:"balance,omitempty"`
	Code    hexutil.Bytes   `json:"code,omitempty"`
	Nonce   json.RawMessage `json:"nonce,omitempty"`
	Storage json.RawMessage `json:"storage,omitempty"`
}

// Fixture is a state-test fixture. The fuzzer only rewrites pre-state code
// and the info block; env, transaction and post pass through untouched.
type Fixture struct {
	Info        map[string]any             `json:"_info,omitempty"`
	Env         json.RawMessage            `json:"env,omitempty"`
	Pre         map[common.Address]Account `json:"pre"`
	Transaction json.RawMessage            `json:"transaction,omitempty"`
	Post        json.RawMessage            `json:"post,omitempty"`
}

// Fixtures maps test names to fixtures, mirroring the on-disk layout of a
// state-test file.
type Fixtures map[string]*Fixture

// eofMagic is the code prefix selecting accounts eligible for mutation.
var eofMagic = []byte{0xef, 0x00}

// IsEOF reports whether the account holds an EOF contract.
func (a *Account) IsEOF() bool {
	return bytes.HasPrefix(a.Code, eofMagic)
}

// contextFor collects the fixture's known addresses into a mutation context,
// sorted for deterministic strategy behavior.
func contextFor(f *Fixture) *mutate.Context {
	addresses := make([]common.Address, 0, len(f.Pre))
	for addr := range f.Pre {
		addresses = append(addresses, addr)
	}
	slices.SortFunc(addresses, func(a, b common.Address) int {
		return bytes.Compare(a[:], b[:])
	})
	return &mutate.Context{Addresses: addresses}
}
