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

package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethereum/go-eoffuzz/fuzzer"
)

func TestParseClients(t *testing.T) {
	clients, err := parseClients([]string{"geth=/usr/bin/evm", "besu=/opt/besu/bin/evmtool"})
	require.NoError(t, err)
	require.Equal(t, []fuzzer.Client{
		{Name: "geth", Path: "/usr/bin/evm"},
		{Name: "besu", Path: "/opt/besu/bin/evmtool"},
	}, clients)

	clients, err = parseClients(nil)
	require.NoError(t, err)
	require.Empty(t, clients)

	for _, spec := range []string{"geth", "=path", "geth=", ""} {
		_, err := parseClients([]string{spec})
		require.Error(t, err, "spec %q", spec)
	}
}
