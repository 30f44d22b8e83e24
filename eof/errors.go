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

package eof

import "errors"

// Format errors returned by Decode. They are fatal for the decode call; the
// caller is expected to skip or reject the offending input.
var (
	ErrInvalidMagic         = errors.New("invalid magic")
	ErrMissingTypeHeader    = errors.New("missing type header")
	ErrMissingCodeHeader    = errors.New("missing code header")
	ErrMissingDataHeader    = errors.New("missing data header")
	ErrMissingTerminator    = errors.New("missing header terminator")
	ErrUndefinedInstruction = errors.New("undefined instruction")
	ErrUnexpectedEndOfInput = errors.New("unexpected end of input")
)
