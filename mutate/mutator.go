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

package mutate

import (
	"fmt"
	"math/rand"

	"github.com/ethereum/go-eoffuzz/eof"
)

// Registry is an immutable set of strategies with a weights vector built
// once at construction. Selection is weighted random over the priorities.
type Registry struct {
	strategies []Strategy
	weights    []int
	total      int
}

// NewRegistry builds a registry from the given strategies. At least one
// strategy with a positive priority is required.
func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{strategies: strategies}
	for _, s := range strategies {
		r.weights = append(r.weights, s.Priority())
		r.total += s.Priority()
	}
	if r.total <= 0 {
		panic("mutate: registry without positive strategy priorities")
	}
	return r
}

// DefaultStrategies returns the full strategy set with its standard
// priorities: push replacements dominate, structural edits are rarer.
func DefaultStrategies() []Strategy {
	return []Strategy{
		PushPop{},
		ReplacePushWithAddress{},
		ReplacePushWithRandom{},
		ReplacePushWithMagic{},
		InsertSimpleBalanced{},
		InsertStackOpBalanced{},
		InsertDataOp{},
		DeleteBalanced{},
	}
}

// Pick selects one strategy by weighted random choice.
func (r *Registry) Pick(rnd *rand.Rand) Strategy {
	n := rnd.Intn(r.total)
	for i, w := range r.weights {
		if n < w {
			return r.strategies[i]
		}
		n -= w
	}
	return r.strategies[len(r.strategies)-1]
}

// Validator accepts or rejects an encoded container. The driver gates every
// mutation behind it: a rejection discards the mutation for that round.
type Validator interface {
	Validate(code []byte) error
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(code []byte) error

// Validate calls the wrapped function.
func (f ValidatorFunc) Validate(code []byte) error { return f(code) }

// RoundTripValidator accepts any container that decodes back into a basic
// block graph. It catches structural breakage without enforcing full EOF
// validity.
func RoundTripValidator() Validator {
	return ValidatorFunc(func(code []byte) error {
		_, err := eof.Decode(code)
		return err
	})
}

// Mutator applies one weighted-random strategy per call: decode, mutate,
// reconcile, encode, validate. The original bytes are returned untouched
// when the strategy finds no target or the validator rejects the result.
type Mutator struct {
	registry  *Registry
	validator Validator
}

// NewMutator creates a mutator over the given strategy registry. validator
// may be nil to accept every structurally consistent result.
func NewMutator(registry *Registry, validator Validator) *Mutator {
	return &Mutator{registry: registry, validator: validator}
}

// MutateCode runs one mutation round over an encoded container. The returned
// Result reports whether a mutation was kept and what it did.
func (m *Mutator) MutateCode(code []byte, ctx *Context, rnd *rand.Rand) ([]byte, Result, error) {
	container, err := eof.Decode(code)
	if err != nil {
		return nil, Result{}, fmt.Errorf("decode: %w", err)
	}
	strategy := m.registry.Pick(rnd)
	res, err := strategy.Mutate(container, ctx, rnd)
	if err != nil {
		return nil, Result{}, fmt.Errorf("strategy %s: %w", strategy.Name(), err)
	}
	if !res.Applied {
		return code, res, nil
	}
	container.Reconcile()
	mutated := container.Encode()
	if m.validator != nil {
		if err := m.validator.Validate(mutated); err != nil {
			return code, skipped(fmt.Sprintf("validator rejected %s: %v", strategy.Name(), err)), nil
		}
	}
	return mutated, res, nil
}
