// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package ember

import (
	"encoding/json"
	"fmt"
)

// Fork is an enumeration of the supported protocol versions (aka. Hard-Forks).
type Fork int

const (
	Frontier Fork = iota
	Byzantium
	Constantinople
	numForks int = iota
)

// Forks returns all supported forks in chronological order.
func Forks() []Fork {
	res := make([]Fork, 0, numForks)
	for i := 0; i < numForks; i++ {
		res = append(res, Fork(i))
	}
	return res
}

func (f Fork) String() string {
	switch f {
	case Frontier:
		return "Frontier"
	case Byzantium:
		return "Byzantium"
	case Constantinople:
		return "Constantinople"
	default:
		return fmt.Sprintf("Fork(%d)", f)
	}
}

// IsAtLeast returns true if f is the given fork or a later one.
func (f Fork) IsAtLeast(other Fork) bool {
	return f >= other
}

// ParseFork resolves a fork by its name.
func ParseFork(name string) (Fork, error) {
	for _, f := range Forks() {
		if f.String() == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown fork: %q", name)
}

func (f Fork) MarshalJSON() ([]byte, error) {
	if f < 0 || int(f) >= numForks {
		return nil, &json.UnsupportedValueError{Str: f.String()}
	}
	return json.Marshal(f.String())
}

func (f *Fork) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	fork, err := ParseFork(s)
	if err != nil {
		return err
	}
	*f = fork
	return nil
}
