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
	"os"

	"github.com/Fantom-foundation/Ember/go/ember"
	"github.com/Fantom-foundation/Ember/go/processor/executor"
	"github.com/Fantom-foundation/Ember/go/state"
	"github.com/Fantom-foundation/Ember/go/vm"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Scenario describes a sequence of transactions executed in a single block
// on a given world state.
type Scenario struct {
	Fork         ember.Fork            `json:"fork"`
	Block        ember.BlockParameters `json:"block"`
	BlockHashes  map[uint64]ember.Hash `json:"blockHashes,omitempty"`
	Pre          state.Accounts        `json:"pre"`
	Transactions []ember.Transaction   `json:"transactions"`
	Post         state.Accounts        `json:"post,omitempty"` // expected world state, if present
}

func loadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var scenario Scenario
	if err := json.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("failed to parse scenario %s: %w", path, err)
	}
	return &scenario, nil
}

// Outcome summarizes the execution of a scenario.
type Outcome struct {
	Receipts []*executor.Receipt `json:"receipts"`
	Skipped  []string            `json:"skipped,omitempty"` // transactions failing validation
	GasUsed  ember.Gas           `json:"gasUsed"`
	State    state.Accounts      `json:"state"`
}

// run executes the transactions of the scenario in order. Transactions
// failing validation are skipped. Gas used by included transactions counts
// against the block gas limit of later ones.
func (s *Scenario) run(interpreter *vm.Interpreter, localCall bool) (*Outcome, error) {
	hashes, err := state.NewBlockHashes(state.DefaultBlockHashCapacity)
	if err != nil {
		return nil, err
	}
	numbers := maps.Keys(s.BlockHashes)
	slices.Sort(numbers)
	for _, number := range numbers {
		hashes.Add(number, s.BlockHashes[number])
	}

	repo := state.NewRepositoryFrom(s.Pre)
	outcome := &Outcome{}
	for i, tx := range s.Transactions {
		txExecutor, err := executor.NewTransactionExecutor(tx, s.Block, repo, hashes, executor.Config{
			Interpreter:    interpreter,
			GasUsedInBlock: outcome.GasUsed,
			LocalCall:      localCall,
		})
		if err != nil {
			return nil, err
		}
		receipt, err := txExecutor.Run()
		if err != nil {
			outcome.Skipped = append(outcome.Skipped, fmt.Sprintf("transaction %d: %v", i, err))
			continue
		}
		outcome.Receipts = append(outcome.Receipts, receipt)
		outcome.GasUsed += receipt.GasUsed
	}
	outcome.State = repo.Snapshot()
	return outcome, nil
}

// check compares the resulting world state with the expected one, if any.
func (s *Scenario) check(outcome *Outcome) error {
	if s.Post == nil {
		return nil
	}
	if diff := s.Post.Diff(outcome.State); len(diff) > 0 {
		return fmt.Errorf("unexpected post state:\n%v", diff)
	}
	return nil
}
