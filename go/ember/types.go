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

// Address represents the 160-bit (20 bytes) address of an account.
type Address [20]byte

// Key represents the 256-bit (32 bytes) key of a storage slot.
type Key [32]byte

// Word represents an arbitrary 256-bit (32 byte) word in the EVM. Words are
// big-endian encoded unsigned integers and all arithmetic on them is performed
// modulo 2^256. Words are immutable values; all operations return new words.
type Word [32]byte

// Value represents an amount of chain currency, typically wei.
type Value [32]byte

// Hash represents the 256-bit (32 bytes) hash of a code, a block, a topic
// or similar sequence of cryptographic summary information.
type Hash [32]byte

// Code represents the byte-code of a contract.
type Code []byte

// Data represents the input or output of contract invocations.
type Data []byte

// Gas represents the type used to represent the Gas values.
type Gas int64

// Log is the type summarizing a log message emitted as a side effect of a
// contract execution.
type Log struct {
	Address Address `json:"address"`
	Topics  []Hash  `json:"topics"`
	Data    Data    `json:"data"`
}

// Transaction summarizes the parameters of a transaction to be executed.
// A transaction with a nil recipient creates a new contract.
type Transaction struct {
	Sender    Address  `json:"sender"`
	Recipient *Address `json:"recipient,omitempty"`
	Nonce     uint64   `json:"nonce"`
	Value     Value    `json:"value"`
	Input     Data     `json:"input,omitempty"`
	GasLimit  Gas      `json:"gasLimit"`
	GasPrice  Value    `json:"gasPrice"`
}

// IsCreate returns true if the transaction deploys a new contract.
func (t *Transaction) IsCreate() bool {
	return t.Recipient == nil
}

// BlockParameters summarizes the properties of the block a transaction is
// executed in.
type BlockParameters struct {
	GasLimit   Gas     `json:"gasLimit"`
	Coinbase   Address `json:"coinbase"`
	Timestamp  int64   `json:"timestamp"`
	Number     int64   `json:"number"`
	Difficulty Word    `json:"difficulty"`
	ParentHash Hash    `json:"parentHash"`
}
