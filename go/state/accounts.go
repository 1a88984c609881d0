// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package state

import (
	"bytes"
	"fmt"

	"github.com/Fantom-foundation/Ember/go/ember"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Storage is the content of the storage of an account. Slots not present
// are zero.
type Storage map[ember.Key]ember.Word

// Account is a snapshot of the state of a single account.
type Account struct {
	Balance ember.Value `json:"balance"`
	Nonce   uint64      `json:"nonce,omitempty"`
	Code    ember.Code  `json:"code,omitempty"`
	Storage Storage     `json:"storage,omitempty"`
}

// Accounts is a snapshot of a world state, used to set up and inspect
// repositories.
type Accounts map[ember.Address]Account

func (s Storage) Clone() Storage {
	if s == nil {
		return nil
	}
	return maps.Clone(s)
}

// Equal compares the given storages, ignoring slots holding zero.
func (s Storage) Equal(other Storage) bool {
	for key, value := range s {
		if other[key] != value {
			return false
		}
	}
	for key, value := range other {
		if s[key] != value {
			return false
		}
	}
	return true
}

func (a Account) Clone() Account {
	return Account{
		Balance: a.Balance,
		Nonce:   a.Nonce,
		Code:    bytes.Clone(a.Code),
		Storage: a.Storage.Clone(),
	}
}

func (a Account) Equal(other Account) bool {
	return a.Balance == other.Balance &&
		a.Nonce == other.Nonce &&
		bytes.Equal(a.Code, other.Code) &&
		a.Storage.Equal(other.Storage)
}

func (a Accounts) Clone() Accounts {
	res := make(Accounts, len(a))
	for address, account := range a {
		res[address] = account.Clone()
	}
	return res
}

func (a Accounts) Equal(other Accounts) bool {
	return len(a.Diff(other)) == 0
}

// Addresses returns the addresses of all accounts in ascending order.
func (a Accounts) Addresses() []ember.Address {
	return sortedAddresses(maps.Keys(a))
}

// Diff lists the differences between the given snapshots in a human-readable
// format, ordered by address.
func (a Accounts) Diff(b Accounts) (res []string) {
	addresses := maps.Keys(a)
	for address := range b {
		if _, found := a[address]; !found {
			addresses = append(addresses, address)
		}
	}
	for _, address := range sortedAddresses(addresses) {
		valueA, inA := a[address]
		valueB, inB := b[address]
		switch {
		case !inB:
			res = append(res, fmt.Sprintf("Different account entry:\n\t[%v]=%v\n\tvs\n\tmissing", address, valueA))
		case !inA:
			res = append(res, fmt.Sprintf("Different account entry:\n\tmissing\n\tvs\n\t[%v]=%v", address, valueB))
		default:
			res = append(res, diffAccount(address, valueA, valueB)...)
		}
	}
	return
}

func diffAccount(address ember.Address, a, b Account) (res []string) {
	if a.Balance != b.Balance {
		res = append(res, fmt.Sprintf("Different balance of %v: %v vs %v", address, a.Balance, b.Balance))
	}
	if a.Nonce != b.Nonce {
		res = append(res, fmt.Sprintf("Different nonce of %v: %d vs %d", address, a.Nonce, b.Nonce))
	}
	if !bytes.Equal(a.Code, b.Code) {
		res = append(res, fmt.Sprintf("Different code of %v: %x vs %x", address, []byte(a.Code), []byte(b.Code)))
	}
	keys := maps.Keys(a.Storage)
	for key := range b.Storage {
		if _, found := a.Storage[key]; !found {
			keys = append(keys, key)
		}
	}
	slices.SortFunc(keys, func(x, y ember.Key) int {
		return bytes.Compare(x[:], y[:])
	})
	for _, key := range keys {
		if a.Storage[key] != b.Storage[key] {
			res = append(res, fmt.Sprintf("Different storage of %v:\n\t[%v]=%v\n\tvs\n\t[%v]=%v", address, key, a.Storage[key], key, b.Storage[key]))
		}
	}
	return
}

func (a Account) String() string {
	return fmt.Sprintf("Account{balance: %v, nonce: %d, code: %x, storage: %d slots}", a.Balance, a.Nonce, []byte(a.Code), len(a.Storage))
}

func sortedAddresses(addresses []ember.Address) []ember.Address {
	slices.SortFunc(addresses, func(a, b ember.Address) int {
		return bytes.Compare(a[:], b[:])
	})
	return addresses
}
