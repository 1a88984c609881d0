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

	"github.com/Fantom-foundation/Ember/go/ember"
	"golang.org/x/exp/maps"
)

// ErrTrackFinished is raised when a tracked repository is used after it has
// been committed or rolled back.
const ErrTrackFinished = ember.ConstError("track already committed or rolled back")

// Repository is an in-memory implementation of ember.Repository. The root
// repository holds the full world state; tracks created by StartTracking are
// copy-on-write overlays on their parent. A Repository is not safe for
// concurrent use.
type Repository struct {
	parent   *Repository
	accounts map[ember.Address]*account
	finished bool
}

// account is the state of an account as recorded in a single layer. In
// tracks, storage only holds the slots modified in this layer; slots not
// present are looked up in the parent unless ownStorage is set.
type account struct {
	exists     bool
	balance    ember.Value
	nonce      uint64
	code       ember.Code
	codeHash   ember.Hash
	storage    map[ember.Key]ember.Word
	ownStorage bool
}

// NewRepository creates an empty root repository.
func NewRepository() *Repository {
	return &Repository{accounts: map[ember.Address]*account{}}
}

// NewRepositoryFrom creates a root repository holding a copy of the given
// accounts.
func NewRepositoryFrom(accounts Accounts) *Repository {
	res := NewRepository()
	for address, data := range accounts {
		acc := &account{
			exists:     true,
			balance:    data.Balance,
			nonce:      data.Nonce,
			storage:    map[ember.Key]ember.Word{},
			ownStorage: true,
		}
		acc.setCode(data.Code)
		for key, value := range data.Storage {
			if !value.IsZero() {
				acc.storage[key] = value
			}
		}
		res.accounts[address] = acc
	}
	return res
}

func (a *account) setCode(code ember.Code) {
	a.code = bytes.Clone(code)
	if len(code) == 0 {
		a.codeHash = ember.EmptyCodeHash
	} else {
		a.codeHash = ember.Keccak256(code)
	}
}

// IsRoot reports whether this repository is the root of its tracks.
func (r *Repository) IsRoot() bool {
	return r.parent == nil
}

// lookup finds the most recent layer recording the given account. nil is
// returned if the account is unknown.
func (r *Repository) lookup(address ember.Address) *account {
	r.checkActive()
	for cur := r; cur != nil; cur = cur.parent {
		if acc, found := cur.accounts[address]; found {
			return acc
		}
	}
	return nil
}

// modify returns the record of the given account in this layer, copying the
// visible state of the account into this layer on first access. The account
// is created if it does not exist.
func (r *Repository) modify(address ember.Address) *account {
	r.checkActive()
	if acc, found := r.accounts[address]; found {
		acc.exists = true
		return acc
	}
	acc := &account{
		exists:     true,
		codeHash:   ember.EmptyCodeHash,
		storage:    map[ember.Key]ember.Word{},
		ownStorage: r.IsRoot(),
	}
	if cur := r.lookup(address); cur != nil && cur.exists {
		acc.balance = cur.balance
		acc.nonce = cur.nonce
		acc.code = cur.code
		acc.codeHash = cur.codeHash
	} else if cur != nil {
		// A deleted account does not expose the storage of earlier layers.
		acc.ownStorage = true
	}
	r.accounts[address] = acc
	return acc
}

func (r *Repository) checkActive() {
	if r.finished {
		panic(ErrTrackFinished)
	}
}

func (r *Repository) Exists(address ember.Address) bool {
	acc := r.lookup(address)
	return acc != nil && acc.exists
}

// Delete removes the given account including its storage.
func (r *Repository) Delete(address ember.Address) {
	r.checkActive()
	if r.IsRoot() {
		delete(r.accounts, address)
		return
	}
	r.accounts[address] = &account{
		codeHash:   ember.EmptyCodeHash,
		storage:    map[ember.Key]ember.Word{},
		ownStorage: true,
	}
}

func (r *Repository) GetBalance(address ember.Address) ember.Value {
	if acc := r.lookup(address); acc != nil {
		return acc.balance
	}
	return ember.Value{}
}

func (r *Repository) AddBalance(address ember.Address, value ember.Value) {
	acc := r.modify(address)
	acc.balance = ember.Add(acc.balance, value)
}

func (r *Repository) SubBalance(address ember.Address, value ember.Value) {
	acc := r.modify(address)
	acc.balance = ember.Sub(acc.balance, value)
}

func (r *Repository) GetNonce(address ember.Address) uint64 {
	if acc := r.lookup(address); acc != nil {
		return acc.nonce
	}
	return 0
}

func (r *Repository) SetNonce(address ember.Address, nonce uint64) {
	r.modify(address).nonce = nonce
}

// IncreaseNonce increments the nonce of the given account and returns the
// new nonce.
func (r *Repository) IncreaseNonce(address ember.Address) uint64 {
	acc := r.modify(address)
	acc.nonce++
	return acc.nonce
}

func (r *Repository) GetCode(address ember.Address) ember.Code {
	if acc := r.lookup(address); acc != nil {
		return acc.code
	}
	return nil
}

// GetCodeHash returns the hash of the code of the given account. The hash of
// the empty code is returned for accounts without code and a zero hash for
// accounts that do not exist.
func (r *Repository) GetCodeHash(address ember.Address) ember.Hash {
	if acc := r.lookup(address); acc != nil && acc.exists {
		return acc.codeHash
	}
	return ember.Hash{}
}

func (r *Repository) SaveCode(address ember.Address, code ember.Code) {
	r.modify(address).setCode(code)
}

func (r *Repository) GetStorageRow(address ember.Address, key ember.Key) ember.Word {
	r.checkActive()
	for cur := r; cur != nil; cur = cur.parent {
		acc, found := cur.accounts[address]
		if !found {
			continue
		}
		if value, found := acc.storage[key]; found {
			return value
		}
		if acc.ownStorage {
			break
		}
	}
	return ember.Word{}
}

func (r *Repository) PutStorageRow(address ember.Address, key ember.Key, value ember.Word) {
	acc := r.modify(address)
	if value.IsZero() && acc.ownStorage {
		delete(acc.storage, key)
		return
	}
	acc.storage[key] = value
}

// StartTracking opens a new overlay on top of this repository.
func (r *Repository) StartTracking() ember.Repository {
	r.checkActive()
	return &Repository{
		parent:   r,
		accounts: map[ember.Address]*account{},
	}
}

// Commit folds the modifications of this track into its parent, in the
// order of the addresses of the modified accounts. On a root repository
// Commit has no effect.
func (r *Repository) Commit() {
	r.checkActive()
	if r.IsRoot() {
		return
	}
	for _, address := range sortedAddresses(maps.Keys(r.accounts)) {
		r.parent.merge(address, r.accounts[address])
	}
	r.finish()
}

// Rollback discards the modifications of this track. On a root repository
// Rollback has no effect.
func (r *Repository) Rollback() {
	r.checkActive()
	if r.IsRoot() {
		return
	}
	r.finish()
}

func (r *Repository) finish() {
	r.accounts = nil
	r.finished = true
}

func (r *Repository) merge(address ember.Address, update *account) {
	if !update.exists {
		r.Delete(address)
		return
	}
	cur, found := r.accounts[address]
	if !found || update.ownStorage {
		if r.IsRoot() {
			// The root is the bottom layer, nothing is left to look up.
			update.ownStorage = true
			for key, value := range update.storage {
				if value.IsZero() {
					delete(update.storage, key)
				}
			}
		}
		r.accounts[address] = update
		return
	}
	cur.exists = true
	cur.balance = update.balance
	cur.nonce = update.nonce
	cur.code = update.code
	cur.codeHash = update.codeHash
	for key, value := range update.storage {
		if value.IsZero() && cur.ownStorage {
			delete(cur.storage, key)
		} else {
			cur.storage[key] = value
		}
	}
}

// Snapshot returns the state of all accounts visible through this
// repository.
func (r *Repository) Snapshot() Accounts {
	r.checkActive()
	addresses := map[ember.Address]struct{}{}
	for cur := r; cur != nil; cur = cur.parent {
		for address := range cur.accounts {
			addresses[address] = struct{}{}
		}
	}
	res := Accounts{}
	for address := range addresses {
		acc := r.lookup(address)
		if acc == nil || !acc.exists {
			continue
		}
		res[address] = Account{
			Balance: acc.balance,
			Nonce:   acc.nonce,
			Code:    bytes.Clone(acc.code),
			Storage: r.storageOf(address),
		}
	}
	return res
}

// storageOf collects the non-zero storage slots of the given account.
func (r *Repository) storageOf(address ember.Address) Storage {
	keys := map[ember.Key]struct{}{}
	for cur := r; cur != nil; cur = cur.parent {
		acc, found := cur.accounts[address]
		if !found {
			continue
		}
		for key := range acc.storage {
			keys[key] = struct{}{}
		}
		if acc.ownStorage {
			break
		}
	}
	var res Storage
	for key := range keys {
		if value := r.GetStorageRow(address, key); !value.IsZero() {
			if res == nil {
				res = Storage{}
			}
			res[key] = value
		}
	}
	return res
}
