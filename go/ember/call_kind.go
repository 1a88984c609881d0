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

import "fmt"

// CallKind is an enum enabling the differentiation of the different types
// of recursive contract calls supported in the EVM.
type CallKind int

const (
	Call CallKind = iota
	DelegateCall
	StaticCall
	CallCode
	Create
	Create2
)

// IsCreate returns true for kinds deploying a new contract.
func (k CallKind) IsCreate() bool {
	return k == Create || k == Create2
}

func (k CallKind) String() string {
	switch k {
	case Call:
		return "call"
	case DelegateCall:
		return "delegatecall"
	case StaticCall:
		return "staticcall"
	case CallCode:
		return "callcode"
	case Create:
		return "create"
	case Create2:
		return "create2"
	default:
		return fmt.Sprintf("CallKind(%d)", int(k))
	}
}
