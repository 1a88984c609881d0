// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package vm

import (
	"fmt"
	"io"
)

// loggingRunner is a runner that logs the execution of the contract code to
// an io.Writer, one line per executed instruction.
type loggingRunner struct {
	log io.Writer
}

// newLogger creates a new logging runner that writes to the provided
// io.Writer.
func newLogger(writer io.Writer) loggingRunner {
	return loggingRunner{log: writer}
}

func (l loggingRunner) run(p *Program) (status, error) {
	status := statusRunning
	for status == statusRunning {
		// log format: <op>, <gas>, <top-of-stack>\n
		if p.pc < uint64(len(p.code)) && l.log != nil {
			top := "-empty-"
			if p.stack.len() > 0 {
				top = p.stack.peek().ToBig().String()
			}
			_, err := fmt.Fprintf(l.log, "%v, %d, %v\n", OpCode(p.code[p.pc]), p.GasLeft(), top)
			if err != nil {
				return status, err
			}
		}
		status = step(p)
	}
	return status, nil
}
