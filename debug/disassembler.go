package debug

import "errors"

// ErrUnknownOpcode is returned by a disassembler for bytes it cannot decode.
var ErrUnknownOpcode = errors.New("unknown opcode")

// MinInstructionLength is the step taken over an instruction that cannot be
// decoded.
const MinInstructionLength = 4

// PlaceholderText stands in for an instruction that cannot be decoded.
const PlaceholderText = "n/a"

// A Disassembler renders the instruction at addr, given the bytes of code
// memory starting there. It returns the text and the length of the
// instruction.
type Disassembler interface {
	Disassemble(addr uint64, code []byte) (string, int, error)
}

// Placeholder returns what stands in for an undecodable instruction.
func Placeholder() (string, int) {
	return PlaceholderText, MinInstructionLength
}
