package tlm

import (
	"fmt"
	"strings"

	"github.com/slahiruk/vcml/sim/id"
)

// ByteEnabled and ByteDisabled are the values of a byte-enable mask.
const (
	ByteEnabled  byte = 0xff
	ByteDisabled byte = 0x00
)

// A Transaction describes one bus access. The length of the access is the
// length of its data buffer.
type Transaction struct {
	ID      string
	Address uint64
	Command Command
	Data    []byte

	// ByteEnable masks the bytes of Data. An empty mask enables all bytes,
	// and a mask shorter than Data repeats.
	ByteEnable []byte

	// Debug transactions are untimed and bypass gating and caching.
	Debug bool

	response  ResponseStatus
	responded bool
}

// Length returns the number of bytes accessed.
func (t *Transaction) Length() uint64 {
	return uint64(len(t.Data))
}

// IsRead tells if the transaction reads from the target.
func (t *Transaction) IsRead() bool {
	return t.Command == ReadCommand
}

// IsWrite tells if the transaction writes to the target.
func (t *Transaction) IsWrite() bool {
	return t.Command == WriteCommand
}

// Range returns the addresses the transaction covers.
func (t *Transaction) Range() Range {
	return NewRange(t.Address, t.Length())
}

// WrapsAround tells if the access runs past the top of the address space.
func (t *Transaction) WrapsAround() bool {
	return Wraps(t.Address, t.Length())
}

// Response returns the response status.
func (t *Transaction) Response() ResponseStatus {
	return t.response
}

// Responded tells if a target has written the response.
func (t *Transaction) Responded() bool {
	return t.responded
}

// SetResponse writes the response status. It may only be written once.
func (t *Transaction) SetResponse(s ResponseStatus) {
	if t.responded {
		panic(fmt.Sprintf("response of transaction %s already set to %s",
			t.ID, t.response))
	}

	if s == IncompleteResponse {
		panic("cannot respond with an incomplete response")
	}

	t.response = s
	t.responded = true
}

// ResetResponse clears the response so that the transaction can be sent
// again.
func (t *Transaction) ResetResponse() {
	t.response = IncompleteResponse
	t.responded = false
}

// IsByteEnabled tells if the i-th byte of the data is enabled.
func (t *Transaction) IsByteEnabled(i int) bool {
	if len(t.ByteEnable) == 0 {
		return true
	}

	return t.ByteEnable[i%len(t.ByteEnable)] == ByteEnabled
}

// CopyFrom fills the data buffer from mem, which backs the addresses of the
// transaction. Disabled bytes are left alone.
func (t *Transaction) CopyFrom(mem []byte) {
	if len(t.ByteEnable) == 0 {
		copy(t.Data, mem)
		return
	}

	for i := range t.Data {
		if t.IsByteEnabled(i) {
			t.Data[i] = mem[i]
		}
	}
}

// CopyTo stores the data buffer into mem, which backs the addresses of the
// transaction. Disabled bytes are not written.
func (t *Transaction) CopyTo(mem []byte) {
	if len(t.ByteEnable) == 0 {
		copy(mem, t.Data)
		return
	}

	for i, b := range t.Data {
		if t.IsByteEnabled(i) {
			mem[i] = b
		}
	}
}

// Transfer moves data between the buffer and mem in the direction of the
// command.
func (t *Transaction) Transfer(mem []byte) {
	switch t.Command {
	case ReadCommand:
		t.CopyFrom(mem)
	case WriteCommand:
		t.CopyTo(mem)
	}
}

// String renders the transaction, such as
// "RD 0x0000000000001000 [de ad be ef] (TLM_OK_RESPONSE)".
func (t *Transaction) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s 0x%016x [", t.Command, t.Address)

	if len(t.Data) == 0 {
		b.WriteString("<no data>")
	}

	for i, d := range t.Data {
		if i > 0 {
			b.WriteByte(' ')
		}

		fmt.Fprintf(&b, "%02x", d)
	}

	fmt.Fprintf(&b, "] (%s)", t.response)

	return b.String()
}

// TransactionBuilder can build transactions.
type TransactionBuilder struct {
	address    uint64
	command    Command
	data       []byte
	byteEnable []byte
	debug      bool
}

// MakeTransactionBuilder creates a builder for a read transaction.
func MakeTransactionBuilder() TransactionBuilder {
	return TransactionBuilder{command: ReadCommand}
}

// WithAddress sets the address of the transaction to build.
func (b TransactionBuilder) WithAddress(addr uint64) TransactionBuilder {
	b.address = addr
	return b
}

// WithCommand sets the command of the transaction to build.
func (b TransactionBuilder) WithCommand(c Command) TransactionBuilder {
	b.command = c
	return b
}

// WithData sets the data buffer of the transaction to build. The buffer is
// used as is, so a read fills it in place.
func (b TransactionBuilder) WithData(data []byte) TransactionBuilder {
	b.data = data
	return b
}

// WithByteEnable sets the byte-enable mask of the transaction to build.
func (b TransactionBuilder) WithByteEnable(mask []byte) TransactionBuilder {
	b.byteEnable = mask
	return b
}

// AsDebug marks the transaction to build as a debug access.
func (b TransactionBuilder) AsDebug() TransactionBuilder {
	b.debug = true
	return b
}

// Build creates a new Transaction.
func (b TransactionBuilder) Build() *Transaction {
	return &Transaction{
		ID:         id.Generate(),
		Address:    b.address,
		Command:    b.command,
		Data:       b.data,
		ByteEnable: b.byteEnable,
		Debug:      b.debug,
	}
}
