// Package tlm defines the transaction descriptor that carries one bus access
// from an initiator to a target.
package tlm

// Command is the direction of a transaction.
type Command int

// The commands a transaction can carry.
const (
	ReadCommand Command = iota
	WriteCommand
	IgnoreCommand
)

func (c Command) String() string {
	switch c {
	case ReadCommand:
		return "RD"
	case WriteCommand:
		return "WR"
	default:
		return "IG"
	}
}

// ResponseStatus is the outcome of a transaction.
type ResponseStatus int

// The possible response statuses. IncompleteResponse means that no target
// has answered yet.
const (
	IncompleteResponse ResponseStatus = iota
	OKResponse
	GenericErrorResponse
	AddressErrorResponse
	CommandErrorResponse
	BurstErrorResponse
	ByteEnableErrorResponse
)

func (s ResponseStatus) String() string {
	switch s {
	case OKResponse:
		return "TLM_OK_RESPONSE"
	case IncompleteResponse:
		return "TLM_INCOMPLETE_RESPONSE"
	case GenericErrorResponse:
		return "TLM_GENERIC_ERROR_RESPONSE"
	case AddressErrorResponse:
		return "TLM_ADDRESS_ERROR_RESPONSE"
	case CommandErrorResponse:
		return "TLM_COMMAND_ERROR_RESPONSE"
	case BurstErrorResponse:
		return "TLM_BURST_ERROR_RESPONSE"
	case ByteEnableErrorResponse:
		return "TLM_BYTE_ENABLE_ERROR_RESPONSE"
	default:
		return "TLM_UNKNOWN_RESPONSE"
	}
}

// IsOK tells if the transaction succeeded.
func (s ResponseStatus) IsOK() bool {
	return s == OKResponse
}

// Failed tells if a target has answered with an error.
func (s ResponseStatus) Failed() bool {
	return s != OKResponse && s != IncompleteResponse
}
