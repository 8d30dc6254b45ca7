package qerr

import (
	"errors"
	"fmt"
)

// TransportErrorCode is a QUIC transport error code, as carried in CONNECTION_CLOSE frames.
type TransportErrorCode uint64

const (
	NoError                 TransportErrorCode = 0x0
	InternalError           TransportErrorCode = 0x1
	ServerBusy              TransportErrorCode = 0x2
	FlowControlError        TransportErrorCode = 0x3
	StreamLimitError        TransportErrorCode = 0x4
	StreamStateError        TransportErrorCode = 0x5
	FinalSizeError          TransportErrorCode = 0x6
	FrameEncodingError      TransportErrorCode = 0x7
	TransportParameterError TransportErrorCode = 0x8
	VersionNegotiationError TransportErrorCode = 0x9
	ProtocolViolation       TransportErrorCode = 0xa
)

func (e TransportErrorCode) String() string {
	switch e {
	case NoError:
		return "NO_ERROR"
	case InternalError:
		return "INTERNAL_ERROR"
	case ServerBusy:
		return "SERVER_BUSY"
	case FlowControlError:
		return "FLOW_CONTROL_ERROR"
	case StreamLimitError:
		return "STREAM_LIMIT_ERROR"
	case StreamStateError:
		return "STREAM_STATE_ERROR"
	case FinalSizeError:
		return "FINAL_SIZE_ERROR"
	case FrameEncodingError:
		return "FRAME_ENCODING_ERROR"
	case TransportParameterError:
		return "TRANSPORT_PARAMETER_ERROR"
	case VersionNegotiationError:
		return "VERSION_NEGOTIATION_ERROR"
	case ProtocolViolation:
		return "PROTOCOL_VIOLATION"
	default:
		return fmt.Sprintf("unknown error code: %#x", uint64(e))
	}
}

// A TransportError is surfaced on the wire as a CONNECTION_CLOSE.
type TransportError struct {
	ErrorCode    TransportErrorCode
	ErrorMessage string
}

var _ error = &TransportError{}

func (e *TransportError) Error() string {
	if e.ErrorMessage == "" {
		return e.ErrorCode.String()
	}
	return fmt.Sprintf("%s: %s", e.ErrorCode, e.ErrorMessage)
}

func (e *TransportError) Is(target error) bool {
	t, ok := target.(*TransportError)
	return ok && e.ErrorCode == t.ErrorCode
}

// ErrIgnorePacket is a transient error: the datagram is dropped,
// but the connection stays alive.
var ErrIgnorePacket = errors.New("ignoring packet")
