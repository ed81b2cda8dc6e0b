package transport

import "errors"

var (
	ErrSendBufferFull         = errors.New("send-buffer-full")
	ErrRoomClosed             = errors.New("room-closed")
	ErrMalformedPacket        = errors.New("malformed-packet")
	ErrUnsupportedDestination = errors.New("unsupported-destination")
	ErrMethodNotFound         = errors.New("rpc-method-not-found")
	ErrParticipantLeft        = errors.New("participant-left")
)

// RPCError carries an error message returned by the remote side of an RPC.
type RPCError struct {
	Message string
}

func (e *RPCError) Error() string {
	return "rpc: " + e.Message
}
