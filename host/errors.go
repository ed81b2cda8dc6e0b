package host

import "errors"

var (
	ErrHostClosed      = errors.New("host-closed")
	ErrInvalidOptions  = errors.New("invalid-host-options")
	ErrMalformedRPC    = errors.New("malformed-rpc-payload")
	ErrDrawingTransfer = errors.New("drawing-transfer-failed")
)
