package oracle

import "errors"

var (
	ErrEmptyCompletion    = errors.New("empty-completion")
	ErrMalformedVerdict   = errors.New("malformed-verdict")
	UnexpectedOracleError = errors.New("unexpected-oracle-error")
)
