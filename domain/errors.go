package domain

import "errors"

var (
	ErrRoomNotFound         = errors.New("room-not-found")
	ErrParticipantNotFound  = errors.New("participant-not-found")
	ErrDuplicateIdentity    = errors.New("duplicate-identity")
	UnexpectedDatabaseError = errors.New("unexpected-database-error")
)

var (
	ErrInvalidSigningAlg             = errors.New("invalid-signing-alg")
	ErrExpiredToken                  = errors.New("expired-token")
	ErrInvalidTokenSignature         = errors.New("invalid-token-signature")
	ErrCorruptedToken                = errors.New("corrupted-token")
	UnexpectedTokenGenerationError   = errors.New("unexpected-token-generation-error")
	UnexpectedTokenVerificationError = errors.New("unexpected-token-verification-error")
)

var (
	ErrInvalidAdminSecret = errors.New("invalid-admin-secret")
	HashingError          = errors.New("hashing-error")
)
