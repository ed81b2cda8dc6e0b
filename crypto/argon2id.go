package crypto

import (
	"fmt"
	"livepaint/domain"

	"github.com/alexedwards/argon2id"
)

// Argon2idHasher hashes and checks the room admin secret. Only its hash is
// ever configured on the server.
type Argon2idHasher struct {
	params *argon2id.Params
}

// NewArgon2idHasher creates a new hasher with the specified difficulty parameters.
//
// memory must be provided in Kilobytes (KB).
func NewArgon2idHasher(time, memory, keyLength, saltLength uint32, parallelism uint8) *Argon2idHasher {
	return &Argon2idHasher{
		params: &argon2id.Params{
			Memory:      memory,
			Iterations:  time,
			Parallelism: parallelism,
			SaltLength:  saltLength,
			KeyLength:   keyLength,
		},
	}
}

func (h *Argon2idHasher) Hash(secret string) (string, error) {
	hash, err := argon2id.CreateHash(secret, h.params)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.HashingError, err)
	}
	return hash, nil
}

// Compare verifies a secret against a hash.
func (h *Argon2idHasher) Compare(hash, secret string) (bool, error) {
	match, err := argon2id.ComparePasswordAndHash(secret, hash)
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.HashingError, err)
	}
	return match, nil
}

// AdminAuthorizer checks bearer secrets of privileged room API callers.
type AdminAuthorizer struct {
	hasher     *Argon2idHasher
	secretHash string
}

func NewAdminAuthorizer(hasher *Argon2idHasher, secretHash string) *AdminAuthorizer {
	return &AdminAuthorizer{hasher: hasher, secretHash: secretHash}
}

// Authorize fails closed when no secret hash is configured.
func (a *AdminAuthorizer) Authorize(secret string) error {
	if a.secretHash == "" || secret == "" {
		return domain.ErrInvalidAdminSecret
	}
	ok, err := a.hasher.Compare(a.secretHash, secret)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidAdminSecret
	}
	return nil
}
