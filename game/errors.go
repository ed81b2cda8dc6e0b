package game

import "errors"

// State transition errors
var (
	ErrAlreadyRunning    = errors.New("game-already-running")
	ErrNotRunning        = errors.New("game-not-running")
	ErrNoWinners         = errors.New("no-winners")
	ErrEmptyPrompt       = errors.New("empty-prompt")
	ErrInvalidDifficulty = errors.New("invalid-difficulty")
	ErrCorruptedState    = errors.New("corrupted-state")
)

var ErrInvalidCapacity = errors.New("invalid-cache-capacity")
