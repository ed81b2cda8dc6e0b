package game

import (
	"encoding/json"
	"fmt"
	"slices"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(s)
	if !d.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidDifficulty, s)
	}
	return d, nil
}

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseInProgress
	PhaseResolved
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseInProgress:
		return "in-progress"
	case PhaseResolved:
		return "resolved"
	}
	return "unknown"
}

// Reserved guesses returned by the oracle.
const (
	NoGuess        = "NO_GUESS"
	CheaterCheater = "CHEATER_CHEATER"
)

// State is the round state shared with every participant through the room
// metadata. Prompt is set while a round runs and kept after a round resolves so
// clients can show what the winners drew.
type State struct {
	Started    bool       `json:"started"`
	Difficulty Difficulty `json:"difficulty"`
	Prompt     *string    `json:"prompt"`
	Winners    []string   `json:"winners"`
}

func NewState() State {
	return State{
		Difficulty: DifficultyEasy,
		Winners:    []string{},
	}
}

func (s *State) Phase() Phase {
	switch {
	case s.Started:
		return PhaseInProgress
	case len(s.Winners) > 0:
		return PhaseResolved
	}
	return PhaseIdle
}

// Start begins a new round. Idle and resolved are both "not running".
func (s *State) Start(prompt string) error {
	if s.Started {
		return ErrAlreadyRunning
	}
	if prompt == "" {
		return ErrEmptyPrompt
	}
	s.Started = true
	s.Prompt = &prompt
	s.Winners = []string{}
	return nil
}

func (s *State) Stop() error {
	if !s.Started {
		return ErrNotRunning
	}
	s.Started = false
	s.Prompt = nil
	s.Winners = []string{}
	return nil
}

func (s *State) Resolve(winners []string) error {
	if !s.Started {
		return ErrNotRunning
	}
	if len(winners) == 0 {
		return ErrNoWinners
	}
	s.Started = false
	s.Winners = slices.Clone(winners)
	return nil
}

func (s *State) SetDifficulty(d Difficulty) error {
	if s.Started {
		return ErrAlreadyRunning
	}
	if !d.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidDifficulty, string(d))
	}
	s.Difficulty = d
	return nil
}

// Clone returns a deep copy, safe to hand out while the original keeps mutating.
func (s State) Clone() State {
	c := s
	if s.Prompt != nil {
		p := *s.Prompt
		c.Prompt = &p
	}
	c.Winners = slices.Clone(s.Winners)
	if c.Winners == nil {
		c.Winners = []string{}
	}
	return c
}

// Marshal serializes the state as the flat JSON object stored in room metadata.
func (s State) Marshal() (string, error) {
	b, err := json.Marshal(s.Clone())
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func ParseState(data string) (State, error) {
	s := NewState()
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return State{}, fmt.Errorf("%w: %w", ErrCorruptedState, err)
	}
	if s.Difficulty == "" {
		s.Difficulty = DifficultyEasy
	}
	if !s.Difficulty.Valid() {
		return State{}, fmt.Errorf("%w: %w", ErrCorruptedState, ErrInvalidDifficulty)
	}
	if s.Winners == nil {
		s.Winners = []string{}
	}
	hasPrompt := s.Prompt != nil && *s.Prompt != ""
	switch {
	case s.Started && !hasPrompt:
		return State{}, fmt.Errorf("%w: started without a prompt", ErrCorruptedState)
	case s.Started && len(s.Winners) > 0:
		return State{}, fmt.Errorf("%w: winners while a round runs", ErrCorruptedState)
	case !s.Started && len(s.Winners) > 0 && !hasPrompt:
		return State{}, fmt.Errorf("%w: winners without a prompt", ErrCorruptedState)
	case !s.Started && len(s.Winners) == 0 && s.Prompt != nil:
		return State{}, fmt.Errorf("%w: prompt outside a round", ErrCorruptedState)
	}
	return s, nil
}
