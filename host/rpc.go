package host

import (
	"context"
	"encoding/json"
	"fmt"
	"livepaint/game"
	"livepaint/transport"

	"github.com/tidwall/gjson"
)

func result(key string, ok bool) string {
	b, _ := json.Marshal(map[string]bool{key: ok})
	return string(b)
}

// payloadField reads an optional string field. An empty payload counts as {}.
func payloadField(payload, field string) (string, error) {
	if payload == "" {
		return "", nil
	}
	if !gjson.Valid(payload) {
		return "", fmt.Errorf("%w: %q", ErrMalformedRPC, payload)
	}
	v := gjson.Get(payload, field)
	if v.Exists() && v.Type != gjson.String && v.Type != gjson.Null {
		return "", fmt.Errorf("%w: %s is %s", ErrMalformedRPC, field, v.Type)
	}
	return v.Str, nil
}

func (h *Host) handleStartGame(ctx context.Context, inv transport.RPCInvocation) (string, error) {
	prompt, err := payloadField(inv.Payload, "prompt")
	if err == nil {
		err = h.StartGame(ctx, prompt)
	}
	if err != nil {
		h.log.Info().Err(err).Str("caller", inv.CallerIdentity).Msg("start_game rejected")
		return result("started", false), nil
	}
	return result("started", true), nil
}

func (h *Host) handleEndGame(ctx context.Context, inv transport.RPCInvocation) (string, error) {
	if err := h.EndGame(ctx); err != nil {
		h.log.Info().Err(err).Str("caller", inv.CallerIdentity).Msg("end_game rejected")
		return result("stopped", false), nil
	}
	return result("stopped", true), nil
}

func (h *Host) handleUpdateDifficulty(ctx context.Context, inv transport.RPCInvocation) (string, error) {
	difficulty, err := payloadField(inv.Payload, "difficulty")
	if err == nil {
		err = h.UpdateDifficulty(ctx, difficulty)
	}
	if err != nil {
		h.log.Info().Err(err).Str("caller", inv.CallerIdentity).Msg("update_difficulty rejected")
		return result("updated", false), nil
	}
	return result("updated", true), nil
}

// StartGame begins a round with prompt, or with a prompt picked for the
// current difficulty when prompt is empty. Every drawing is wiped.
func (h *Host) StartGame(ctx context.Context, prompt string) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHostClosed
	}
	s := &h.session
	if s.state.Started {
		h.mu.Unlock()
		return game.ErrAlreadyRunning
	}
	if prompt == "" {
		prompt = s.prompts.Pick(s.state.Difficulty)
	}
	if err := s.state.Start(prompt); err != nil {
		h.mu.Unlock()
		return err
	}
	for _, d := range s.players {
		d.Clear()
	}
	s.lastGuesses = nil
	s.round++
	h.stopJudgeLocked()
	h.startJudgeLocked(s.round)
	h.mu.Unlock()

	h.log.Info().Str("prompt", prompt).Msg("game started")
	h.publishState(ctx)
	return nil
}

func (h *Host) EndGame(ctx context.Context) error {
	h.mu.Lock()
	if err := h.session.state.Stop(); err != nil {
		h.mu.Unlock()
		return err
	}
	h.session.round++
	h.stopJudgeLocked()
	h.mu.Unlock()

	h.log.Info().Msg("game ended")
	h.publishState(ctx)
	return nil
}

func (h *Host) UpdateDifficulty(ctx context.Context, difficulty string) error {
	d, err := game.ParseDifficulty(difficulty)
	if err != nil {
		return err
	}

	h.mu.Lock()
	if err := h.session.state.SetDifficulty(d); err != nil {
		h.mu.Unlock()
		return err
	}
	h.mu.Unlock()

	h.log.Info().Str("difficulty", difficulty).Msg("difficulty updated")
	h.publishState(ctx)
	return nil
}
