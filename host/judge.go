package host

import (
	"context"
	"encoding/json"
	"livepaint/drawing"
	"livepaint/game"
	"maps"
)

// startJudgeLocked launches the judge loop for round. Callers hold h.mu and
// have already stopped any previous loop.
func (h *Host) startJudgeLocked(round uint64) {
	ctx, cancel := context.WithCancel(h.ctx)
	h.judgeCancel = cancel

	h.loops.Add(1)
	go func() {
		defer h.loops.Done()
		defer cancel()
		h.judgeLoop(ctx, round)
	}()
}

func (h *Host) stopJudgeLocked() {
	if h.judgeCancel != nil {
		h.judgeCancel()
		h.judgeCancel = nil
	}
}

func (h *Host) judgeLoop(ctx context.Context, round uint64) {
	ticks, stop := h.opts.Tickers.Create(h.opts.JudgeInterval)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			if finished := h.judgeTick(ctx, round); finished {
				return
			}
		}
	}
}

type pendingGuess struct {
	identity string
	hash     string
	lines    []drawing.Line
}

// judgeTick guesses every drawing, publishes the guesses when they changed and
// resolves the round if anyone guessed the prompt. It reports whether the
// loop is done with this round.
func (h *Host) judgeTick(ctx context.Context, round uint64) bool {
	h.mu.Lock()
	s := &h.session
	if s.round != round || !s.state.Started {
		h.mu.Unlock()
		return true
	}
	prompt := *s.state.Prompt
	guesses := make(map[string]string, len(s.players))
	var pending []pendingGuess
	for identity, d := range s.players {
		if d.LineCount() == 0 {
			guesses[identity] = game.NoGuess
			continue
		}
		hash := d.Hash()
		if guess, ok := s.cache.Get(hash); ok {
			guesses[identity] = guess
			continue
		}
		pending = append(pending, pendingGuess{identity: identity, hash: hash, lines: d.Lines()})
	}
	h.mu.Unlock()

	for _, p := range pending {
		h.mu.Lock()
		cached, ok := s.cache.Get(p.hash)
		h.mu.Unlock()
		if ok {
			guesses[p.identity] = cached
			continue
		}
		guess, err := h.guess(ctx, p)
		if err != nil {
			if ctx.Err() == nil {
				h.log.Warn().Err(err).Str("identity", p.identity).Str("hash", p.hash).Msg("guess failed, skipping tick")
			}
			return false
		}
		guesses[p.identity] = guess
	}

	published := make(map[string]string, len(guesses))
	for identity, guess := range guesses {
		if guess != game.NoGuess {
			published[identity] = guess
		}
	}

	h.mu.Lock()
	if s.round != round {
		h.mu.Unlock()
		return true
	}
	if maps.Equal(published, s.lastGuesses) {
		h.mu.Unlock()
		return false
	}
	s.lastGuesses = published
	h.mu.Unlock()

	payload, _ := json.Marshal(published)
	if err := h.room.PublishData(ctx, TopicGuess, payload); err != nil {
		h.log.Warn().Err(err).Msg("publishing guesses failed")
	}

	if len(published) == 0 {
		return false
	}

	winners, err := h.judge.CheckWinners(ctx, prompt, published)
	if err != nil {
		if ctx.Err() == nil {
			h.log.Warn().Err(err).Msg("winner check failed, retrying next tick")
		}
		h.mu.Lock()
		if s.round == round {
			s.lastGuesses = nil
		}
		h.mu.Unlock()
		return false
	}
	if len(winners) == 0 {
		return false
	}

	h.mu.Lock()
	if s.round != round {
		h.mu.Unlock()
		return true
	}
	if err := s.state.Resolve(winners); err != nil {
		h.mu.Unlock()
		h.log.Warn().Err(err).Msg("cannot resolve round")
		return true
	}
	s.round++
	h.mu.Unlock()

	h.log.Info().Str("prompt", prompt).Strs("winners", winners).Msg("round resolved")
	h.publishState(context.WithoutCancel(ctx))
	return true
}

// guess asks the oracle about one drawing and remembers the answer by hash.
func (h *Host) guess(ctx context.Context, p pendingGuess) (string, error) {
	png, err := drawing.RenderPNG(p.lines, h.opts.RenderSize, h.opts.StrokeWidth)
	if err != nil {
		return "", err
	}
	guess, err := h.guesser.Guess(ctx, png)
	if err != nil {
		return "", err
	}

	h.mu.Lock()
	h.session.cache.Set(p.hash, guess)
	h.mu.Unlock()
	h.log.Debug().Str("identity", p.identity).Str("hash", p.hash).Str("guess", guess).Msg("new guess")

	if guess == game.CheaterCheater {
		rpcCtx, cancel := context.WithTimeout(ctx, h.opts.RPCTimeout)
		if _, err := h.room.PerformRPC(rpcCtx, p.identity, MethodCaughtCheating, "{}"); err != nil {
			h.log.Debug().Err(err).Str("identity", p.identity).Msg("cheating notice not delivered")
		}
		cancel()
	}
	return guess, nil
}
