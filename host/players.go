package host

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"livepaint/domain"
	"livepaint/drawing"
	"livepaint/transport"
	"time"
)

// HandleEvent dispatches one room event. It runs on the sender's read
// goroutine, so anything that waits on the network is handed to a task.
func (h *Host) HandleEvent(ev transport.Event) {
	switch ev.Kind {
	case transport.EventParticipantJoined:
		h.register(ev.Participant)
	case transport.EventParticipantLeft:
		h.unregister(ev.Participant.Identity)
	case transport.EventDataReceived:
		h.handleData(ev)
	}
}

func (h *Host) register(p transport.ParticipantInfo) {
	if p.Kind == transport.KindAgent || p.Identity == h.room.Identity() {
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	if _, ok := h.session.players[p.Identity]; ok {
		h.mu.Unlock()
		return
	}
	if len(h.session.players) >= h.opts.ParticipantLimit {
		h.mu.Unlock()
		h.log.Info().Str("identity", p.Identity).Int("limit", h.opts.ParticipantLimit).Msg("room is full, rejecting player")
		h.Kick(p.Identity, RoomFullReason)
		return
	}
	d := drawing.New(p.Identity)
	h.session.players[p.Identity] = d
	h.mu.Unlock()

	h.log.Info().Str("identity", p.Identity).Msg("player registered")
	h.tasks.Go(func(ctx context.Context) {
		h.loadDrawing(ctx, d)
	})
}

func (h *Host) unregister(identity string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.session.players[identity]; !ok {
		return
	}
	delete(h.session.players, identity)
	h.log.Info().Str("identity", identity).Msg("player unregistered")
}

// unregisterDrawing removes d only if it is still the registered drawing.
func (h *Host) unregisterDrawing(d *drawing.Drawing) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session.players[d.Identity()] == d {
		delete(h.session.players, d.Identity())
	}
}

// loadDrawing fetches what a reconnecting player had already drawn.
func (h *Host) loadDrawing(ctx context.Context, d *drawing.Drawing) {
	ctx, cancel := context.WithTimeout(ctx, h.opts.RPCTimeout)
	defer cancel()

	lines, err := h.fetchDrawing(ctx, d.Identity())
	if err != nil {
		if errors.Is(err, domain.ErrParticipantNotFound) {
			// left before we could ask
			h.unregisterDrawing(d)
			return
		}
		h.log.Warn().Err(err).Str("identity", d.Identity()).Msg("could not load drawing")
		return
	}
	if len(lines) == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session.players[d.Identity()] != d {
		return
	}
	d.AddLines(lines...)
	h.log.Debug().Str("identity", d.Identity()).Int("lines", len(lines)).Msg("drawing restored")
}

func (h *Host) fetchDrawing(ctx context.Context, identity string) ([]drawing.Line, error) {
	payload, err := h.room.PerformRPC(ctx, identity, MethodGetDrawing, "{}")
	if err != nil {
		return nil, err
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDrawingTransfer, err)
	}
	lines, err := drawing.DecodeAll(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDrawingTransfer, err)
	}
	return lines, nil
}

type kickPayload struct {
	Reason string `json:"reason"`
}

// Kick drops a player from the roster, tells them why and then removes them
// from the room. Removal happens even if the notice cannot be delivered.
func (h *Host) Kick(identity, reason string) {
	h.unregister(identity)

	_, started := h.tasks.Go(func(ctx context.Context) {
		h.kick(ctx, identity, reason)
	})
	if !started {
		// closing: skip the notice, still remove
		ctx, cancel := context.WithTimeout(context.Background(), h.opts.RPCTimeout)
		defer cancel()
		h.forceRemove(ctx, identity)
	}
}

func (h *Host) kick(ctx context.Context, identity, reason string) {
	payload, _ := json.Marshal(kickPayload{Reason: reason})

	notifyCtx, cancel := context.WithTimeout(ctx, h.opts.KickNotifyTimeout)
	if _, err := h.room.PerformRPC(notifyCtx, identity, MethodKick, string(payload)); err != nil {
		h.log.Debug().Err(err).Str("identity", identity).Msg("kick notice not delivered")
	}
	cancel()

	grace := time.NewTimer(h.opts.KickGrace)
	select {
	case <-grace.C:
	case <-ctx.Done():
		grace.Stop()
	}

	removeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.opts.RPCTimeout)
	defer cancel()
	h.forceRemove(removeCtx, identity)
}

func (h *Host) forceRemove(ctx context.Context, identity string) {
	err := h.admin.RemoveParticipant(ctx, h.room.Name(), identity)
	switch {
	case err == nil:
		h.log.Info().Str("identity", identity).Msg("player removed")
	case errors.Is(err, domain.ErrParticipantNotFound):
		// already gone on their own
	default:
		h.log.Warn().Err(err).Str("identity", identity).Msg("removing player failed")
	}
}

func (h *Host) handleData(ev transport.Event) {
	identity := ev.Participant.Identity

	switch ev.Topic {
	case TopicDrawLine:
		line, err := drawing.Decode(ev.Payload)
		if err != nil {
			h.log.Debug().Err(err).Str("identity", identity).Msg("dropping malformed line")
			return
		}
		h.mu.Lock()
		if d, ok := h.session.players[identity]; ok {
			d.AddLine(line)
		}
		h.mu.Unlock()

	case TopicClearDrawing:
		h.mu.Lock()
		if d, ok := h.session.players[identity]; ok {
			d.Clear()
		}
		h.mu.Unlock()
	}
}
