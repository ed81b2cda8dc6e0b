package transport

import (
	"context"
	"errors"
	"fmt"
	"livepaint/domain"
	"sync"

	"github.com/rs/zerolog/log"
)

// AgentRunner drives the agent of a freshly opened room until ctx is done.
type AgentRunner func(ctx context.Context, agent *Agent)

type liveRoom struct {
	room   *Room
	cancel context.CancelFunc
}

// Hub opens rooms on first join and closes them once the last participant
// leaves. Every open room gets an agent driven by the runner.
type Hub struct {
	store         MetadataStore
	agentIdentity string
	runner        AgentRunner
	baseCtx       context.Context
	cancelBase    context.CancelFunc
	wg            sync.WaitGroup

	mu    sync.Mutex
	rooms map[string]liveRoom
	// counts room closes, so open can tell its metadata read went stale
	closes uint64
}

func NewHub(store MetadataStore, agentIdentity string, runner AgentRunner) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		store:         store,
		agentIdentity: agentIdentity,
		runner:        runner,
		baseCtx:       ctx,
		cancelBase:    cancel,
		rooms:         make(map[string]liveRoom),
	}
}

func (h *Hub) AgentIdentity() string {
	return h.agentIdentity
}

// Join attaches a socket to a room, opening the room if needed, and pumps it
// until the participant leaves.
func (h *Hub) Join(ctx context.Context, roomName, identity string, socket Connection) error {
	if identity == h.agentIdentity {
		socket.Close(domain.ErrDuplicateIdentity.Error())
		return domain.ErrDuplicateIdentity
	}

	for {
		room, err := h.open(ctx, roomName)
		if err != nil {
			socket.Close(err.Error())
			return err
		}

		p := newParticipant(identity, room)
		if err := room.join(p); errors.Is(err, ErrRoomClosed) {
			// lost the race against the room closing, open a new one
			continue
		}
		go p.WritePump(socket)
		p.ReadPump(socket)
		return nil
	}
}

// open returns the live room called name, creating it with its stored
// metadata when nobody has it open. The store is read without holding h.mu.
func (h *Hub) open(ctx context.Context, name string) (*Room, error) {
	for {
		h.mu.Lock()
		if h.baseCtx.Err() != nil {
			h.mu.Unlock()
			return nil, ErrRoomClosed
		}
		if live, ok := h.rooms[name]; ok {
			h.mu.Unlock()
			return live.room, nil
		}
		closes := h.closes
		h.mu.Unlock()

		metadata, err := h.store.GetRoomMetadata(ctx, name)
		if err != nil && !errors.Is(err, domain.ErrRoomNotFound) {
			return nil, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
		}

		h.mu.Lock()
		if h.baseCtx.Err() != nil {
			h.mu.Unlock()
			return nil, ErrRoomClosed
		}
		if live, ok := h.rooms[name]; ok {
			h.mu.Unlock()
			return live.room, nil
		}
		if h.closes != closes {
			// a room closed meanwhile and may have saved newer metadata
			h.mu.Unlock()
			continue
		}
		room := h.startLocked(name, metadata)
		h.mu.Unlock()

		log.Info().Str("room", name).Msg("room opened")
		return room, nil
	}
}

func (h *Hub) startLocked(name, metadata string) *Room {
	room := newRoom(name, metadata, h.store, h.closeIfEmpty)
	agent := room.AttachAgent(h.agentIdentity)
	roomCtx, cancel := context.WithCancel(h.baseCtx)
	h.rooms[name] = liveRoom{room: room, cancel: cancel}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.runner(roomCtx, agent)
	}()
	return room
}

// Lookup returns the open room with that name.
func (h *Hub) Lookup(name string) (*Room, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	live, ok := h.rooms[name]
	return live.room, ok
}

func (h *Hub) closeIfEmpty(room *Room) {
	h.mu.Lock()
	defer h.mu.Unlock()

	live, ok := h.rooms[room.Name()]
	if !ok || live.room != room || !room.markClosedIfEmpty() {
		return
	}
	delete(h.rooms, room.Name())
	h.closes++
	live.cancel()
	log.Info().Str("room", room.Name()).Msg("room closed")
}

// Shutdown disconnects everyone, stops every agent and waits for the runners
// to return or ctx to expire.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.cancelBase()
	for name, live := range h.rooms {
		live.room.closeAll("server-shutdown")
		live.cancel()
		delete(h.rooms, name)
	}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
