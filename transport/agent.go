package transport

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Agent is the in-process participant of a room. It never goes through a
// socket: the room hands it events directly and its publications are fanned
// out to every remote participant.
type Agent struct {
	identity string
	room     *Room

	mu       sync.RWMutex
	handlers []func(Event)
	methods  map[string]RPCHandler
}

func newAgent(identity string, room *Room) *Agent {
	return &Agent{
		identity: identity,
		room:     room,
		methods:  make(map[string]RPCHandler),
	}
}

func (a *Agent) Identity() string {
	return a.identity
}

func (a *Agent) Name() string {
	return a.room.Name()
}

func (a *Agent) Metadata() string {
	return a.room.Metadata()
}

func (a *Agent) Participants() []ParticipantInfo {
	return a.room.Participants()
}

// OnEvent subscribes to room events. Handlers run on the sender's read
// goroutine and must not block.
func (a *Agent) OnEvent(handler func(Event)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handlers = append(a.handlers, handler)
}

func (a *Agent) RegisterRPCMethod(method string, handler RPCHandler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.methods[method] = handler
}

func (a *Agent) PublishData(_ context.Context, topic string, payload []byte) error {
	a.room.publish(a.identity, topic, payload)
	return nil
}

func (a *Agent) PerformRPC(ctx context.Context, destination, method, payload string) (string, error) {
	return a.room.performRPC(ctx, a.identity, destination, method, payload)
}

func (a *Agent) deliver(ev Event) {
	a.mu.RLock()
	handlers := slices.Clone(a.handlers)
	a.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}

func (a *Agent) invoke(ctx context.Context, method string, inv RPCInvocation) (string, error) {
	a.mu.RLock()
	handler, ok := a.methods[method]
	a.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMethodNotFound, method)
	}
	return handler(ctx, inv)
}
