package transport

import (
	"context"
	"fmt"
	"livepaint/domain"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type rpcResult struct {
	payload string
	err     error
}

type pendingCall struct {
	destination string
	result      chan rpcResult
}

// Room routes packets between the remote participants of one room and its
// in-process agent, and owns the room metadata.
type Room struct {
	name    string
	store   MetadataStore
	onEmpty func(*Room)

	// serializes metadata writers so storage and memory agree on the last write
	metaMu sync.Mutex

	mu           sync.Mutex
	metadata     string
	participants map[string]*participant
	agent        *Agent
	pending      map[string]pendingCall
	closed       bool
}

func newRoom(name, metadata string, store MetadataStore, onEmpty func(*Room)) *Room {
	return &Room{
		name:         name,
		store:        store,
		onEmpty:      onEmpty,
		metadata:     metadata,
		participants: make(map[string]*participant),
		pending:      make(map[string]pendingCall),
	}
}

func (r *Room) Name() string {
	return r.name
}

func (r *Room) Metadata() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.metadata
}

// Participants lists everyone in the room, agent included, ordered by identity.
func (r *Room) Participants() []ParticipantInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ParticipantInfo, 0, len(r.participants)+1)
	for _, p := range r.participants {
		out = append(out, p.info)
	}
	if r.agent != nil {
		out = append(out, ParticipantInfo{Identity: r.agent.identity, Kind: KindAgent})
	}
	slices.SortFunc(out, func(a, b ParticipantInfo) int { return strings.Compare(a.Identity, b.Identity) })
	return out
}

// AttachAgent makes an in-process participant the room's agent.
func (r *Room) AttachAgent(identity string) *Agent {
	a := newAgent(identity, r)

	r.mu.Lock()
	r.agent = a
	r.broadcastLocked(Packet{Kind: PacketParticipantJoined, Sender: identity}.Marshal(), "")
	r.mu.Unlock()

	return a
}

func (r *Room) broadcastLocked(data []byte, except string) {
	for identity, p := range r.participants {
		if identity == except {
			continue
		}
		if err := p.Send(data); err != nil {
			log.Warn().Err(err).Str("room", r.name).Str("identity", identity).Msg("dropping frame")
		}
	}
}

func (r *Room) join(p *participant) error {
	identity := p.info.Identity

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRoomClosed
	}
	if stale, ok := r.participants[identity]; ok {
		delete(r.participants, identity)
		r.failPendingLocked(identity)
		stale.Close(domain.ErrDuplicateIdentity.Error())
	}
	r.participants[identity] = p

	p.Send(Packet{Kind: PacketMetadata, Payload: []byte(r.metadata)}.Marshal())
	for other := range r.participants {
		if other != identity {
			p.Send(Packet{Kind: PacketParticipantJoined, Sender: other}.Marshal())
		}
	}
	if r.agent != nil {
		p.Send(Packet{Kind: PacketParticipantJoined, Sender: r.agent.identity}.Marshal())
	}
	r.broadcastLocked(Packet{Kind: PacketParticipantJoined, Sender: identity}.Marshal(), identity)
	agent := r.agent
	r.mu.Unlock()

	log.Info().Str("room", r.name).Str("identity", identity).Msg("participant joined")
	if agent != nil {
		agent.deliver(Event{Kind: EventParticipantJoined, Participant: p.info})
	}
	return nil
}

// leave is idempotent and ignores participants that were already replaced.
func (r *Room) leave(p *participant) {
	identity := p.info.Identity

	r.mu.Lock()
	current, ok := r.participants[identity]
	if !ok || current != p {
		r.mu.Unlock()
		return
	}
	delete(r.participants, identity)
	r.failPendingLocked(identity)
	r.broadcastLocked(Packet{Kind: PacketParticipantLeft, Sender: identity}.Marshal(), "")
	empty := len(r.participants) == 0
	agent := r.agent
	r.mu.Unlock()

	p.Close("")
	log.Info().Str("room", r.name).Str("identity", identity).Msg("participant left")

	if agent != nil {
		agent.deliver(Event{Kind: EventParticipantLeft, Participant: p.info})
	}
	if empty && r.onEmpty != nil {
		r.onEmpty(r)
	}
}

// markClosedIfEmpty refuses further joins once the room has emptied.
func (r *Room) markClosedIfEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.participants) == 0 {
		r.closed = true
	}
	return r.closed
}

func (r *Room) closeAll(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for _, p := range r.participants {
		p.Close(reason)
	}
}

func (r *Room) failPendingLocked(identity string) {
	for id, call := range r.pending {
		if call.destination == identity {
			call.result <- rpcResult{err: ErrParticipantLeft}
			delete(r.pending, id)
		}
	}
}

func (r *Room) dropPending(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, id)
}

func (r *Room) handlePacket(from *participant, packet Packet) {
	packet.Sender = from.info.Identity

	switch packet.Kind {
	case PacketData:
		r.mu.Lock()
		if packet.Destination == "" {
			r.broadcastLocked(packet.Marshal(), packet.Sender)
		} else if dest, ok := r.participants[packet.Destination]; ok {
			dest.Send(packet.Marshal())
		}
		agent := r.agent
		r.mu.Unlock()

		if agent != nil && (packet.Destination == "" || packet.Destination == agent.identity) {
			agent.deliver(Event{
				Kind:        EventDataReceived,
				Participant: from.info,
				Topic:       packet.Topic,
				Payload:     packet.Payload,
			})
		}

	case PacketRPCRequest:
		r.mu.Lock()
		agent := r.agent
		r.mu.Unlock()

		if agent == nil || packet.Destination != agent.identity {
			from.Send(Packet{Kind: PacketRPCResponse, RequestID: packet.RequestID, Error: ErrUnsupportedDestination.Error()}.Marshal())
			return
		}
		go r.answerRPC(agent, from, packet)

	case PacketRPCResponse:
		r.resolve(from.info.Identity, packet)

	default:
		// metadata and presence are server-authored
	}
}

func (r *Room) answerRPC(agent *Agent, from *participant, packet Packet) {
	inv := RPCInvocation{
		RequestID:      packet.RequestID,
		CallerIdentity: from.info.Identity,
		Payload:        string(packet.Payload),
	}
	response := Packet{Kind: PacketRPCResponse, RequestID: packet.RequestID, Sender: agent.identity}

	payload, err := agent.invoke(from.ctx, packet.Method, inv)
	if err != nil {
		response.Error = err.Error()
	} else {
		response.Payload = []byte(payload)
	}
	from.Send(response.Marshal())
}

func (r *Room) resolve(from string, packet Packet) {
	r.mu.Lock()
	call, ok := r.pending[packet.RequestID]
	if !ok || call.destination != from {
		r.mu.Unlock()
		return
	}
	delete(r.pending, packet.RequestID)
	r.mu.Unlock()

	var err error
	if packet.Error != "" {
		err = &RPCError{Message: packet.Error}
	}
	call.result <- rpcResult{payload: string(packet.Payload), err: err}
}

func (r *Room) performRPC(ctx context.Context, from, destination, method, payload string) (string, error) {
	id := uuid.NewString()
	result := make(chan rpcResult, 1)

	r.mu.Lock()
	dest, ok := r.participants[destination]
	if !ok {
		r.mu.Unlock()
		return "", fmt.Errorf("%w: %s", domain.ErrParticipantNotFound, destination)
	}
	r.pending[id] = pendingCall{destination: destination, result: result}
	r.mu.Unlock()

	request := Packet{
		Kind:        PacketRPCRequest,
		RequestID:   id,
		Method:      method,
		Destination: destination,
		Sender:      from,
		Payload:     []byte(payload),
	}
	if err := dest.Send(request.Marshal()); err != nil {
		r.dropPending(id)
		return "", err
	}

	select {
	case res := <-result:
		return res.payload, res.err
	case <-ctx.Done():
		r.dropPending(id)
		return "", ctx.Err()
	}
}

func (r *Room) publish(from, topic string, payload []byte) {
	data := Packet{Kind: PacketData, Topic: topic, Payload: payload, Sender: from}.Marshal()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastLocked(data, from)
}

// UpdateMetadata persists then broadcasts. Only privileged callers reach it.
func (r *Room) UpdateMetadata(ctx context.Context, metadata string) error {
	r.metaMu.Lock()
	defer r.metaMu.Unlock()

	if err := r.store.SaveRoomMetadata(ctx, r.name, metadata); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.metadata = metadata
	r.broadcastLocked(Packet{Kind: PacketMetadata, Payload: []byte(metadata)}.Marshal(), "")
	return nil
}

func (r *Room) RemoveParticipant(identity, reason string) error {
	r.mu.Lock()
	p, ok := r.participants[identity]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrParticipantNotFound, identity)
	}
	p.Close(reason)
	r.leave(p)
	return nil
}
