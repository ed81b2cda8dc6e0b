package transport

import "context"

type ParticipantKind int

const (
	KindStandard ParticipantKind = iota
	KindAgent
)

type ParticipantInfo struct {
	Identity string
	Kind     ParticipantKind
}

type EventKind int

const (
	EventParticipantJoined EventKind = iota
	EventParticipantLeft
	EventDataReceived
)

func (k EventKind) String() string {
	switch k {
	case EventParticipantJoined:
		return "participant_joined"
	case EventParticipantLeft:
		return "participant_left"
	case EventDataReceived:
		return "data_received"
	}
	return "unknown"
}

// Event is what the room delivers to its agent. Topic and Payload are only set
// for EventDataReceived.
type Event struct {
	Kind        EventKind
	Participant ParticipantInfo
	Topic       string
	Payload     []byte
}

type RPCInvocation struct {
	RequestID      string
	CallerIdentity string
	Payload        string
}

type RPCHandler func(ctx context.Context, inv RPCInvocation) (string, error)

// MetadataStore persists room metadata across restarts.
type MetadataStore interface {
	SaveRoomMetadata(ctx context.Context, room string, metadata string) error
	GetRoomMetadata(ctx context.Context, room string) (string, error)
}
