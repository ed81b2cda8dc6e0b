package host

import (
	"context"
	"livepaint/transport"
	"time"
)

// Room is the host's view of its realtime room, as the room's agent.
type Room interface {
	Name() string
	Identity() string
	Metadata() string
	Participants() []transport.ParticipantInfo
	OnEvent(handler func(transport.Event))
	RegisterRPCMethod(method string, handler transport.RPCHandler)
	PublishData(ctx context.Context, topic string, payload []byte) error
	PerformRPC(ctx context.Context, destination, method, payload string) (string, error)
}

// RoomAdmin holds the privileged credential participants do not have.
type RoomAdmin interface {
	UpdateRoomMetadata(ctx context.Context, room, metadata string) error
	RemoveParticipant(ctx context.Context, room, identity string) error
}

type Guesser interface {
	Guess(ctx context.Context, png []byte) (string, error)
}

type Judge interface {
	CheckWinners(ctx context.Context, prompt string, guesses map[string]string) ([]string, error)
}

type PeriodicTickerChannelCreator interface {
	Create(interval time.Duration) (<-chan time.Time, func())
}
