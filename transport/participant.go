package transport

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	sendBufferSize = 256
	pingInterval   = 30 * time.Second
)

// Drawing clients stream one packet per stroke segment, so the data limit is
// generous; RPCs are user actions.
var (
	dataRate  = rate.Limit(240)
	dataBurst = 480
	rpcRate   = rate.Limit(5)
	rpcBurst  = 10
)

// participant is a remote client connected over a socket. Its read pump feeds
// the room, its write pump drains inbox.
type participant struct {
	info        ParticipantInfo
	room        *Room
	dataLimiter *rate.Limiter
	rpcLimiter  *rate.Limiter
	inbox       chan []byte
	ctx         context.Context
	cancelCtx   context.CancelFunc

	mu          sync.Mutex
	closeReason string
}

func newParticipant(identity string, room *Room) *participant {
	ctx, cancel := context.WithCancel(context.Background())
	return &participant{
		info:        ParticipantInfo{Identity: identity, Kind: KindStandard},
		room:        room,
		dataLimiter: rate.NewLimiter(dataRate, dataBurst),
		rpcLimiter:  rate.NewLimiter(rpcRate, rpcBurst),
		inbox:       make(chan []byte, sendBufferSize),
		ctx:         ctx,
		cancelCtx:   cancel,
	}
}

// Send queues a frame without blocking the caller.
func (p *participant) Send(data []byte) error {
	if p.ctx.Err() != nil {
		return ErrParticipantLeft
	}
	select {
	case p.inbox <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close disconnects the participant. The first reason wins.
func (p *participant) Close(reason string) {
	p.mu.Lock()
	if p.closeReason == "" {
		p.closeReason = reason
	}
	p.mu.Unlock()
	p.cancelCtx()
}

func (p *participant) reason() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeReason
}

func (p *participant) ReadPump(socket Connection) {
	defer p.room.leave(p)
	defer p.cancelCtx()

	for {
		data, err := socket.Read()
		if err != nil {
			return
		}

		packet, err := UnmarshalPacket(data)
		if err != nil {
			log.Debug().Err(err).Str("identity", p.info.Identity).Msg("dropping malformed packet")
			continue
		}

		switch packet.Kind {
		case PacketData:
			if !p.dataLimiter.Allow() {
				continue
			}
		case PacketRPCRequest:
			if !p.rpcLimiter.Allow() {
				p.Send(Packet{Kind: PacketRPCResponse, RequestID: packet.RequestID, Error: "rate-limited"}.Marshal())
				continue
			}
		}

		p.room.handlePacket(p, packet)
	}
}

func (p *participant) WritePump(socket Connection) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-p.inbox:
			if err := socket.Write(data); err != nil {
				p.cancelCtx()
				socket.Close("")
				return
			}
		case <-ticker.C:
			if err := socket.Ping(); err != nil {
				p.cancelCtx()
				socket.Close("")
				return
			}
		case <-p.ctx.Done():
			socket.Close(p.reason())
			return
		}
	}
}
