package transport

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

type PacketKind uint64

const (
	PacketData PacketKind = iota + 1
	PacketRPCRequest
	PacketRPCResponse
	PacketMetadata
	PacketParticipantJoined
	PacketParticipantLeft
)

// Packet is the single frame type exchanged over a participant socket. It is
// encoded with protobuf wire rules so any protobuf runtime on the client side
// can read it with a matching message definition:
//
//	message Packet {
//	  uint64 kind = 1;
//	  string topic = 2;
//	  bytes payload = 3;
//	  string request_id = 4;
//	  string method = 5;
//	  string destination = 6;
//	  string sender = 7;
//	  string error = 8;
//	}
type Packet struct {
	Kind        PacketKind
	Topic       string
	Payload     []byte
	RequestID   string
	Method      string
	Destination string
	Sender      string
	Error       string
}

const (
	fieldKind protowire.Number = iota + 1
	fieldTopic
	fieldPayload
	fieldRequestID
	fieldMethod
	fieldDestination
	fieldSender
	fieldError
)

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func (p Packet) Marshal() []byte {
	b := make([]byte, 0, 32+len(p.Payload))
	b = protowire.AppendTag(b, fieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(p.Kind))
	b = appendString(b, fieldTopic, p.Topic)
	if len(p.Payload) > 0 {
		b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
		b = protowire.AppendBytes(b, p.Payload)
	}
	b = appendString(b, fieldRequestID, p.RequestID)
	b = appendString(b, fieldMethod, p.Method)
	b = appendString(b, fieldDestination, p.Destination)
	b = appendString(b, fieldSender, p.Sender)
	b = appendString(b, fieldError, p.Error)
	return b
}

// UnmarshalPacket decodes a frame. Unknown fields are skipped.
func UnmarshalPacket(b []byte) (Packet, error) {
	var p Packet
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Packet{}, fmt.Errorf("%w: %w", ErrMalformedPacket, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldKind && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Packet{}, fmt.Errorf("%w: %w", ErrMalformedPacket, protowire.ParseError(n))
			}
			p.Kind = PacketKind(v)
			b = b[n:]
		case num >= fieldTopic && num <= fieldError && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Packet{}, fmt.Errorf("%w: %w", ErrMalformedPacket, protowire.ParseError(n))
			}
			p.set(num, v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Packet{}, fmt.Errorf("%w: %w", ErrMalformedPacket, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	if p.Kind < PacketData || p.Kind > PacketParticipantLeft {
		return Packet{}, fmt.Errorf("%w: unknown kind %d", ErrMalformedPacket, p.Kind)
	}
	return p, nil
}

func (p *Packet) set(num protowire.Number, v []byte) {
	switch num {
	case fieldTopic:
		p.Topic = string(v)
	case fieldPayload:
		p.Payload = append([]byte(nil), v...)
	case fieldRequestID:
		p.RequestID = string(v)
	case fieldMethod:
		p.Method = string(v)
	case fieldDestination:
		p.Destination = string(v)
	case fieldSender:
		p.Sender = string(v)
	case fieldError:
		p.Error = string(v)
	}
}
