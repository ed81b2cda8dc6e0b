package transport

import (
	"context"
	"fmt"
	"livepaint/domain"
)

// RoomService is the privileged room API used by agents and admin handlers.
type RoomService struct {
	hub   *Hub
	store MetadataStore
}

func NewRoomService(hub *Hub, store MetadataStore) *RoomService {
	return &RoomService{hub: hub, store: store}
}

// UpdateRoomMetadata persists metadata and broadcasts it when the room is open.
func (s *RoomService) UpdateRoomMetadata(ctx context.Context, room, metadata string) error {
	if r, ok := s.hub.Lookup(room); ok {
		return r.UpdateMetadata(ctx, metadata)
	}
	return s.store.SaveRoomMetadata(ctx, room, metadata)
}

func (s *RoomService) RemoveParticipant(ctx context.Context, room, identity string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r, ok := s.hub.Lookup(room)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrRoomNotFound, room)
	}
	return r.RemoveParticipant(identity, "removed")
}
