package service

import (
	"context"
	"errors"

	"github.com/mateoabrbt/whistle-server/internal/domain"
	"github.com/mateoabrbt/whistle-server/internal/repository"
)

// findMemberRoom is the membership check shared by every room-scoped operation.
// A missing room and a room the user is not in both yield ErrRoomNotFound.
func findMemberRoom(ctx context.Context, rooms repository.RoomRepository, roomID, userID string) (*domain.Room, error) {
	if roomID == "" || userID == "" {
		return nil, ErrRoomNotFound
	}
	room, err := rooms.FindForMember(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return room, nil
}
