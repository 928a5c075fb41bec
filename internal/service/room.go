package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mateoabrbt/whistle-server/internal/domain"
	"github.com/mateoabrbt/whistle-server/internal/repository"
)

const maxRoomNameLength = 100

// RoomService manages rooms and their member sets.
type RoomService struct {
	tx            repository.Transactor
	roomRepo      repository.RoomRepository
	userRepo      repository.UserRepository
	broadcaster   Broadcaster
	subscriptions RoomSubscriber
}

func NewRoomService(
	tx repository.Transactor,
	roomRepo repository.RoomRepository,
	userRepo repository.UserRepository,
	broadcaster Broadcaster,
	subscriptions RoomSubscriber,
) *RoomService {
	if tx == nil || roomRepo == nil || userRepo == nil {
		panic("Transactor, RoomRepository and UserRepository cannot be nil for RoomService")
	}
	if broadcaster == nil || subscriptions == nil {
		panic("Broadcaster and RoomSubscriber cannot be nil for RoomService")
	}
	return &RoomService{
		tx:            tx,
		roomRepo:      roomRepo,
		userRepo:      userRepo,
		broadcaster:   broadcaster,
		subscriptions: subscriptions,
	}
}

// EnsureMember returns the room if userID belongs to it and ErrRoomNotFound
// otherwise, without telling the caller which of the two cases applied.
func (s *RoomService) EnsureMember(ctx context.Context, userID, roomID string) (*domain.Room, error) {
	room, err := findMemberRoom(ctx, s.roomRepo, roomID, userID)
	if err != nil {
		return nil, asServiceError(err, logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID}), "Room storage failure")
	}
	return room, nil
}

// CreateRoom creates a room whose members are the creator plus memberIDs.
func (s *RoomService) CreateRoom(ctx context.Context, creatorID, name string, description *string, memberIDs []string) (*domain.Room, error) {
	logCtx := logrus.WithField("creator_id", creatorID)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Invalidf("room name is required")
	}
	if len(name) > maxRoomNameLength {
		return nil, Invalidf("room name must be at most %d characters", maxRoomNameLength)
	}

	ids := uniqueIDs(append([]string{creatorID}, memberIDs...))
	users, err := s.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, asServiceError(err, logCtx, "Room storage failure")
	}
	if len(users) != len(ids) {
		logCtx.WithField("member_ids", ids).Warn("Create room with unknown members")
		return nil, ErrUserNotFound
	}

	room := &domain.Room{ID: uuid.NewString(), Name: name, Description: description}
	err = s.tx.WithinTx(ctx, func(store repository.Store) error {
		return store.Rooms().Create(ctx, room, ids)
	})
	if err != nil {
		return nil, asServiceError(err, logCtx, "Room storage failure")
	}

	for _, id := range ids {
		s.subscriptions.SubscribeUser(id, room.ID)
	}
	logCtx.WithFields(logrus.Fields{"room_id": room.ID, "members": len(ids)}).Info("Room created successfully")
	return room, nil
}

// ListRooms returns every room userID is a member of.
func (s *RoomService) ListRooms(ctx context.Context, userID string) ([]domain.Room, error) {
	rooms, err := s.roomRepo.ListForMember(ctx, userID)
	if err != nil {
		return nil, asServiceError(err, logrus.WithField("user_id", userID), "Room storage failure")
	}
	return rooms, nil
}

// ListRoomIDs returns the ids of every room userID is a member of.
func (s *RoomService) ListRoomIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.roomRepo.ListIDsForMember(ctx, userID)
	if err != nil {
		return nil, asServiceError(err, logrus.WithField("user_id", userID), "Room storage failure")
	}
	return ids, nil
}

// GetRoom is EnsureMember under the name the HTTP surface uses.
func (s *RoomService) GetRoom(ctx context.Context, userID, roomID string) (*domain.Room, error) {
	return s.EnsureMember(ctx, userID, roomID)
}

// JoinRoom adds userID to an existing room. Joining twice is a conflict.
func (s *RoomService) JoinRoom(ctx context.Context, userID, roomID string) (*domain.Room, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID})

	var room *domain.Room
	err := s.tx.WithinTx(ctx, func(store repository.Store) error {
		found, err := store.Rooms().FindByID(ctx, roomID)
		if err != nil {
			if errors.Is(err, repository.ErrRoomNotFound) {
				return ErrRoomNotFound
			}
			return err
		}
		for _, m := range found.Members {
			if m.UserID == userID {
				return ErrAlreadyMember
			}
		}
		if err := store.Rooms().AddMember(ctx, roomID, userID); err != nil {
			if errors.Is(err, repository.ErrDuplicateEntry) {
				return ErrAlreadyMember
			}
			return err
		}
		found.Members = append(found.Members, domain.RoomMember{RoomID: roomID, UserID: userID})
		room = found
		return nil
	})
	if err != nil {
		return nil, asServiceError(err, logCtx, "Room storage failure")
	}

	s.subscriptions.SubscribeUser(userID, roomID)
	s.broadcaster.Broadcast(roomID, domain.EventUserJoinedRoom, domain.MembershipEvent{UserID: userID, RoomID: roomID})
	logCtx.Info("User joined room")
	return room, nil
}

// LeaveRoom removes userID from the room. The last member leaving deletes the
// room with its messages so no room is ever left without members.
func (s *RoomService) LeaveRoom(ctx context.Context, userID, roomID string) error {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID})

	deleted := false
	err := s.tx.WithinTx(ctx, func(store repository.Store) error {
		if _, err := findMemberRoom(ctx, store.Rooms(), roomID, userID); err != nil {
			return err
		}
		if err := store.Rooms().RemoveMember(ctx, roomID, userID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrRoomNotFound
			}
			return err
		}
		remaining, err := store.Rooms().CountMembers(ctx, roomID)
		if err != nil {
			return err
		}
		if remaining == 0 {
			deleted = true
			return store.Rooms().Delete(ctx, roomID)
		}
		return nil
	})
	if err != nil {
		return asServiceError(err, logCtx, "Room storage failure")
	}

	s.subscriptions.UnsubscribeUser(userID, roomID)
	s.broadcaster.Broadcast(roomID, domain.EventUserLeftRoom, domain.MembershipEvent{UserID: userID, RoomID: roomID})
	logCtx.WithField("room_deleted", deleted).Info("User left room")
	return nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
