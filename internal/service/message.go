package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mateoabrbt/whistle-server/internal/domain"
	"github.com/mateoabrbt/whistle-server/internal/repository"
)

const (
	maxContentLength = 4000
	defaultPageSize  = 20
	maxPageSize      = 100
	// maxPage keeps (page-1)*limit far from int overflow.
	maxPage = 1_000_000
)

// MessageService sends, edits and lists room messages.
type MessageService struct {
	roomRepo    repository.RoomRepository
	messageRepo repository.MessageRepository
	broadcaster Broadcaster
}

func NewMessageService(roomRepo repository.RoomRepository, messageRepo repository.MessageRepository, broadcaster Broadcaster) *MessageService {
	if roomRepo == nil || messageRepo == nil || broadcaster == nil {
		panic("RoomRepository, MessageRepository and Broadcaster cannot be nil for MessageService")
	}
	return &MessageService{roomRepo: roomRepo, messageRepo: messageRepo, broadcaster: broadcaster}
}

// Send stores a message from userID in roomID and broadcasts newMessage.
func (s *MessageService) Send(ctx context.Context, userID, roomID, content string) (*domain.Message, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID})

	content, err := validContent(content)
	if err != nil {
		return nil, err
	}
	if _, err := findMemberRoom(ctx, s.roomRepo, roomID, userID); err != nil {
		return nil, asServiceError(err, logCtx, "Message storage failure")
	}

	msg := &domain.Message{
		ID:       uuid.NewString(),
		RoomID:   roomID,
		SenderID: userID,
		Content:  content,
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, asServiceError(err, logCtx, "Message storage failure")
	}

	s.broadcaster.Broadcast(roomID, domain.EventNewMessage, msg)
	logCtx.WithField("message_id", msg.ID).Debug("Message sent")
	return msg, nil
}

// Modify replaces the content of a message. Only its sender may do this; for
// anyone else the message does not exist.
func (s *MessageService) Modify(ctx context.Context, userID, roomID, messageID, content string) (*domain.Message, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID, "message_id": messageID})

	content, err := validContent(content)
	if err != nil {
		return nil, err
	}
	if _, err := findMemberRoom(ctx, s.roomRepo, roomID, userID); err != nil {
		return nil, asServiceError(err, logCtx, "Message storage failure")
	}

	msg, err := s.messageRepo.FindByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, asServiceError(err, logCtx, "Message storage failure")
	}
	if msg.RoomID != roomID || msg.SenderID != userID {
		return nil, ErrMessageNotFound
	}

	updated, err := s.messageRepo.UpdateContent(ctx, messageID, content)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, asServiceError(err, logCtx, "Message storage failure")
	}

	s.broadcaster.Broadcast(roomID, domain.EventMessageModified, updated)
	return updated, nil
}

// List returns one page of the room history, newest first. page starts at 1.
func (s *MessageService) List(ctx context.Context, userID, roomID string, page, limit int) ([]domain.Message, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID})

	if _, err := findMemberRoom(ctx, s.roomRepo, roomID, userID); err != nil {
		return nil, asServiceError(err, logCtx, "Message storage failure")
	}
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		return nil, Invalidf("page must be at most %d", maxPage)
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	msgs, err := s.messageRepo.ListByRoom(ctx, roomID, limit, (page-1)*limit)
	if err != nil {
		return nil, asServiceError(err, logCtx, "Message storage failure")
	}
	return msgs, nil
}

func validContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", Invalidf("message content is required")
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return "", Invalidf("message content must be at most %d characters", maxContentLength)
	}
	return content, nil
}
