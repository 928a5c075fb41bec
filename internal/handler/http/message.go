package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mateoabrbt/whistle-server/internal/domain"
	"github.com/mateoabrbt/whistle-server/internal/service"
)

// MessageHandler serves sending and the delivery/read receipt endpoints.
type MessageHandler struct {
	messageService *service.MessageService
	statusEngine   *service.StatusEngine
}

func NewMessageHandler(messageService *service.MessageService, statusEngine *service.StatusEngine) *MessageHandler {
	if messageService == nil || statusEngine == nil {
		panic("MessageService and StatusEngine cannot be nil for MessageHandler")
	}
	return &MessageHandler{messageService: messageService, statusEngine: statusEngine}
}

type SendMessageRequest struct {
	RoomID  string `json:"roomId" binding:"required"`
	Content string `json:"content" binding:"required"`
}

type MessageStatusRequest struct {
	RoomID    string `json:"roomId" binding:"required"`
	MessageID string `json:"messageId" binding:"required"`
}

type RoomStatusRequest struct {
	RoomID string `json:"roomId" binding:"required"`
}

func (h *MessageHandler) Send(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	msg, err := h.messageService.Send(c.Request.Context(), userID, req.RoomID, req.Content)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, msg)
}

func (h *MessageHandler) Delivered(c *gin.Context) {
	h.markOne(c, h.statusEngine.MarkDelivered)
}

func (h *MessageHandler) Read(c *gin.Context) {
	h.markOne(c, h.statusEngine.MarkRead)
}

// markOne answers with the resulting status, or null when the caller sent the message.
func (h *MessageHandler) markOne(c *gin.Context, mark func(ctx context.Context, roomID, messageID, userID string) (*domain.DeliveryStatus, error)) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req MessageStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	status, err := mark(c.Request.Context(), req.RoomID, req.MessageID, userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, status)
}

func (h *MessageHandler) DeliveredAll(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	n, err := h.statusEngine.MarkAllRoomsDelivered(c.Request.Context(), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, CountResponse{Count: n})
}

func (h *MessageHandler) ReadRoom(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req RoomStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	n, err := h.statusEngine.MarkRoomRead(c.Request.Context(), req.RoomID, userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, CountResponse{Count: n})
}
