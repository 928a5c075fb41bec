package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mateoabrbt/whistle-server/internal/service"
)

// RoomHandler serves room management and message history.
type RoomHandler struct {
	roomService    *service.RoomService
	messageService *service.MessageService
}

func NewRoomHandler(roomService *service.RoomService, messageService *service.MessageService) *RoomHandler {
	if roomService == nil || messageService == nil {
		panic("RoomService and MessageService cannot be nil for RoomHandler")
	}
	return &RoomHandler{roomService: roomService, messageService: messageService}
}

type CreateRoomRequest struct {
	Name        string   `json:"name" binding:"required,max=100"`
	Description *string  `json:"description"`
	Members     []string `json:"members" binding:"omitempty,dive,required"`
}

type ListMessagesQuery struct {
	Page  int `form:"page" binding:"omitempty,min=1,max=1000000"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

func (h *RoomHandler) CreateRoom(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	room, err := h.roomService.CreateRoom(c.Request.Context(), userID, req.Name, req.Description, req.Members)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, room)
}

func (h *RoomHandler) ListRooms(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	rooms, err := h.roomService.ListRooms(c.Request.Context(), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, rooms)
}

func (h *RoomHandler) GetRoom(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	room, err := h.roomService.GetRoom(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, room)
}

func (h *RoomHandler) ListMessages(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var q ListMessagesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindingError(c, err)
		return
	}

	msgs, err := h.messageService.List(c.Request.Context(), userID, c.Param("id"), q.Page, q.Limit)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, msgs)
}

func (h *RoomHandler) JoinRoom(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	room, err := h.roomService.JoinRoom(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, room)
}

func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	roomID := c.Param("id")
	if err := h.roomService.LeaveRoom(c.Request.Context(), userID, roomID); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"roomId": roomID})
}
