package domain

import "time"

// StatusKind selects which receipt a batch operation is about.
type StatusKind string

const (
	StatusDelivered StatusKind = "delivered"
	StatusRead      StatusKind = "read"
)

// DeliveryStatus is the receipt of one recipient for one message.
// At most one row exists per (UserID, MessageID); the sender of the message
// never gets one. ReadAt != nil implies DeliveredAt != nil.
type DeliveryStatus struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	MessageID   string     `gorm:"size:36;uniqueIndex:idx_status_user_message,priority:2;not null" json:"messageId"`
	UserID      string     `gorm:"size:36;uniqueIndex:idx_status_user_message,priority:1;not null" json:"userId"`
	DeliveredAt *time.Time `json:"deliveredAt"`
	ReadAt      *time.Time `json:"readAt"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Delivered reports whether the recipient's client has received the message.
func (s *DeliveryStatus) Delivered() bool { return s != nil && s.DeliveredAt != nil }

// Read reports whether the recipient has opened the message.
func (s *DeliveryStatus) Read() bool { return s != nil && s.ReadAt != nil }
