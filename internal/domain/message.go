package domain

import "time"

// Message belongs to exactly one room and one sender. Only Content changes
// after creation, and only by the sender.
type Message struct {
	ID        string           `gorm:"primaryKey;size:36" json:"id"`
	RoomID    string           `gorm:"size:36;index:idx_room_created,priority:1;not null" json:"roomId"`
	SenderID  string           `gorm:"size:36;index;not null" json:"senderId"`
	Content   string           `gorm:"type:text;not null" json:"content"`
	Statuses  []DeliveryStatus `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"status,omitempty"`
	CreatedAt time.Time        `gorm:"autoCreateTime;index:idx_room_created,priority:2" json:"createdAt"`
	UpdatedAt time.Time        `gorm:"autoUpdateTime" json:"updatedAt"`
}
