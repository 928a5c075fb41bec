package domain

import "time"

// Room is a chat room. Its member set is never empty while the room exists:
// the creator is always a member and the last member leaving deletes it.
type Room struct {
	ID          string       `gorm:"primaryKey;size:36" json:"id"`
	Name        string       `gorm:"type:varchar(191);not null" json:"name"`
	Description *string      `gorm:"type:text" json:"description"`
	Members     []RoomMember `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE" json:"members,omitempty"`
	CreatedAt   time.Time    `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time    `gorm:"autoUpdateTime" json:"updatedAt"`
}

// RoomMember is one row of the many-to-many room/user relation.
type RoomMember struct {
	RoomID    string    `gorm:"primaryKey;size:36" json:"roomId"`
	UserID    string    `gorm:"primaryKey;size:36;index" json:"userId"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"joinedAt"`
}

// MemberIDs returns the user ids of the loaded members.
func (r *Room) MemberIDs() []string {
	ids := make([]string, 0, len(r.Members))
	for _, m := range r.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}
