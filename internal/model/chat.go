package model

import "time"

// Chat message kinds
const (
	MessageTypeText  = "text"
	MessageTypeFile  = "file"
	MessageTypeAudio = "audio"
)

// ChatMessage is an append-only team chat entry. IDs are strictly increasing,
// which lets pollers fetch everything above a high-water mark.
type ChatMessage struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"type:varchar(100);not null;index" json:"username"`
	Role           string    `gorm:"type:varchar(30)" json:"role"` // snapshot at send time
	Body           string    `gorm:"type:text" json:"body"`
	Type           string    `gorm:"type:varchar(10);not null;default:'text'" json:"type"`
	AttachmentURL  string    `gorm:"type:text" json:"attachment_url,omitempty"`
	AttachmentName string    `gorm:"type:varchar(255)" json:"attachment_name,omitempty"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}
