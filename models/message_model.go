package models

import (
	"time"

	"github.com/google/uuid"
)

type Message struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ChatID   uuid.UUID `gorm:"not null;index" json:"chat_id"`
	PostedBy uuid.UUID `gorm:"not null" json:"posted_by"`
	Content  string    `gorm:"type:text;not null" json:"content"`

	Poster       User          `gorm:"foreignkey:PostedBy" json:"-"`
	ReadReceipts []ReadReceipt `gorm:"foreignkey:MessageID" json:"read_receipts"`

	CreatedAt time.Time `json:"created_at"`
}

// ReadReceipt records that a reader has seen a message. The composite primary
// key gives the receipt set its semantics: re-adding a receipt is a no-op.
type ReadReceipt struct {
	MessageID uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	ReaderID  uuid.UUID `gorm:"type:uuid;primaryKey" json:"reader_id"`
	ReadAt    time.Time `gorm:"not null" json:"read_at"`
}
