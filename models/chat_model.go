package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Chat is identified by its participant set: two chats with the same
// participants are the same chat, regardless of who initiated it or in what
// order the ids were supplied.
type Chat struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	InitiatorID uuid.UUID `gorm:"not null" json:"initiator_id"`

	// Sorted, comma-joined participant ids; the unique index is what makes
	// chat creation dedup race-safe.
	ParticipantKey string `gorm:"size:1024;not null;uniqueIndex" json:"-"`

	Participants []*User `gorm:"many2many:chat_participants;" json:"participants,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatParticipantKey normalizes a participant set to its canonical key:
// duplicates removed, ids sorted lexicographically.
func ChatParticipantKey(ids []uuid.UUID) string {
	seen := make(map[uuid.UUID]bool, len(ids))
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		keys = append(keys, id.String())
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

// ExcludeSelf drops the initiator (and duplicates) from a participant list.
func ExcludeSelf(ids []uuid.UUID, self uuid.UUID) []uuid.UUID {
	seen := map[uuid.UUID]bool{self: true}
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
