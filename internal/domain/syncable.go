package domain

import (
	"time"

	"github.com/google/uuid"
)

// Record holds the identity every synced entity keeps for its whole life,
// including after it has been tombstoned.
type Record struct {
	ID           string    `json:"-"` // server-internal, never sent to clients
	UUID         uuid.UUID `json:"uuid"`
	OwnerID      string    `json:"-"`
	LastModified time.Time `json:"last_modified"`
}

// OwnedBy reports whether the record belongs to ownerID.
func (r Record) OwnedBy(ownerID string) bool {
	return r.OwnerID == ownerID
}
