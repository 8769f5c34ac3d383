// Package offline durably queues finalized sales that could not reach the
// remote ledger. Entries only leave the queue after the ledger acknowledged
// them.
package offline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-pos/internal/sales"
)

// LocalPrefix marks folios issued by the terminal. Server folios never carry it.
const LocalPrefix = "OFF-"

// ErrEmptyID rejects removals without an identifier.
var ErrEmptyID = errors.New("offline: empty local id")

// PendingSale is a sale awaiting remote acknowledgment.
type PendingSale struct {
	LocalID   string     `json:"local_id"`
	Sale      sales.Sale `json:"sale"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewLocalID issues a terminal-local folio.
func NewLocalID() string {
	return LocalPrefix + uuid.NewString()
}

// IsLocalFolio reports whether folio was issued by the terminal.
func IsLocalFolio(folio string) bool {
	return strings.HasPrefix(folio, LocalPrefix)
}

// Store persists pending sales. Append and Delete must be atomic.
type Store interface {
	Append(ctx context.Context, sale PendingSale) error
	Delete(ctx context.Context, localID string) error
	List(ctx context.Context) ([]PendingSale, error)
	Len(ctx context.Context) (int, error)
	Flush(ctx context.Context) error
}
