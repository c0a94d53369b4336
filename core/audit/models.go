// Package audit keeps the immutable trail of credential lifecycle events
// for papers held in the approved-papers vault. Records are append-only:
// the repository exposes no update or delete operation.
package audit

import (
	"context"
	"time"

	"github.com/EMS-UCU/ucu-uems-sub002/core"
)

// Event kinds.
const (
	EventCredentialGenerated = "credential_generated"
	EventUnlocked            = "unlocked"
	EventRelocked            = "relocked"
)

// SystemActor attributes records written by the background sweeps.
const SystemActor = "system"

type Record struct {
	ID        string    `json:"id" db:"id"`
	PaperID   string    `json:"paper_id" db:"paper_id"`
	Kind      string    `json:"kind" db:"kind"`
	Actor     string    `json:"actor" db:"actor"` // user ID or SystemActor
	Success   bool      `json:"success" db:"success"`
	Detail    string    `json:"detail,omitempty" db:"detail"` // failure reason on unsuccessful unlocks
	CreatedAt time.Time `json:"created_at" db:"created_at"`   // UTC
}

type Repository interface {
	// AppendRecord is the only write operation; records are never mutated.
	// The optional executor joins the append to an enclosing transaction.
	AppendRecord(ctx context.Context, rec Record, exec ...core.DBExecutor) (Record, error)
	// QueryRecordsByPaper returns the paper's records in append order.
	QueryRecordsByPaper(ctx context.Context, paperID string) ([]Record, error)
}
