package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/EMS-UCU/ucu-uems-sub002/core"
	"github.com/EMS-UCU/ucu-uems-sub002/core/audit"
)

type auditRepository struct {
	db *sqlx.DB
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(db *sql.DB) *auditRepository {
	return &auditRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo auditRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.db
}

func (repo auditRepository) AppendRecord(ctx context.Context, rec audit.Record, exec ...core.DBExecutor) (audit.Record, error) {
	rec.ID = uuid.New().String()
	rec.CreatedAt = rec.CreatedAt.UTC()
	_, err := repo.getExec(exec).ExecContext(ctx,
		`INSERT INTO paper_audit (id, paper_id, kind, actor, success, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.PaperID, rec.Kind, rec.Actor, rec.Success, rec.Detail, rec.CreatedAt,
	)
	if err != nil {
		return audit.Record{}, errors.Wrap(err, "appending audit record")
	}
	return rec, nil
}

func (repo auditRepository) QueryRecordsByPaper(ctx context.Context, paperID string) ([]audit.Record, error) {
	var recs []audit.Record
	// seq, not created_at: same-transaction records share a timestamp
	err := repo.db.SelectContext(ctx, &recs,
		`SELECT id, paper_id, kind, actor, success, detail, created_at
		 FROM paper_audit WHERE paper_id = $1 ORDER BY seq ASC`,
		paperID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying audit records")
	}
	return recs, nil
}
