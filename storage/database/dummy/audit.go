package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/EMS-UCU/ucu-uems-sub002/core"
	"github.com/EMS-UCU/ucu-uems-sub002/core/audit"
)

type auditRepository struct {
	db *auditTable
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(db *DB) *auditRepository {
	return &auditRepository{db: db.audit}
}

func (repo *auditRepository) AppendRecord(_ context.Context, rec audit.Record, _ ...core.DBExecutor) (audit.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rec.ID = uuid.New().String()
	rec.CreatedAt = rec.CreatedAt.UTC()
	repo.db.records = append(repo.db.records, rec)
	return rec, nil
}

func (repo *auditRepository) QueryRecordsByPaper(_ context.Context, paperID string) ([]audit.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var recs []audit.Record
	for _, rec := range repo.db.records {
		if rec.PaperID == paperID {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}
