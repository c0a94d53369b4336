package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/EMS-UCU/ucu-uems-sub002/core"
	"github.com/EMS-UCU/ucu-uems-sub002/core/paper"
)

type paperRepository struct {
	db *sqlx.DB
}

var _ paper.Repository = (*paperRepository)(nil) // interface compliance check

func NewPaperRepository(db *sql.DB) *paperRepository {
	return &paperRepository{db: sqlx.NewDb(db, "postgres")}
}

// getExec routes writes through an enclosing transaction when one is given.
func (repo paperRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.db
}

// paperRow maps the paper table; nullable columns use sql.Null* wrappers.
type paperRow struct {
	ID                 string         `db:"id"`
	CourseCode         string         `db:"course_code"`
	CourseTitle        string         `db:"course_title"`
	Title              string         `db:"title"`
	SetterID           string         `db:"setter_id"`
	Status             string         `db:"status"`
	PrintingDueAt      sql.NullTime   `db:"printing_due_at"`
	LockState          string         `db:"lock_state"`
	CredentialHash     []byte         `db:"credential_hash"`
	CredentialIssuedAt sql.NullTime   `db:"credential_issued_at"`
	UnlockExpiresAt    sql.NullTime   `db:"unlock_expires_at"`
	UnlockedBy         sql.NullString `db:"unlocked_by"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

func (r paperRow) unrow() paper.Paper {
	return paper.Paper{
		ID:                 r.ID,
		CourseCode:         r.CourseCode,
		CourseTitle:        r.CourseTitle,
		Title:              r.Title,
		SetterID:           r.SetterID,
		Status:             paper.Status(r.Status),
		PrintingDueAt:      r.PrintingDueAt.Time,
		LockState:          paper.LockState(r.LockState),
		CredentialHash:     r.CredentialHash,
		CredentialIssuedAt: r.CredentialIssuedAt.Time,
		UnlockExpiresAt:    r.UnlockExpiresAt.Time,
		UnlockedBy:         r.UnlockedBy.String,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func unrowPapers(rows []paperRow) []paper.Paper {
	papers := make([]paper.Paper, 0, len(rows))
	for _, r := range rows {
		papers = append(papers, r.unrow())
	}
	return papers
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t.UTC(), Valid: !t.IsZero()}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// trapNoRowsErr maps psql "no rows" err to paper.ErrNotFound
func (repo paperRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return paper.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo paperRepository) CreatePaper(ctx context.Context, p paper.Paper, exec ...core.DBExecutor) (paper.Paper, error) {
	p.ID = uuid.New().String()
	_, err := repo.getExec(exec).ExecContext(ctx,
		`INSERT INTO paper (id, course_code, course_title, title, setter_id, status, printing_due_at,
		                    lock_state, credential_hash, credential_issued_at, unlock_expires_at, unlocked_by,
		                    created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		p.ID, p.CourseCode, p.CourseTitle, p.Title, p.SetterID, string(p.Status), nullTime(p.PrintingDueAt),
		string(p.LockState), p.CredentialHash, nullTime(p.CredentialIssuedAt), nullTime(p.UnlockExpiresAt),
		nullString(p.UnlockedBy), p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	)
	if err != nil {
		return paper.Paper{}, errors.Wrap(err, "inserting paper")
	}
	return p, nil
}

func (repo paperRepository) GetPaperByID(ctx context.Context, id string, _ ...core.DBExecutor) (paper.Paper, error) {
	if _, err := uuid.Parse(id); err != nil {
		return paper.Paper{}, paper.ErrNotFound
	}

	var row paperRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM paper WHERE id = $1`, id); err != nil {
		return paper.Paper{}, repo.trapNoRowsErr(err, "finding paper by ID")
	}
	return row.unrow(), nil
}

func (repo paperRepository) FilterPapers(ctx context.Context, filter paper.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]paper.Paper, error) {
	query := `SELECT * FROM paper`
	var clauses []string
	var args []interface{}

	arg := func(val interface{}) string {
		args = append(args, val)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		clauses = append(clauses, fmt.Sprintf(
			"(course_code ILIKE %s OR course_title ILIKE %s OR title ILIKE %s)",
			arg(val), arg(val), arg(val)))
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = "+arg(string(filter.Status)))
	}
	if filter.LockState != "" {
		clauses = append(clauses, "lock_state = "+arg(string(filter.LockState)))
	}
	if filter.SetterID != "" {
		clauses = append(clauses, "setter_id = "+arg(filter.SetterID))
	}
	if filter.CourseCode != "" {
		clauses = append(clauses, "course_code = "+arg(filter.CourseCode))
	}
	if !filter.DueFrom.IsZero() {
		clauses = append(clauses, "printing_due_at >= "+arg(filter.DueFrom.UTC()))
	}
	if !filter.DueTo.IsZero() {
		clauses = append(clauses, "printing_due_at <= "+arg(filter.DueTo.UTC()))
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		query += " ORDER BY " + strings.Join(orderList, ", ")
	}

	var rows []paperRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying papers")
	}
	return unrowPapers(rows), nil
}

func (repo paperRepository) UpdatePaperStatus(ctx context.Context, p paper.Paper, expected paper.Status, exec ...core.DBExecutor) (paper.Paper, error) {
	res, err := repo.getExec(exec).ExecContext(ctx,
		`UPDATE paper
		 SET status = $1, printing_due_at = $2, lock_state = $3, credential_hash = $4,
		     credential_issued_at = $5, unlock_expires_at = $6, unlocked_by = $7, updated_at = $8
		 WHERE id = $9 AND status = $10`,
		string(p.Status), nullTime(p.PrintingDueAt), string(p.LockState), p.CredentialHash,
		nullTime(p.CredentialIssuedAt), nullTime(p.UnlockExpiresAt), nullString(p.UnlockedBy), p.UpdatedAt.UTC(),
		p.ID, string(expected),
	)
	if err != nil {
		return paper.Paper{}, errors.Wrap(err, "updating paper status")
	}
	if n, err := res.RowsAffected(); err != nil {
		return paper.Paper{}, errors.Wrap(err, "updating paper status")
	} else if n == 0 {
		return paper.Paper{}, paper.ErrAlreadyHandled
	}
	return p, nil
}

func (repo paperRepository) UpdatePaperLock(ctx context.Context, p paper.Paper, expected paper.LockState, exec ...core.DBExecutor) (paper.Paper, error) {
	res, err := repo.getExec(exec).ExecContext(ctx,
		`UPDATE paper
		 SET lock_state = $1, credential_hash = $2, credential_issued_at = $3,
		     unlock_expires_at = $4, unlocked_by = $5, updated_at = $6
		 WHERE id = $7 AND lock_state = $8 AND status = $9`,
		string(p.LockState), p.CredentialHash, nullTime(p.CredentialIssuedAt),
		nullTime(p.UnlockExpiresAt), nullString(p.UnlockedBy), p.UpdatedAt.UTC(),
		p.ID, string(expected), string(paper.StatusApprovedForPrint),
	)
	if err != nil {
		return paper.Paper{}, errors.Wrap(err, "updating paper lock state")
	}
	if n, err := res.RowsAffected(); err != nil {
		return paper.Paper{}, errors.Wrap(err, "updating paper lock state")
	} else if n == 0 {
		return paper.Paper{}, paper.ErrAlreadyHandled
	}
	return p, nil
}

func (repo paperRepository) QueryDuePapers(ctx context.Context, now time.Time, _ ...core.DBExecutor) ([]paper.Paper, error) {
	var rows []paperRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM paper
		 WHERE status = $1 AND lock_state = $2 AND printing_due_at <= $3
		 ORDER BY printing_due_at ASC`,
		string(paper.StatusApprovedForPrint), string(paper.LockNoCredential), now.UTC(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying due papers")
	}
	return unrowPapers(rows), nil
}

func (repo paperRepository) QueryExpiredUnlocks(ctx context.Context, now time.Time, _ ...core.DBExecutor) ([]paper.Paper, error) {
	var rows []paperRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM paper
		 WHERE status = $1 AND lock_state = $2 AND unlock_expires_at <= $3
		 ORDER BY unlock_expires_at ASC`,
		string(paper.StatusApprovedForPrint), string(paper.LockUnlockedTemporary), now.UTC(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying expired unlocks")
	}
	return unrowPapers(rows), nil
}
