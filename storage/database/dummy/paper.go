package dummydb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/EMS-UCU/ucu-uems-sub002/core"
	"github.com/EMS-UCU/ucu-uems-sub002/core/paper"
)

type paperRepository struct {
	db *paperTable
}

var _ paper.Repository = (*paperRepository)(nil) // interface compliance check

func NewPaperRepository(db *DB) *paperRepository {
	return &paperRepository{db: db.paper}
}

func (repo *paperRepository) query() []paper.Paper {
	papers := make([]paper.Paper, 0, len(repo.db.table))
	for _, p := range repo.db.table {
		papers = append(papers, *p)
	}
	return papers
}

func (repo *paperRepository) CreatePaper(_ context.Context, p paper.Paper, _ ...core.DBExecutor) (paper.Paper, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	p.ID = uuid.New().String()
	repo.db.table[p.ID] = &p
	return p, nil
}

func (repo *paperRepository) GetPaperByID(_ context.Context, id string, _ ...core.DBExecutor) (paper.Paper, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.table[id]; ok {
		return *p, nil
	}
	return paper.Paper{}, paper.ErrNotFound
}

func (repo *paperRepository) FilterPapers(_ context.Context, filter paper.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]paper.Paper, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	papers := repo.query()

	if filter.Search != "" {
		var filtered []paper.Paper
		kw := strings.ToLower(filter.Search)
		for _, p := range papers {
			if strings.Contains(strings.ToLower(p.CourseCode), kw) ||
				strings.Contains(strings.ToLower(p.CourseTitle), kw) ||
				strings.Contains(strings.ToLower(p.Title), kw) {
				filtered = append(filtered, p)
			}
		}
		papers = filtered
	}
	if filter.Status != "" {
		papers = filterPapers(papers, func(p paper.Paper) bool { return p.Status == filter.Status })
	}
	if filter.LockState != "" {
		papers = filterPapers(papers, func(p paper.Paper) bool { return p.LockState == filter.LockState })
	}
	if filter.SetterID != "" {
		papers = filterPapers(papers, func(p paper.Paper) bool { return p.SetterID == filter.SetterID })
	}
	if filter.CourseCode != "" {
		papers = filterPapers(papers, func(p paper.Paper) bool { return p.CourseCode == filter.CourseCode })
	}
	if !filter.DueFrom.IsZero() {
		from := filter.DueFrom.UTC()
		papers = filterPapers(papers, func(p paper.Paper) bool { return !p.PrintingDueAt.Before(from) })
	}
	if !filter.DueTo.IsZero() {
		to := filter.DueTo.UTC()
		papers = filterPapers(papers, func(p paper.Paper) bool { return !p.PrintingDueAt.After(to) })
	}

	sortPapers(papers, ordering)
	return papers, nil
}

func filterPapers(papers []paper.Paper, keep func(paper.Paper) bool) []paper.Paper {
	var filtered []paper.Paper
	for _, p := range papers {
		if keep(p) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

func sortPapers(papers []paper.Paper, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		return
	}
	ord := ordering[0]
	sort.SliceStable(papers, func(i, j int) bool {
		var less bool
		switch ord.Field {
		case "printing_due_at":
			less = papers[i].PrintingDueAt.Before(papers[j].PrintingDueAt)
		case "unlock_expires_at":
			less = papers[i].UnlockExpiresAt.Before(papers[j].UnlockExpiresAt)
		case "created_at":
			less = papers[i].CreatedAt.Before(papers[j].CreatedAt)
		default:
			less = papers[i].ID < papers[j].ID
		}
		if !ord.Ascending {
			return !less
		}
		return less
	})
}

func (repo *paperRepository) UpdatePaperStatus(_ context.Context, p paper.Paper, expected paper.Status, _ ...core.DBExecutor) (paper.Paper, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[p.ID]
	if !ok {
		return paper.Paper{}, paper.ErrNotFound
	}
	if orig.Status != expected {
		return paper.Paper{}, paper.ErrAlreadyHandled
	}

	repo.db.table[p.ID] = &p
	return p, nil
}

func (repo *paperRepository) UpdatePaperLock(_ context.Context, p paper.Paper, expected paper.LockState, _ ...core.DBExecutor) (paper.Paper, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[p.ID]
	if !ok {
		return paper.Paper{}, paper.ErrNotFound
	}
	if orig.Status != paper.StatusApprovedForPrint || orig.LockState != expected {
		return paper.Paper{}, paper.ErrAlreadyHandled
	}

	repo.db.table[p.ID] = &p
	return p, nil
}

func (repo *paperRepository) QueryDuePapers(_ context.Context, now time.Time, _ ...core.DBExecutor) ([]paper.Paper, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	now = now.UTC()
	var due []paper.Paper
	for _, p := range repo.query() {
		if p.Status == paper.StatusApprovedForPrint &&
			p.LockState == paper.LockNoCredential &&
			!p.PrintingDueAt.After(now) { // inclusive: due-at == now is eligible
			due = append(due, p)
		}
	}
	sortPapers(due, []core.DBOrdering{{Field: "printing_due_at", Ascending: true}})
	return due, nil
}

func (repo *paperRepository) QueryExpiredUnlocks(_ context.Context, now time.Time, _ ...core.DBExecutor) ([]paper.Paper, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	now = now.UTC()
	var expired []paper.Paper
	for _, p := range repo.query() {
		if p.LockState == paper.LockUnlockedTemporary && !p.UnlockExpiresAt.After(now) {
			expired = append(expired, p)
		}
	}
	sortPapers(expired, []core.DBOrdering{{Field: "unlock_expires_at", Ascending: true}})
	return expired, nil
}
