package paper

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/EMS-UCU/ucu-uems-sub002/core"
	"github.com/EMS-UCU/ucu-uems-sub002/core/audit"
)

var (
	nowFunc = time.Now // mockable

	errDueDateRequired = errors.New("a printing due date strictly in the future is required on approval")
)

type (
	Repository interface {
		CreatePaper(ctx context.Context, p Paper, exec ...core.DBExecutor) (Paper, error)
		GetPaperByID(ctx context.Context, id string, exec ...core.DBExecutor) (Paper, error)
		// FilterPapers applies AND operation on available QueryFilter fields.
		FilterPapers(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Paper, error)

		// UpdatePaperStatus persists a lifecycle transition and the vault
		// fields it touches. The update only lands if the stored status
		// still equals expected; otherwise ErrAlreadyHandled is returned
		// and nothing changes.
		UpdatePaperStatus(ctx context.Context, p Paper, expected Status, exec ...core.DBExecutor) (Paper, error)

		// UpdatePaperLock persists a lock sub-state change under the same
		// conditional-update discipline, keyed on the stored lock state.
		UpdatePaperLock(ctx context.Context, p Paper, expected LockState, exec ...core.DBExecutor) (Paper, error)

		// QueryDuePapers returns approved papers still awaiting credential
		// generation whose printing due time has elapsed (inclusive),
		// ascending by due time.
		QueryDuePapers(ctx context.Context, now time.Time, exec ...core.DBExecutor) ([]Paper, error)

		// QueryExpiredUnlocks returns temporarily unlocked papers whose
		// unlock window has elapsed (inclusive).
		QueryExpiredUnlocks(ctx context.Context, now time.Time, exec ...core.DBExecutor) ([]Paper, error)
	}

	Service interface {
		Create(ctx context.Context, np NewPaper) (Paper, error)
		GetByID(ctx context.Context, id string) (Paper, error)
		Filter(ctx context.Context, filter QueryFilter) ([]Paper, error)
		AuditTrail(ctx context.Context, paperID string) ([]audit.Record, error)

		// Transition advances the paper's lifecycle status on behalf of an
		// actor holding actorRoles. dueAt is only consulted when target is
		// approved_for_printing, where it must be strictly in the future.
		Transition(ctx context.Context, paperID string, actorRoles []string, target Status, dueAt time.Time) (Paper, error)

		// ConsumeCredential trades a valid plaintext credential for a
		// temporary unlock of window duration (the configured default when
		// window <= 0). Failures are audited before being surfaced and
		// always read as ErrInvalidCredential to the caller.
		ConsumeCredential(ctx context.Context, paperID, actorID, plaintext string, window time.Duration) (Paper, error)

		// ManualRelock re-locks a temporarily unlocked paper ahead of its
		// expiry. Relocking an already-locked paper is a no-op.
		ManualRelock(ctx context.Context, paperID, actorID string, actorRoles []string) (Paper, error)

		// SweepDueCredentials generates and issues credentials for all due
		// papers; returns the number of credentials issued.
		SweepDueCredentials(ctx context.Context, now time.Time) (int, error)

		// SweepExpiredUnlocks re-locks all expired temporary unlocks;
		// returns the number of papers re-locked.
		SweepExpiredUnlocks(ctx context.Context, now time.Time) (int, error)
	}

	service struct {
		db        core.DB // nil in unit tests; the dummy repos are then their own unit of atomicity
		repo      Repository
		auditRepo audit.Repository
		notifier  Notifier
		logger    core.Logger
		conf      *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository, auditRepo audit.Repository, notifier Notifier, logger core.Logger, conf *core.Config) Service {
	return &service{
		db:        db,
		repo:      repo,
		auditRepo: auditRepo,
		notifier:  notifier,
		logger:    logger,
		conf:      conf,
	}
}

// inTx runs fn inside a DB transaction so that a state update and its audit
// record commit together or not at all.
func (svc *service) inTx(ctx context.Context, fn func(exec ...core.DBExecutor) error) error {
	if svc.db == nil {
		return fn()
	}

	tx, err := svc.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func (svc *service) Create(ctx context.Context, np NewPaper) (Paper, error) {
	now := nowFunc().UTC()
	p := Paper{
		CourseCode:  np.CourseCode,
		CourseTitle: np.CourseTitle,
		Title:       np.Title,
		SetterID:    np.SetterID,
		Status:      StatusDraft,
		LockState:   LockNotApplicable,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreatePaper(ctx, p)
}

func (svc *service) GetByID(ctx context.Context, id string) (Paper, error) {
	return svc.repo.GetPaperByID(ctx, id)
}

func (svc *service) Filter(ctx context.Context, filter QueryFilter) ([]Paper, error) {
	filter.Clean()
	return svc.repo.FilterPapers(ctx, filter, []core.DBOrdering{{Field: "created_at", Ascending: false}})
}

func (svc *service) AuditTrail(ctx context.Context, paperID string) ([]audit.Record, error) {
	if _, err := svc.repo.GetPaperByID(ctx, paperID); err != nil {
		return nil, err
	}
	return svc.auditRepo.QueryRecordsByPaper(ctx, paperID)
}

func (svc *service) Transition(ctx context.Context, paperID string, actorRoles []string, target Status, dueAt time.Time) (Paper, error) {
	p, err := svc.repo.GetPaperByID(ctx, paperID)
	if err != nil {
		return Paper{}, err
	}

	if err = checkTransition(p.Status, target, actorRoles); err != nil {
		return Paper{}, err
	}

	now := nowFunc().UTC()
	expected := p.Status
	p.Status = target
	p.UpdatedAt = now

	if target == StatusApprovedForPrint {
		if !dueAt.After(now) {
			return Paper{}, core.NewValidationError(errDueDateRequired,
				core.FieldError{Field: "printing_due_at", Error: errDueDateRequired.Error()})
		}
		// A (re-)approval opens a fresh credential cycle: the vault starts
		// locked with no credential, and any previous hash is cleared here
		// and nowhere else.
		p.PrintingDueAt = dueAt.UTC()
		p.LockState = LockNoCredential
		p.clearCredential()
	}

	return svc.repo.UpdatePaperStatus(ctx, p, expected)
}

func (svc *service) ConsumeCredential(ctx context.Context, paperID, actorID, plaintext string, window time.Duration) (Paper, error) {
	p, err := svc.repo.GetPaperByID(ctx, paperID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			// do not reveal whether the paper exists
			return Paper{}, ErrInvalidCredential
		}
		return Paper{}, err
	}

	now := nowFunc().UTC()

	// fail audits the attempt, then surfaces a deliberately generic error:
	// the caller learns nothing about the paper's lock state.
	fail := func(detail string) (Paper, error) {
		rec := audit.Record{
			PaperID:   p.ID,
			Kind:      audit.EventUnlocked,
			Actor:     actorID,
			Success:   false,
			Detail:    detail,
			CreatedAt: now,
		}
		if _, aerr := svc.auditRepo.AppendRecord(ctx, rec); aerr != nil {
			svc.logger.Error(fmt.Sprintf("appending failed-unlock audit record for paper %s: %v", p.ID, aerr), aerr)
		}
		return Paper{}, ErrInvalidCredential
	}

	if p.LockState != LockWithCredential {
		return fail("paper not awaiting unlock")
	}
	if !VerifyCredential(plaintext, p.CredentialHash) {
		return fail("credential mismatch")
	}

	if window <= 0 {
		window = svc.conf.Vault.UnlockWindow
	}

	p.LockState = LockUnlockedTemporary
	p.UnlockExpiresAt = now.Add(window)
	p.UnlockedBy = actorID
	p.UpdatedAt = now

	var updated Paper
	err = svc.inTx(ctx, func(exec ...core.DBExecutor) error {
		var txErr error
		if updated, txErr = svc.repo.UpdatePaperLock(ctx, p, LockWithCredential, exec...); txErr != nil {
			return txErr
		}
		rec := audit.Record{
			PaperID:   p.ID,
			Kind:      audit.EventUnlocked,
			Actor:     actorID,
			Success:   true,
			CreatedAt: now,
		}
		_, txErr = svc.auditRepo.AppendRecord(ctx, rec, exec...)
		return txErr
	})
	if err != nil {
		if errors.Cause(err) == ErrAlreadyHandled {
			return fail("lost unlock race")
		}
		return Paper{}, err
	}
	return updated, nil
}

func (svc *service) ManualRelock(ctx context.Context, paperID, actorID string, actorRoles []string) (Paper, error) {
	if !RoleCanRelock(actorRoles...) {
		return Paper{}, ErrUnauthorized
	}

	p, err := svc.repo.GetPaperByID(ctx, paperID)
	if err != nil {
		return Paper{}, err
	}

	switch p.LockState {
	case LockUnlockedTemporary:
		// proceed
	case LockNoCredential, LockWithCredential:
		// already locked: idempotent no-op, no audit record
		return p, nil
	default:
		return Paper{}, ErrInvalidTransition
	}

	updated, err := svc.relock(ctx, p, actorID, nowFunc().UTC())
	if err != nil {
		if errors.Cause(err) == ErrAlreadyHandled {
			// another actor re-locked first; same outcome
			return svc.repo.GetPaperByID(ctx, paperID)
		}
		return Paper{}, err
	}
	return updated, nil
}

// relock reverts a temporary unlock, attributing the audit record to actor.
// The conditional update keyed on unlocked_temporary makes it safe under
// concurrent relock attempts: exactly one lands.
func (svc *service) relock(ctx context.Context, p Paper, actor string, now time.Time) (Paper, error) {
	p.LockState = p.relockTarget()
	p.UnlockExpiresAt = time.Time{}
	p.UnlockedBy = ""
	p.UpdatedAt = now

	var updated Paper
	err := svc.inTx(ctx, func(exec ...core.DBExecutor) error {
		var txErr error
		if updated, txErr = svc.repo.UpdatePaperLock(ctx, p, LockUnlockedTemporary, exec...); txErr != nil {
			return txErr
		}
		rec := audit.Record{
			PaperID:   p.ID,
			Kind:      audit.EventRelocked,
			Actor:     actor,
			Success:   true,
			CreatedAt: now,
		}
		_, txErr = svc.auditRepo.AppendRecord(ctx, rec, exec...)
		return txErr
	})
	return updated, err
}

func (svc *service) SweepDueCredentials(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()
	due, err := svc.repo.QueryDuePapers(ctx, now)
	if err != nil {
		return 0, errors.Wrap(err, "querying due papers")
	}

	var issued int
	for _, p := range due {
		plaintext, err := GenerateCredential(svc.conf.Vault.CredentialLength)
		if err != nil {
			// entropy exhaustion stops this cycle; the papers stay due and
			// the next sweep picks them up
			return issued, err
		}
		hash, err := HashCredential(plaintext)
		if err != nil {
			return issued, err
		}

		claimed := p
		claimed.LockState = LockWithCredential
		claimed.CredentialHash = hash
		claimed.CredentialIssuedAt = now
		claimed.UpdatedAt = now

		err = svc.inTx(ctx, func(exec ...core.DBExecutor) error {
			var txErr error
			if claimed, txErr = svc.repo.UpdatePaperLock(ctx, claimed, LockNoCredential, exec...); txErr != nil {
				return txErr
			}
			rec := audit.Record{
				PaperID:   p.ID,
				Kind:      audit.EventCredentialGenerated,
				Actor:     audit.SystemActor,
				Success:   true,
				CreatedAt: now,
			}
			_, txErr = svc.auditRepo.AppendRecord(ctx, rec, exec...)
			return txErr
		})
		if err != nil {
			if errors.Cause(err) == ErrAlreadyHandled {
				// a concurrent sweep claimed this paper; its worker owns
				// the notification
				svc.logger.Debug(fmt.Sprintf("paper %s already claimed by a concurrent sweep", p.ID))
				continue
			}
			svc.logger.Error(fmt.Sprintf("issuing credential for paper %s: %v", p.ID, err), err)
			continue
		}
		issued++

		// Commit first, notify second: a failing notifier never withholds
		// the state change, and the credential is never regenerated.
		svc.notify(ctx, CredentialNotice{
			PaperID:     p.ID,
			CourseCode:  p.CourseCode,
			CourseTitle: p.CourseTitle,
			PaperTitle:  p.Title,
			Plaintext:   plaintext,
			DueAt:       p.PrintingDueAt,
			IssuedAt:    now,
		})
	}
	return issued, nil
}

func (svc *service) notify(ctx context.Context, notice CredentialNotice) {
	nctx, cancel := context.WithTimeout(ctx, svc.conf.Vault.NotifyTimeout)
	defer cancel()

	if err := svc.notifier.CredentialIssued(nctx, notice); err != nil {
		// recoverable but not retried: the paper stays locked_with_credential
		// and an operator follows up out of band
		svc.logger.Error(fmt.Sprintf("notifying issued credential for paper %s: %v", notice.PaperID, err), err)
	}
}

func (svc *service) SweepExpiredUnlocks(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()
	expired, err := svc.repo.QueryExpiredUnlocks(ctx, now)
	if err != nil {
		return 0, errors.Wrap(err, "querying expired unlocks")
	}

	var relocked int
	for _, p := range expired {
		if _, err := svc.relock(ctx, p, audit.SystemActor, now); err != nil {
			if errors.Cause(err) == ErrAlreadyHandled {
				continue
			}
			svc.logger.Error(fmt.Sprintf("re-locking paper %s: %v", p.ID, err), err)
			continue
		}
		relocked++
	}
	return relocked, nil
}
