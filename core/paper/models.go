// Package paper owns the exam-paper lifecycle: the editorial workflow
// status, and the lock sub-state that guards approved-for-printing papers
// until a one-time credential is issued and consumed.
package paper

import (
	"time"

	"github.com/EMS-UCU/ucu-uems-sub002/core"
)

// Status is the paper's position in the editorial/approval workflow.
// It is a closed set; transitions are validated against the workflow
// table in workflow.go, never by ad hoc string comparison.
type Status string

const (
	StatusDraft              Status = "draft"
	StatusSubmitted          Status = "submitted"
	StatusIntegrated         Status = "integrated"
	StatusSentForReview      Status = "sent_for_review"
	StatusVettingAppointed   Status = "vetting_appointed"
	StatusVettingInProgress  Status = "vetting_in_progress"
	StatusVetted             Status = "vetted"
	StatusRevisionInProgress Status = "revision_in_progress"
	StatusResubmitted        Status = "resubmitted"
	StatusApprovedForPrint   Status = "approved_for_printing"
	StatusRejected           Status = "rejected"
)

var allStatuses = []Status{
	StatusDraft, StatusSubmitted, StatusIntegrated, StatusSentForReview,
	StatusVettingAppointed, StatusVettingInProgress, StatusVetted,
	StatusRevisionInProgress, StatusResubmitted, StatusApprovedForPrint,
	StatusRejected,
}

func (s Status) IsValid() bool {
	for _, st := range allStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// LockState is the vault sub-state of a paper. It is meaningful only while
// the paper is approved_for_printing; every other status carries
// LockNotApplicable.
type LockState string

const (
	LockNotApplicable     LockState = "not_applicable"
	LockNoCredential      LockState = "locked_no_credential"
	LockWithCredential    LockState = "locked_with_credential"
	LockUnlockedTemporary LockState = "unlocked_temporary"
)

type Paper struct {
	ID          string `json:"id" db:"id"`
	CourseCode  string `json:"course_code" db:"course_code"`
	CourseTitle string `json:"course_title" db:"course_title"`
	Title       string `json:"title" db:"title"`
	SetterID    string `json:"setter_id" db:"setter_id"`

	Status Status `json:"status" db:"status"`

	// Vault fields; zero values until the paper is approved for printing.
	PrintingDueAt      time.Time `json:"printing_due_at,omitempty" db:"printing_due_at"` // UTC
	LockState          LockState `json:"lock_state" db:"lock_state"`
	CredentialHash     []byte    `json:"-" db:"credential_hash"`
	CredentialIssuedAt time.Time `json:"credential_issued_at,omitempty" db:"credential_issued_at"` // UTC
	UnlockExpiresAt    time.Time `json:"unlock_expires_at,omitempty" db:"unlock_expires_at"`       // UTC
	UnlockedBy         string    `json:"unlocked_by,omitempty" db:"unlocked_by"`

	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

func (p *Paper) IsApproved() bool {
	return p.Status == StatusApprovedForPrint
}

func (p *Paper) HasCredential() bool {
	return len(p.CredentialHash) > 0
}

// relockTarget is the lock state a temporary unlock reverts to.
func (p *Paper) relockTarget() LockState {
	if p.HasCredential() {
		return LockWithCredential
	}
	return LockNoCredential
}

// clearCredential resets the vault fields for a fresh approval cycle.
// This is the only place the credential hash may be cleared.
func (p *Paper) clearCredential() {
	p.CredentialHash = nil
	p.CredentialIssuedAt = time.Time{}
	p.UnlockExpiresAt = time.Time{}
	p.UnlockedBy = ""
}

// NewPaper contains information needed to register a new draft Paper.
type NewPaper struct {
	CourseCode  string `json:"course_code" validate:"required"`
	CourseTitle string `json:"course_title" validate:"required"`
	Title       string `json:"title" validate:"required"`
	SetterID    string `json:"setter_id" validate:"required"`
}

func (np *NewPaper) Validate() error {
	np.CourseCode = core.CleanString(np.CourseCode, true /* lower */)
	np.CourseTitle = core.CleanString(np.CourseTitle)
	np.Title = core.CleanString(np.Title)
	return validate.Struct(np)
}

type QueryFilter struct {
	Search     string    `query:"search"` // matches course code/title or paper title
	Status     Status    `query:"status"`
	LockState  LockState `query:"lock_state"`
	DueFrom    time.Time `query:"due_from"`
	DueTo      time.Time `query:"due_to"`
	SetterID   string    `query:"setter_id"`
	CourseCode string    `query:"course_code"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Status == "" && qf.LockState == "" &&
		qf.DueFrom.IsZero() && qf.DueTo.IsZero() && qf.SetterID == "" && qf.CourseCode == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.CourseCode = core.CleanString(qf.CourseCode, true /* lower */)
}
