package paper

import (
	"context"
	"time"
)

// CredentialNotice carries everything the notifier collaborator needs to
// deliver a freshly issued credential to the oversight recipients. The
// plaintext exists only in this value; it is never persisted.
type CredentialNotice struct {
	PaperID     string
	CourseCode  string
	CourseTitle string
	PaperTitle  string
	Plaintext   string
	DueAt       time.Time
	IssuedAt    time.Time
}

// Notifier delivers a credential notice to authorized recipients. It is
// invoked exactly once per successful generation, after the state commit;
// delivery is best-effort and never retried by the core.
type Notifier interface {
	CredentialIssued(ctx context.Context, notice CredentialNotice) error
}
