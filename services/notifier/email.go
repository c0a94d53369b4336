package notifsvc

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/pkg/errors"

	"github.com/EMS-UCU/ucu-uems-sub002/core"
	"github.com/EMS-UCU/ucu-uems-sub002/core/paper"
	"github.com/EMS-UCU/ucu-uems-sub002/core/user"
)

// EmailNotifier delivers freshly issued print credentials to all active
// oversight admins. The plaintext credential exists only for the lifetime
// of the notice; it is never persisted.
type EmailNotifier struct {
	userSvc user.Service
	mailSvc core.EmailService
	logger  core.Logger
}

var _ paper.Notifier = (*EmailNotifier)(nil)

func NewEmailNotifier(userSvc user.Service, mailSvc core.EmailService, logger core.Logger) *EmailNotifier {
	return &EmailNotifier{
		userSvc: userSvc,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

func (n *EmailNotifier) CredentialIssued(ctx context.Context, notice paper.CredentialNotice) error {
	isActive := true
	admins, err := n.userSvc.Filter(ctx, user.QueryFilter{
		Roles:    []string{user.RoleAdminOversight},
		IsActive: &isActive,
	})
	if err != nil {
		return errors.Wrap(err, "finding oversight admins")
	}
	if len(admins) == 0 {
		return errors.Errorf("no active oversight admin to notify for paper %s", notice.PaperID)
	}

	to := make([]mail.Address, 0, len(admins))
	for _, admin := range admins {
		to = append(to, mail.Address{Name: admin.Name, Address: admin.Email})
	}

	msg := &core.EmailMessage{
		To:      to,
		Subject: fmt.Sprintf("Print credential issued - %s %s", notice.CourseCode, notice.PaperTitle),
		BodyStr: n.body(notice),
	}
	n.mailSvc.SendMessages(msg)
	return nil
}

func (n *EmailNotifier) body(notice paper.CredentialNotice) string {
	b := new(strings.Builder)
	_, _ = fmt.Fprintf(b, "A print credential has been issued for the following paper:\r\n\r\n")
	_, _ = fmt.Fprintf(b, "Course: %s - %s\r\n", notice.CourseCode, notice.CourseTitle)
	_, _ = fmt.Fprintf(b, "Paper: %s\r\n", notice.PaperTitle)
	_, _ = fmt.Fprintf(b, "Printing due: %s\r\n", notice.DueAt.Format("Mon, 02 Jan 2006 15:04 MST"))
	_, _ = fmt.Fprintf(b, "Issued at: %s\r\n\r\n", notice.IssuedAt.Format("Mon, 02 Jan 2006 15:04 MST"))
	_, _ = fmt.Fprintf(b, "Credential: %s\r\n\r\n", notice.Plaintext)
	_, _ = fmt.Fprint(b, "Use this credential to unlock the paper for printing. ")
	_, _ = fmt.Fprint(b, "It is shown only once and cannot be recovered; a lost credential requires manual intervention.\r\n")
	return b.String()
}
