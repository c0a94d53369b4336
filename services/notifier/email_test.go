package notifsvc

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/EMS-UCU/ucu-uems-sub002/core/paper"
	"github.com/EMS-UCU/ucu-uems-sub002/core/user"
	dummymail "github.com/EMS-UCU/ucu-uems-sub002/services/email/dummy"
	dummydb "github.com/EMS-UCU/ucu-uems-sub002/storage/database/dummy"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func TestEmailNotifier_CredentialIssued(t *testing.T) {
	db := dummydb.NewDB()
	usrSvc := user.NewService(dummydb.NewUserRepository(db))
	mailSvc := dummymail.NewService()
	notifier := NewEmailNotifier(usrSvc, mailSvc, nopLogger{})

	ctx := context.Background()
	notice := paper.CredentialNotice{
		PaperID:     "paper-1",
		CourseCode:  "csc101",
		CourseTitle: "Introduction to Computing",
		PaperTitle:  "End of Semester Exam",
		Plaintext:   "s3cr3t-credential",
		DueAt:       time.Now().UTC(),
		IssuedAt:    time.Now().UTC(),
	}

	// no oversight admin registered yet
	if err := notifier.CredentialIssued(ctx, notice); err == nil {
		t.Error("CredentialIssued() expected an error without oversight admins")
	}

	create := func(uname string, roles []string) {
		_, err := usrSvc.Create(ctx, user.NewUser{
			Name: uname, Username: uname, Email: uname + "@test.ug", Password: "s3cr3t-pwd", Roles: roles,
		})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	create("chief", []string{user.RoleChiefExaminer})
	create("boss", []string{user.RoleAdminOversight})
	create("boss2", []string{user.RoleAdminOversight})

	if err := notifier.CredentialIssued(ctx, notice); err != nil {
		t.Fatalf("CredentialIssued() error = %v", err)
	}

	sent := mailSvc.SentMessages()
	if len(sent) != 1 {
		t.Fatalf("sent messages = %d, want 1", len(sent))
	}
	msg := sent[0]

	// only the oversight admins receive the credential
	if len(msg.To) != 2 {
		t.Fatalf("recipients = %d, want 2", len(msg.To))
	}
	for _, to := range msg.To {
		if !strings.HasPrefix(to.Address, "boss") {
			t.Errorf("unexpected recipient %q", to.Address)
		}
	}

	if !strings.Contains(msg.BodyStr, notice.Plaintext) {
		t.Error("message body does not carry the plaintext credential")
	}
	if !strings.Contains(msg.Subject, "csc101") {
		t.Errorf("subject = %q, want the course code in it", msg.Subject)
	}
}
