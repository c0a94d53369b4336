package paper

import (
	"testing"

	"github.com/EMS-UCU/ucu-uems-sub002/core/user"
)

func Test_checkTransition(t *testing.T) {
	tests := []struct {
		name    string
		current Status
		target  Status
		roles   []string
		wantErr error
	}{
		{name: "draft submitted by setter", current: StatusDraft, target: StatusSubmitted, roles: []string{user.RoleSetter}},
		{name: "draft submitted by vetter", current: StatusDraft, target: StatusSubmitted, roles: []string{user.RoleVetter}, wantErr: ErrUnauthorized},
		{name: "draft submitted by nobody", current: StatusDraft, target: StatusSubmitted, wantErr: ErrUnauthorized},
		{name: "draft straight to vetted", current: StatusDraft, target: StatusVetted, roles: []string{user.RoleSetter}, wantErr: ErrInvalidTransition},
		{name: "submitted integrated by team lead", current: StatusSubmitted, target: StatusIntegrated, roles: []string{user.RoleTeamLead}},
		{name: "integrated sent for review", current: StatusIntegrated, target: StatusSentForReview, roles: []string{user.RoleTeamLead}},
		{name: "review appoints vetting", current: StatusSentForReview, target: StatusVettingAppointed, roles: []string{user.RoleChiefExaminer}},
		{name: "vetting started by vetter", current: StatusVettingAppointed, target: StatusVettingInProgress, roles: []string{user.RoleVetter}},
		{name: "vetting finished by vetter", current: StatusVettingInProgress, target: StatusVetted, roles: []string{user.RoleVetter}},
		{name: "vetted to revision", current: StatusVetted, target: StatusRevisionInProgress, roles: []string{user.RoleTeamLead}},
		{name: "vetted approved by chief", current: StatusVetted, target: StatusApprovedForPrint, roles: []string{user.RoleChiefExaminer}},
		{name: "vetted approved by team lead", current: StatusVetted, target: StatusApprovedForPrint, roles: []string{user.RoleTeamLead}, wantErr: ErrUnauthorized},
		{name: "vetted rejected by chief", current: StatusVetted, target: StatusRejected, roles: []string{user.RoleChiefExaminer}},
		{name: "revision resubmitted", current: StatusRevisionInProgress, target: StatusResubmitted, roles: []string{user.RoleTeamLead}},
		{name: "resubmitted approved", current: StatusResubmitted, target: StatusApprovedForPrint, roles: []string{user.RoleChiefExaminer}},
		{name: "resubmitted rejected", current: StatusResubmitted, target: StatusRejected, roles: []string{user.RoleChiefExaminer}},
		{name: "rejected reworked", current: StatusRejected, target: StatusRevisionInProgress, roles: []string{user.RoleTeamLead}},
		{name: "approved is terminal", current: StatusApprovedForPrint, target: StatusDraft, roles: []string{user.RoleChiefExaminer}, wantErr: ErrInvalidTransition},
		{name: "no skipping review", current: StatusSubmitted, target: StatusVetted, roles: []string{user.RoleVetter}, wantErr: ErrInvalidTransition},
		{name: "no going backwards", current: StatusVetted, target: StatusDraft, roles: []string{user.RoleSetter}, wantErr: ErrInvalidTransition},
		{name: "multi-role actor uses the matching one", current: StatusVetted, target: StatusApprovedForPrint, roles: []string{user.RoleSetter, user.RoleChiefExaminer}},
		{name: "admin role alone does not advance workflow", current: StatusDraft, target: StatusSubmitted, roles: []string{user.RoleAdminOversight}, wantErr: ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := checkTransition(tt.current, tt.target, tt.roles); err != tt.wantErr {
				t.Errorf("checkTransition() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNextStatuses(t *testing.T) {
	tests := []struct {
		name    string
		current Status
		want    []Status
	}{
		{name: "draft", current: StatusDraft, want: []Status{StatusSubmitted}},
		{name: "vetted fans out", current: StatusVetted, want: []Status{StatusRevisionInProgress, StatusApprovedForPrint, StatusRejected}},
		{name: "rejected can be reworked", current: StatusRejected, want: []Status{StatusRevisionInProgress}},
		{name: "approved is terminal", current: StatusApprovedForPrint, want: []Status{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextStatuses(tt.current)
			if len(got) != len(tt.want) {
				t.Fatalf("NextStatuses() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("NextStatuses()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRoleCanRelock(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		want  bool
	}{
		{name: "chief examiner", roles: []string{user.RoleChiefExaminer}, want: true},
		{name: "oversight admin", roles: []string{user.RoleAdminOversight}, want: true},
		{name: "setter", roles: []string{user.RoleSetter}, want: false},
		{name: "plain admin", roles: []string{user.RoleAdmin}, want: false},
		{name: "mixed", roles: []string{user.RoleSetter, user.RoleChiefExaminer}, want: true},
		{name: "none", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RoleCanRelock(tt.roles...); got != tt.want {
				t.Errorf("RoleCanRelock() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusIsValid(t *testing.T) {
	for _, st := range allStatuses {
		if !st.IsValid() {
			t.Errorf("Status(%q).IsValid() = false, want true", st)
		}
	}
	if Status("printed").IsValid() {
		t.Error(`Status("printed").IsValid() = true, want false`)
	}
}
