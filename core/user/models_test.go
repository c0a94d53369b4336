package user

import "testing"

func TestUser_passwords(t *testing.T) {
	usr := User{Username: "awe", Email: "awe@test.ug"}
	if err := usr.SetPassword("s3cr3t-pwd"); err != nil {
		t.Fatalf("SetPassword() error = %v", err)
	}
	if len(usr.PasswordHash) == 0 {
		t.Fatal("SetPassword() left an empty hash")
	}
	if err := usr.CheckPassword("s3cr3t-pwd"); err != nil {
		t.Errorf("CheckPassword() error = %v", err)
	}
	if err := usr.CheckPassword("wrong"); err == nil {
		t.Error("CheckPassword(wrong) expected an error")
	}
}

func TestUser_roleHelpers(t *testing.T) {
	tests := []struct {
		name        string
		roles       []string
		isAdmin     bool
		isStaff     bool
		isOversight bool
		isChief     bool
	}{
		{name: "no roles"},
		{name: "setter", roles: []string{RoleSetter}, isStaff: true},
		{name: "chief examiner", roles: []string{RoleChiefExaminer}, isStaff: true, isChief: true},
		{name: "oversight admin", roles: []string{RoleAdminOversight}, isAdmin: true, isOversight: true},
		{name: "plain admin", roles: []string{RoleAdmin}, isAdmin: true},
		{name: "mixed", roles: []string{RoleVetter, RoleAdminOversight}, isAdmin: true, isStaff: true, isOversight: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr := User{Roles: tt.roles}
			if got := usr.IsAdmin(); got != tt.isAdmin {
				t.Errorf("IsAdmin() = %v, want %v", got, tt.isAdmin)
			}
			if got := usr.IsStaff(); got != tt.isStaff {
				t.Errorf("IsStaff() = %v, want %v", got, tt.isStaff)
			}
			if got := usr.IsOversightAdmin(); got != tt.isOversight {
				t.Errorf("IsOversightAdmin() = %v, want %v", got, tt.isOversight)
			}
			if got := usr.IsChiefExaminer(); got != tt.isChief {
				t.Errorf("IsChiefExaminer() = %v, want %v", got, tt.isChief)
			}
		})
	}
}

func TestMaxRolePriority(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		want  int
	}{
		{name: "none", want: 0},
		{name: "unknown role", roles: []string{"lol"}, want: 0},
		{name: "setter", roles: []string{RoleSetter}, want: 5},
		{name: "chief beats setter", roles: []string{RoleSetter, RoleChiefExaminer}, want: 20},
		{name: "oversight tops all", roles: AllRoles, want: 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaxRolePriority(tt.roles); got != tt.want {
				t.Errorf("MaxRolePriority() = %d, want %d", got, tt.want)
			}
		})
	}
}
