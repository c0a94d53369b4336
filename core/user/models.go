package user

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/EMS-UCU/ucu-uems-sub002/core"
)

// Roles
const (
	// Admin
	RoleAdmin          = "admin:"
	RoleAdminOversight = "admin:oversight" // receives vault credentials

	// Exam office staff
	RoleStaff         = "staff:"
	RoleChiefExaminer = "staff:chief_examiner"
	RoleTeamLead      = "staff:team_lead"
	RoleSetter        = "staff:setter"
	RoleVetter        = "staff:vetter"
)

var (
	AdminRoles = []string{RoleAdmin, RoleAdminOversight}
	StaffRoles = []string{RoleStaff, RoleChiefExaminer, RoleTeamLead, RoleSetter, RoleVetter}
	AllRoles   = getAllRoles()

	rolePriorities = map[string]int{
		// Admins: 30 - 21
		RoleAdminOversight: 30,
		RoleAdmin:          21,

		// Staff: 20 - 1
		RoleChiefExaminer: 20,
		RoleTeamLead:      15,
		RoleVetter:        10,
		RoleSetter:        5,
		RoleStaff:         1,
	}

	Roles = []Role{
		{Name: "Setter", Value: RoleSetter},
		{Name: "Vetter", Value: RoleVetter},
		{Name: "Team Lead", Value: RoleTeamLead},
		{Name: "Chief Examiner", Value: RoleChiefExaminer},
		{Name: "Oversight Admin", Value: RoleAdminOversight},
	}
)

func getAllRoles() []string {
	all := make([]string, 0, len(AdminRoles)+len(StaffRoles))
	all = append(all, AdminRoles...)
	all = append(all, StaffRoles...)
	return all
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	IsActive     bool      `json:"is_active"`
	Roles        []string  `json:"roles"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) RoleStartsWith(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.RoleStartsWith(RoleAdmin)
}

func (u *User) IsStaff() bool {
	return u.RoleStartsWith(RoleStaff)
}

func (u *User) IsOversightAdmin() bool {
	return u.HasRole(RoleAdminOversight)
}

func (u *User) IsChiefExaminer() bool {
	return u.HasRole(RoleChiefExaminer)
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string   `json:"name" validate:"required"`
	Username        string   `json:"username" validate:"omitempty,min=6,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Password        string   `json:"password" validate:"required,min=8"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
}

func (nu *NewUser) Validate(svc Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Username, nu.Email)
}

type QueryFilter struct {
	Search   string   `query:"search"`
	Roles    []string `query:"role"`
	IsActive *bool    `query:"is_active"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
