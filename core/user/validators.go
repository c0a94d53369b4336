package user

import (
	"sort"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/EMS-UCU/ucu-uems-sub002/core"
)

var (
	allRolesTag  = "allroles"
	allRolesText = "invalid roles"

	validate *validator.Validate
)

// InitValidators registers this package's custom validators on the shared instance.
func InitValidators(v *validator.Validate, translator ut.Translator) {
	validate = v

	_ = v.RegisterValidation(allRolesTag, allRolesValidation)
	core.RegisterCustomTranslation(v, translator, allRolesTag, allRolesText)
}

// allRolesValidation checks that provided user roles are all in AllRoles
func allRolesValidation(fl validator.FieldLevel) bool {
	if roles, ok := fl.Field().Interface().([]string); ok {
		sort.Strings(AllRoles)
		for _, role := range roles {
			if idx := sort.SearchStrings(AllRoles, role); idx >= len(AllRoles) || AllRoles[idx] != role {
				return false
			}
		}
		return true
	}
	return false
}
