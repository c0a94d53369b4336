package paper

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/EMS-UCU/ucu-uems-sub002/core"
)

var (
	statusTag  = "paper_status"
	statusText = "invalid paper status"

	validate *validator.Validate
)

// InitValidators registers this package's custom validators on the shared instance.
func InitValidators(v *validator.Validate, translator ut.Translator) {
	validate = v

	_ = v.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(v, translator, statusTag, statusText)
}

// statusValidation checks that the value is a member of the closed Status set.
func statusValidation(fl validator.FieldLevel) bool {
	return Status(fl.Field().String()).IsValid()
}
