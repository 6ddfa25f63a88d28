package format

import (
	"regexp"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/gymhub/contentdesk/core"
)

var (
	formatKeyTag   = "formatkey"
	formatKeyText  = "only lowercase letters, digits and underscores are allowed"
	formatKeyRegex = regexp.MustCompile(`^[a-z0-9_]+$`)
)

// InitValidators registers the format validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(formatKeyTag, formatKeyValidation)
	core.RegisterCustomTranslation(validate, translator, formatKeyTag, formatKeyText)
}

func formatKeyValidation(fl validator.FieldLevel) bool {
	return formatKeyRegex.MatchString(fl.Field().String())
}
