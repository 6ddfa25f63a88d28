package gym

import (
	"regexp"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/gymhub/contentdesk/core"
)

var (
	pinTag   = "pin"
	pinText  = "PIN must be 4 to 8 digits"
	pinRegex = regexp.MustCompile(`^[0-9]{4,8}$`)
)

// InitValidators registers the gym validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(pinTag, pinValidation)
	core.RegisterCustomTranslation(validate, translator, pinTag, pinText)
}

func pinValidation(fl validator.FieldLevel) bool {
	return pinRegex.MatchString(fl.Field().String())
}

// ValidPIN reports whether pin satisfies the PIN policy.
func ValidPIN(pin string) bool {
	return pinRegex.MatchString(pin)
}
