package assignment

import (
	"reflect"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/gymhub/contentdesk/core"
)

var (
	// custom validation tags & texts
	notEmptyTag  = "notempty"
	notEmptyText = "select at least one item"
)

// InitValidators registers the assignment validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(notEmptyTag, notEmptyValidation)
	core.RegisterCustomTranslation(validate, translator, notEmptyTag, notEmptyText)
}

// notEmptyValidation requires a slice with at least one element.
func notEmptyValidation(fl validator.FieldLevel) bool {
	fld := fl.Field()
	switch fld.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return fld.Len() > 0
	}
	return false
}

func splitList(s string) []string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return core.CleanStrings(strings.Split(s, ","), true /* lower */)
}

func uniqueStrings(ss []string) []string {
	seen := make(map[string]struct{}, len(ss))
	out := ss[:0]
	for _, s := range ss {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
