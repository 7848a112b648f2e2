package validation

import (
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// * New создает валидатор с правилом password и именами полей из json тегов
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}

		return name
	})

	// ошибка возможна только при пустом теге
	_ = v.RegisterValidation("password", passwordRule)

	return v
}

func passwordRule(fl validator.FieldLevel) bool {
	return StrongPassword(fl.Field().String())
}

// * StrongPassword требует хотя бы одну строчную, одну заглавную букву и цифру
func StrongPassword(pass string) bool {
	var lower, upper, digit bool

	for _, r := range pass {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}

	return lower && upper && digit
}
