package server

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"hot-seat/internal/apperr"
)

const maxNicknameLength = 20

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("nickname", func(fl validator.FieldLevel) bool {
		_, err := validateNickname(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("freetext", func(fl validator.FieldLevel) bool {
		return isPrintable(fl.Field().String())
	})
	return v
}

type fieldMessages map[string]map[string]string

// decode reads a JSON body into req and validates it. Failures are
// validation errors carrying the first matching message.
func (s *Server) decode(body io.Reader, req any, messages fieldMessages) error {
	if err := readJSON(body, req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := s.validate.Struct(req); err != nil {
		return apperr.Validation(resolveValidationError(err, messages))
	}
	return nil
}

func resolveValidationError(err error, messages fieldMessages) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, verr := range verrs {
			if fieldMsgs, ok := messages[verr.Field()]; ok {
				if msg, ok := fieldMsgs[verr.Tag()]; ok {
					return msg
				}
			}
		}
		if len(verrs) > 0 {
			return verrs[0].Field() + " is invalid"
		}
	}
	return "invalid request"
}

func validateNickname(name string) (string, error) {
	trimmed := normalizeText(name)
	if trimmed == "" {
		return "", errors.New("nickname is required")
	}
	if len(trimmed) > maxNicknameLength {
		return "", errors.New("nickname is too long")
	}
	if !isSafeText(trimmed) {
		return "", errors.New("nickname contains unsupported characters")
	}
	return trimmed, nil
}

func normalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func isSafeText(text string) bool {
	for _, r := range text {
		if r > 127 {
			return false
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		switch r {
		case ' ', '-', '_', '\'', '.', '!', '?':
			continue
		default:
			return false
		}
	}
	return true
}

func isPrintable(text string) bool {
	for _, r := range text {
		if r == '\n' || r == '\t' {
			continue
		}
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
