package server

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"connectrpc.com/connect"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"google.golang.org/genproto/googleapis/rpc/errdetails"

	"github.com/at-ishikawa/studyprep/internal/apperrors"
)

var (
	validatorOnce sync.Once
	validate      *validator.Validate
	translator    ut.Translator
)

func requestValidator() (*validator.Validate, ut.Translator) {
	validatorOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		enLocale := en.New()
		uni := ut.New(enLocale, enLocale)
		translator, _ = uni.GetTranslator("en")
		if err := enTranslations.RegisterDefaultTranslations(validate, translator); err != nil {
			panic(fmt.Sprintf("failed to register default translations: %v", err))
		}

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate, translator
}

// validateRequest checks the struct tags of msg and reports every violation as a BadRequest detail.
func validateRequest(msg any) *connect.Error {
	v, trans := requestValidator()
	err := v.Struct(msg)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}

	var (
		fieldViolations []*errdetails.BadRequest_FieldViolation
		messages        []string
	)
	for _, fe := range validationErrs {
		message := fe.Translate(trans)
		fieldViolations = append(fieldViolations, &errdetails.BadRequest_FieldViolation{
			Field:       fe.Field(),
			Description: message,
		})
		messages = append(messages, message)
	}

	connectErr := newError(connect.CodeInvalidArgument, errors.New(strings.Join(messages, "; ")),
		string(apperrors.KindValidation), map[string]string{"field": fieldViolations[0].Field})
	addDetail(connectErr, &errdetails.BadRequest{FieldViolations: fieldViolations})
	return connectErr
}
