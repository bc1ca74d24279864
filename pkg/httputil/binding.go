package httputil

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/medinfo-api/pkg/errors"
)

// BindError turns a gin binding failure into a validation error with a
// message fit for the caller. Only the first failed field is reported.
func BindError(err error) *errors.AppError {
	var maxErr *http.MaxBytesError
	if stderrors.As(err, &maxErr) {
		return &errors.AppError{Code: errors.ErrValidation, Message: "Request body too large", Err: err}
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return &errors.AppError{Code: errors.ErrValidation, Message: "Invalid request body", Err: err}
	}

	fe := verrs[0]
	var msg string
	switch fe.Tag() {
	case "required", "notblank":
		msg = "All fields are required"
	case "email":
		msg = "Invalid email format"
	case "min":
		msg = fmt.Sprintf("%s must be at least %s characters", capitalize(fe.Field()), fe.Param())
	case "oneof":
		msg = fmt.Sprintf("%s must be one of: %s", capitalize(fe.Field()), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		msg = fmt.Sprintf("Invalid %s", fe.Field())
	}
	return &errors.AppError{Code: errors.ErrValidation, Message: msg, Err: err}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
