package response

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Response struct {
	Status string            `json:"status"`
	Error  string            `json:"error,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

const (
	StatusOK    = "OK"
	StatusError = "Error"
)

func OK() Response {
	return Response{
		Status: StatusOK,
	}
}

func Error(msg string) Response {
	return Response{
		Status: StatusError,
		Error:  msg,
	}
}

// * ValidationError собирает ошибки валидатора по полям
func ValidationError(errs validator.ValidationErrors) Response {
	var errMsgs []string

	fields := make(map[string]string, len(errs))

	for _, err := range errs {
		var msg string

		switch err.ActualTag() {
		case "required":
			msg = fmt.Sprintf("field %s is a required field", err.Field())
		case "email":
			msg = fmt.Sprintf("field %s is not a valid email", err.Field())
		case "password":
			msg = fmt.Sprintf("field %s must contain an uppercase letter, a lowercase letter and a digit", err.Field())
		case "min":
			msg = fmt.Sprintf("field %s must be at least %s characters", err.Field(), err.Param())
		case "max":
			msg = fmt.Sprintf("field %s must be at most %s characters", err.Field(), err.Param())
		default:
			msg = fmt.Sprintf("field %s is not valid", err.Field())
		}

		fields[err.Field()] = msg
		errMsgs = append(errMsgs, msg)
	}

	return Response{
		Status: StatusError,
		Error:  strings.Join(errMsgs, ", "),
		Fields: fields,
	}
}
