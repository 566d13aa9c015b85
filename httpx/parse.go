package httpx

import (
	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/KOMKZ/go-aegis-framework/errcode"
)

// Parse binds uri, query and body parameters into req.
// URI and query binding failures are tolerated (the request type may not
// carry those tags); a malformed JSON body is an error.
func Parse(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindUri(req); err != nil {
		_ = err
	}

	if err := c.ShouldBindQuery(req); err != nil {
		_ = err
	}

	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(req); err != nil {
			return err
		}
	}

	return nil
}

// Validatable is implemented by request types that validate themselves,
// typically with ozzo-validation rules.
type Validatable interface {
	Validate() error
}

// ValidateRequest runs req's validation and converts ozzo field errors
// into the ValidationFailed layered error.
func ValidateRequest(req Validatable) error {
	err := req.Validate()
	if err == nil {
		return nil
	}

	if validationErrs, ok := err.(validation.Errors); ok {
		return ConvertValidationError(validationErrs)
	}

	return err
}

// ConvertValidationError turns ozzo validation errors into
// errcode.ErrValidationFailed with per-field messages under "fields".
func ConvertValidationError(validationErrs validation.Errors) error {
	fields := make(map[string]string, len(validationErrs))
	for field, fieldErr := range validationErrs {
		if fieldErr != nil {
			fields[field] = fieldErr.Error()
		}
	}

	return errcode.ErrValidationFailed.WithData("fields", fields)
}
