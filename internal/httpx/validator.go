package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"libraryapi/internal/platform/crypto"
)

var validate *validator.Validate

var (
	isbn10Re = regexp.MustCompile(`^\d{9}[\dX]$`)
	isbn13Re = regexp.MustCompile(`^\d{13}$`)

	isbnSeparators = strings.NewReplacer("-", "", " ", "")
)

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation("isbn", validateISBN)
	_ = validate.RegisterValidation("password_strength", validatePasswordStrength)
}

// validateISBN accepts 10 or 13 digit ISBNs with optional hyphens or spaces.
func validateISBN(fl validator.FieldLevel) bool {
	isbn := strings.ToUpper(isbnSeparators.Replace(fl.Field().String()))
	switch len(isbn) {
	case 10:
		return isbn10Re.MatchString(isbn)
	case 13:
		return isbn13Re.MatchString(isbn)
	}
	return false
}

func validatePasswordStrength(fl validator.FieldLevel) bool {
	return crypto.ValidatePasswordStrength(fl.Field().String()) == nil
}

// ValidateStruct runs struct tag validation and returns one detail per failing field.
func ValidateStruct(s any) []ErrorDetail {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []ErrorDetail{{Field: "", Message: err.Error()}}
	}

	var details []ErrorDetail
	for _, fe := range validationErrors {
		field := fe.Field()
		param := fe.Param()

		var message string
		switch fe.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", field)
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", field)
		case "min":
			message = fmt.Sprintf("%s must be at least %s characters", field, param)
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", field, param)
		case "isbn":
			message = fmt.Sprintf("%s must be a valid ISBN (10 or 13 digits)", field)
		case "password_strength":
			message = fmt.Sprintf("%s must be at least 8 characters with uppercase, lowercase, number, and special character", field)
		case "gte", "lte":
			message = fmt.Sprintf("%s is out of range (%s %s)", field, fe.Tag(), param)
		case "url":
			message = fmt.Sprintf("%s must be a valid URL", field)
		default:
			message = fmt.Sprintf("%s is invalid", field)
		}

		details = append(details, ErrorDetail{
			Field:   field,
			Message: message,
		})
	}

	return details
}

// DecodeAndValidate decodes a JSON body into dst and validates it, writing the
// error response itself. It returns false when the handler should stop.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			JSONError(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large", nil)
			return false
		}
		BadRequest(w, r, "Invalid request body")
		return false
	}

	if details := ValidateStruct(dst); len(details) > 0 {
		JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return false
	}
	return true
}
