package server

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var validationOnce sync.Once

// registerValidation makes validator report json field names so the
// messages below can be keyed by request path.
func registerValidation() {
	validationOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return field.Name
			}
			return name
		})
	})
}

// bindingMessages keeps the wording clients already display.
var bindingMessages = map[string]ValidationError{
	"name":            {Field: "name", Code: "invalid_name", Message: "Name must be at least 2 characters"},
	"email":           {Field: "email", Code: "invalid_email", Message: "Please enter a valid email"},
	"phone":           {Field: "phone", Code: "invalid_phone", Message: "Phone number is required"},
	"address.street":  {Field: "address.street", Code: "invalid_address", Message: "Street address is required"},
	"address.city":    {Field: "address.city", Code: "invalid_address", Message: "City is required"},
	"address.state":   {Field: "address.state", Code: "invalid_address", Message: "State is required"},
	"address.zipCode": {Field: "address.zipCode", Code: "invalid_address", Message: "ZIP code is required"},
	"description":     {Field: "description", Code: "invalid_description", Message: "Description must be at least 10 characters"},
	"customerId":      {Field: "customerId", Code: "invalid_customer", Message: "Valid customer ID is required"},
	"serviceType":     {Field: "serviceType", Code: "invalid_service_type", Message: "Invalid service type"},
	"status":          {Field: "status", Code: "invalid_status", Message: "Invalid status"},
	"message":         {Field: "message", Code: "invalid_note", Message: "Note message is required"},
	"password":        {Field: "password", Code: "invalid_password", Message: "Password is required"},
}

// bindError turns a gin binding failure into the validation envelope.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return newValidationError(typeErr.Field, "invalid_type", "Invalid value for "+typeErr.Field)
		}
		if errors.As(err, &syntaxErr) {
			return newValidationError("request", "invalid_json", "Malformed JSON body")
		}
		return invalidRequestError()
	}

	out := &ValidationErrors{Errors: make([]ValidationError, 0, len(verrs))}
	seen := make(map[string]struct{}, len(verrs))
	for _, fe := range verrs {
		path := fieldPath(fe.Namespace())
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		if known, ok := bindingMessages[path]; ok {
			out.Errors = append(out.Errors, known)
			continue
		}
		out.Errors = append(out.Errors, ValidationError{
			Field:   path,
			Code:    "invalid_" + fe.Tag(),
			Message: path + " is invalid",
		})
	}
	return out
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	_, rest, found := strings.Cut(namespace, ".")
	if !found {
		return namespace
	}
	return rest
}
