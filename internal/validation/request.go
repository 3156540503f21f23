package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"socialnet/internal/models"

	"github.com/go-playground/validator/v10"
)

// requestValidate checks the shape of decoded request bodies. Domain rules
// (uniqueness, lengths after trimming) stay in the services.
var requestValidate *validator.Validate

func init() {
	requestValidate = validator.New(validator.WithRequiredStructEnabled())

	// Report json field names so messages match what the client sent.
	requestValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	_ = requestValidate.RegisterValidation("plan", func(fl validator.FieldLevel) bool {
		return models.Plan(fl.Field().String()).Valid()
	})
	_ = requestValidate.RegisterValidation("badge", func(fl validator.FieldLevel) bool {
		return models.Badge(fl.Field().String()).Valid()
	})
	_ = requestValidate.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return models.IsCategory(strings.TrimSpace(fl.Field().String()))
	})
}

// Request validates a decoded body against its `validate` tags and returns
// a client-facing message for the first failing field.
func Request(v any) error {
	err := requestValidate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", fe.Field())
	case "plan":
		return fmt.Errorf("unknown plan %q", fe.Value())
	case "badge":
		return fmt.Errorf("unknown badge %q", fe.Value())
	case "category":
		return fmt.Errorf("unknown category %q", fe.Value())
	case "max":
		return fmt.Errorf("%s must not exceed %s entries", fe.Field(), fe.Param())
	default:
		return fmt.Errorf("%s is invalid", fe.Field())
	}
}
