package Controllers

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/gofiber/fiber/v2"
)

// Validator checks request bodies and reports problems per JSON field in
// English.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func NewValidator() *Validator {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	english := en.New()
	translator, _ := ut.New(english, english).GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(err)
	}
	return &Validator{validate: validate, translator: translator}
}

// Check returns the failing fields, nil when s is valid.
func (v *Validator) Check(s interface{}) map[string]string {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return map[string]string{"body": err.Error()}
	}
	fields := make(map[string]string, len(errs))
	for _, fieldErr := range errs {
		fields[fieldPath(fieldErr.Namespace())] = fieldErr.Translate(v.translator)
	}
	return fields
}

// fieldPath drops the struct name from a namespace like "signUpInput.email".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

// Bind parses the JSON body into out and validates it. When it returns false
// the error response has already been written.
func (v *Validator) Bind(ctx *fiber.Ctx, out interface{}) (bool, error) {
	if err := ctx.BodyParser(out); err != nil {
		return false, ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if fields := v.Check(out); fields != nil {
		return false, ctx.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":  "validation failed",
			"fields": fields,
		})
	}
	return true, nil
}
