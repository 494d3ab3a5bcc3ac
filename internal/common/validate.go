package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/remotehive-dev/Spark-Configurator/internal/pricing"
)

var (
	// Validate is the shared request validator.
	Validate *validator.Validate
	// Translator renders validation errors in english.
	Translator ut.Translator

	couponTag   = "coupon"
	notBlankTag = "notblank"
)

func init() {
	Validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	Translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(Validate, Translator)

	// Report JSON field names instead of Go struct names.
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = Validate.RegisterValidation(couponTag, couponValidation)
	_ = Validate.RegisterValidation(notBlankTag, notBlankValidation)

	noop := func(ut.Translator) error { return nil }
	for _, tag := range []string{couponTag, notBlankTag} {
		_ = Validate.RegisterTranslation(tag, Translator, noop, translateCustom)
	}
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case couponTag:
		return fmt.Sprintf("%s must be %d alphanumeric characters", fe.Field(), pricing.CouponLength)
	case notBlankTag:
		return fmt.Sprintf("%s cannot be blank", fe.Field())
	default:
		return fe.Error()
	}
}

// couponValidation accepts an empty value; use with required when mandatory.
func couponValidation(fl validator.FieldLevel) bool {
	code, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	code = strings.TrimSpace(code)
	return code == "" || pricing.ValidateCoupon(code)
}

func notBlankValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}

// FieldError describes a single invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError converts validator output into a VALIDATION_ERROR AppError.
func ValidationError(err error) *AppError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewAppError("VALIDATION_ERROR", err.Error(), http.StatusBadRequest, err)
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Message: fe.Translate(Translator)})
	}
	return NewAppError("VALIDATION_ERROR", "request validation failed", http.StatusBadRequest, err).
		WithDetails(map[string]any{"fields": fields})
}

// DecodeAndValidate decodes the JSON request body into dst and validates it.
// An empty body decodes to the zero value before validation.
func DecodeAndValidate(r *http.Request, dst any) error {
	if r.Body != nil {
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
			return NewAppError("BAD_REQUEST", "invalid JSON body", http.StatusBadRequest, err)
		}
	}
	if err := Validate.Struct(dst); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return nil
		}
		return ValidationError(err)
	}
	return nil
}
