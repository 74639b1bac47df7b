package validator

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/ja"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	ja_translations "github.com/go-playground/validator/v10/translations/ja"
)

// trans is the singleton Japanese translator for validation errors.
var trans ut.Translator

// Setup registers the validator with Japanese translations and the custom
// rules on Gin's binding engine. Call once during application startup.
func Setup() {
	v, ok := binding.Validator.Engine().(*govalidator.Validate)
	if !ok {
		return
	}

	// Use the json or form tag name for field names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	jaLocale := ja.New()
	uni := ut.New(jaLocale, jaLocale)
	trans, _ = uni.GetTranslator("ja")
	_ = ja_translations.RegisterDefaultTranslations(v, trans)

	_ = v.RegisterValidation("yearmonth", isYearMonth)
	_ = v.RegisterTranslation("yearmonth", trans,
		func(ut ut.Translator) error {
			return ut.Add("yearmonth", "{0}はYYYY-MM形式で入力してください", true)
		},
		func(ut ut.Translator, fe govalidator.FieldError) string {
			msg, _ := ut.T("yearmonth", fe.Field())
			return msg
		},
	)
}

// isYearMonth accepts strings such as "2024-02".
func isYearMonth(fl govalidator.FieldLevel) bool {
	_, err := time.Parse("2006-01", fl.Field().String())
	return err == nil
}

// TranslateErrors takes a binding/validation error and returns a map of
// field name to human-readable error message. If the error is not a
// validation error, it returns a single-key map with "detail".
func TranslateErrors(err error) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			if trans == nil {
				fields[fe.Field()] = fe.Error()
				continue
			}
			fields[fe.Field()] = fe.Translate(trans)
		}
		return fields
	}

	// Not a validation error (e.g., JSON syntax error).
	fields["detail"] = err.Error()
	return fields
}

// Bind binds and validates the request body into dst. An empty body is
// accepted so that endpoints with only optional fields can be called bare.
// Returns nil on success or a translated field error map on failure.
func Bind(c *gin.Context, dst any) map[string]string {
	if c.Request.ContentLength == 0 {
		return validateEmpty(dst)
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		// Chunked requests report an unknown length; an empty one ends at EOF.
		if errors.Is(err, io.EOF) {
			return validateEmpty(dst)
		}
		return TranslateErrors(err)
	}
	return nil
}

func validateEmpty(dst any) map[string]string {
	if err := binding.Validator.ValidateStruct(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}

// BindQuery binds and validates query string parameters into dst.
func BindQuery(c *gin.Context, dst any) map[string]string {
	if err := c.ShouldBindQuery(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}
