package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"Gin_gorm_library_borrow/models"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type successBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   any    `json:"error"`
}

// ErrorDetail is the error field of a failed response for domain errors.
type ErrorDetail struct {
	Code   models.ErrCode    `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

func OK(c *gin.Context, status int, message string, data any) {
	c.JSON(status, successBody{Success: true, Message: message, Data: data})
}

func Fail(c *gin.Context, status int, message string, detail any) {
	c.AbortWithStatusJSON(status, errorBody{Success: false, Message: message, Error: detail})
}

// StatusFor maps a domain error code to its HTTP status.
func StatusFor(err error) int {
	switch models.Code(err) {
	case models.CodeValidation, models.CodeInvalidID, models.CodeDuplicateKey,
		models.CodeInvalidQuantity, models.CodeInsufficientCopies:
		return http.StatusBadRequest
	case models.CodeNotFound:
		return http.StatusNotFound
	case models.CodeUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// RespondError writes the error envelope. Uncategorized errors are logged and
// reported without their detail.
func RespondError(c *gin.Context, log *slog.Logger, err error) {
	status := StatusFor(err)
	var e *models.Error
	switch {
	case status == http.StatusInternalServerError || !errors.As(err, &e):
		log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "err", err)
		Fail(c, http.StatusInternalServerError, "Internal server error", "internal error")
	case status == http.StatusServiceUnavailable:
		log.Warn("store unavailable", "method", c.Request.Method, "path", c.FullPath(), "err", err)
		Fail(c, status, "Service temporarily unavailable", ErrorDetail{Code: e.Code})
	default:
		Fail(c, status, e.Message, ErrorDetail{Code: e.Code, Fields: e.Fields})
	}
}

// BindingError turns a gin binding failure into a validation error with one
// message per field. Domain errors raised while decoding pass through.
func BindingError(err error) error {
	if models.Code(err) != "" {
		return err
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) {
		fields := make(map[string]string, len(ves))
		for _, fe := range ves {
			if fe.Tag() == "required" {
				fields[fe.Field()] = fe.Field() + " is required"
			} else {
				fields[fe.Field()] = fmt.Sprintf("%s failed %q validation", fe.Field(), fe.Tag())
			}
		}
		return models.NewValidationError(fields)
	}
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) {
		field := te.Field
		if field == "" {
			field = "body"
		}
		return models.NewValidationError(map[string]string{field: field + " must be of type " + jsonKind(te.Type)})
	}
	if errors.Is(err, io.EOF) {
		return models.NewValidationError(map[string]string{"body": "request body is required"})
	}
	return models.NewValidationError(map[string]string{"body": err.Error()})
}

func jsonKind(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	}
	return t.Kind().String()
}

// registerJSONTagNames makes validator report json field names.
func registerJSONTagNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
}
