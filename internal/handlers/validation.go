package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/brandpick/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const maxJSONBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
		return store.IsValidID(fl.Field().String())
	})
	return v
}

// requestError is a client error detected while reading a request.
type requestError struct {
	fields  []FieldError
	message string
}

func (e *requestError) Error() string {
	if e.message != "" {
		return e.message
	}
	return "validation error"
}

func writeRequestError(w http.ResponseWriter, err error) {
	var reqErr *requestError
	if errors.As(err, &reqErr) && len(reqErr.fields) > 0 {
		writeValidationError(w, http.StatusBadRequest, reqErr.fields)
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

// decodeAndValidate reads a JSON body into dst and validates it. Unknown
// fields are rejected.
func decodeAndValidate(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxJSONBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return decodeError(err)
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{fe.Field(): fieldMessage(fe)})
	}
	return &requestError{fields: fields}
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fieldError(typeErr.Field, fmt.Sprintf("%q must be a %s", typeErr.Field, kindName(typeErr.Type.Kind())))
	}
	if name, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		field, _ := strconv.Unquote(name)
		return fieldError(field, fmt.Sprintf("%q is not allowed", field))
	}
	if errors.Is(err, io.EOF) {
		return &requestError{message: "Request body is required"}
	}
	return &requestError{message: "Invalid JSON body"}
}

func fieldError(field, message string) error {
	return &requestError{fields: []FieldError{{field: message}}}
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "required_with":
		return fmt.Sprintf("%q is required", field)
	case "email":
		return fmt.Sprintf("%q must be a valid email", field)
	case "url":
		return fmt.Sprintf("%q must be a valid uri", field)
	case "objectid":
		return fmt.Sprintf("%q must be a valid id", field)
	case "oneof":
		return fmt.Sprintf("%q must be one of [%s]", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "len":
		return fmt.Sprintf("%q length must be %s characters long", field, fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%q length must be at least %s characters long", field, fe.Param())
		}
		return fmt.Sprintf("%q must be greater than or equal to %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%q length must be less than or equal to %s characters long", field, fe.Param())
		}
		return fmt.Sprintf("%q must be less than or equal to %s", field, fe.Param())
	default:
		return fmt.Sprintf("%q is invalid", field)
	}
}

func kindName(kind reflect.Kind) string {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	default:
		return "string"
	}
}

// queryInt reads an optional integer query parameter bounded by lo and hi.
// A hi of 0 means unbounded.
func queryInt(query url.Values, key string, def, lo, hi int, errs *[]FieldError) int {
	raw := strings.TrimSpace(query.Get(key))
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	switch {
	case err != nil:
		*errs = append(*errs, FieldError{key: fmt.Sprintf("%q must be a number", key)})
	case value < lo:
		*errs = append(*errs, FieldError{key: fmt.Sprintf("%q must be greater than or equal to %d", key, lo)})
	case hi > 0 && value > hi:
		*errs = append(*errs, FieldError{key: fmt.Sprintf("%q must be less than or equal to %d", key, hi)})
	default:
		return value
	}
	return def
}

// parsePagination reads the page number and the page size stored under
// sizeKey.
func parsePagination(r *http.Request, sizeKey string) (page, size int, err error) {
	var errs []FieldError
	query := r.URL.Query()
	page = queryInt(query, "page", defaultPage, 1, 0, &errs)
	size = queryInt(query, sizeKey, defaultPageSize, 1, maxPageSize, &errs)
	if len(errs) > 0 {
		return 0, 0, &requestError{fields: errs}
	}
	return page, size, nil
}

// idParam returns the object id route parameter named key.
func idParam(r *http.Request, key string) (string, error) {
	id := chi.URLParam(r, key)
	if !store.IsValidID(id) {
		return "", fieldError(key, fmt.Sprintf("%q must be a valid id", key))
	}
	return id, nil
}

const (
	defaultPage     = 1
	defaultPageSize = 30
	maxPageSize     = 100
)
