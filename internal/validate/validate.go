package validate

// Thin wrapper around go-playground/validator so every package validates
// coordinates, extents and config with the same rules and the same messages.
//
// e.g. internal/navigation/signal.go
//   type Request struct {
//       Latitude  float64 `json:"lat" validate:"latitude"`
//       Longitude float64 `json:"lng" validate:"longitude"`
//   }

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// MaxZoom is the deepest zoom level the renderer accepts.
const MaxZoom = 22

//nolint:gochecknoglobals // Shared validator singleton.
var (
	validatorOnce sync.Once
	validatorInst *validator.Validate
)

// get returns a process-wide singleton of the validator.
func get() *validator.Validate {
	validatorOnce.Do(func() {
		validatorInst = validator.New(validator.WithRequiredStructEnabled())
		// zoom: a renderer zoom level in [0, MaxZoom].
		_ = validatorInst.RegisterValidation("zoom", func(fl validator.FieldLevel) bool {
			z := fl.Field().Float()
			return z >= 0 && z <= MaxZoom
		})
	})
	return validatorInst
}

// Struct validates a struct using the shared validator instance.
func Struct(v any) error {
	return describe(get().Struct(v))
}

// Var validates a single variable against the provided tag constraints.
func Var(field any, tag string) error {
	return describe(get().Var(field, tag))
}

// FieldError is a flattened validation failure.
type FieldError struct {
	Field string
	Tag   string
	Param string
	Value any
}

func (e FieldError) Error() string {
	name := e.Field
	if name == "" {
		name = "value"
	}
	if e.Param != "" {
		return fmt.Sprintf("%s failed %s=%s (got %v)", name, e.Tag, e.Param, e.Value)
	}
	return fmt.Sprintf("%s failed %s (got %v)", name, e.Tag, e.Value)
}

// Errors is the list of field failures returned by Struct and Var.
type Errors []FieldError

func (es Errors) Error() string {
	parts := make([]string, 0, len(es))
	for _, e := range es {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "; ")
}

// describe converts validator errors into Errors, leaving other errors untouched.
func describe(err error) error {
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	out := make(Errors, 0, len(ves))
	for _, fe := range ves {
		out = append(out, FieldError{
			Field: fieldPath(fe.Namespace()),
			Tag:   fe.Tag(),
			Param: fe.Param(),
			Value: fe.Value(),
		})
	}
	return out
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
