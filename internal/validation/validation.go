// Package validation turns raw JSON request bodies into typed domain values.
//
// Each schema decodes field by field first, so a type mismatch on one field
// is reported against that field while the others are still checked by the
// struct rules. Unknown fields are ignored and JSON null counts as absent.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"sleepwise/internal/apperr"

	"github.com/go-playground/validator/v10"
)

// 超过 2^53 的整数在 JSON number 中无法精确表示
const maxSafeInteger = 1<<53 - 1

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "integer", isInteger)
	return v
}

// mustRegister 规则注册失败属于编程错误，启动即 panic
func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %q: %v", tag, err))
	}
}

func isInteger(fl validator.FieldLevel) bool {
	f := fl.Field()
	switch f.Kind() {
	case reflect.Float32, reflect.Float64:
		x := f.Float()
		return x == math.Trunc(x) && math.Abs(x) <= maxSafeInteger
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

type object struct {
	fields map[string]json.RawMessage
	issues []apperr.Issue
}

func decodeObject(body []byte) (*object, error) {
	o := &object{fields: map[string]json.RawMessage{}}
	if len(bytes.TrimSpace(body)) == 0 {
		return o, nil
	}
	if err := json.Unmarshal(body, &o.fields); err != nil {
		return nil, apperr.Validation(apperr.Issue{Reason: "body must be a JSON object"})
	}
	if o.fields == nil {
		o.fields = map[string]json.RawMessage{}
	}
	return o, nil
}

func (o *object) raw(field string) (json.RawMessage, bool) {
	raw, ok := o.fields[field]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, false
	}
	return raw, true
}

func (o *object) str(field string) *string {
	raw, ok := o.raw(field)
	if !ok {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		o.issues = append(o.issues, apperr.Issue{Field: field, Reason: "expected string"})
		return nil
	}
	return &s
}

func (o *object) num(field string) *float64 {
	raw, ok := o.raw(field)
	if !ok {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		o.issues = append(o.issues, apperr.Issue{Field: field, Reason: "expected number"})
		return nil
	}
	return &f
}

// check runs the struct rules and merges them with the decode issues.
// A field that already failed to decode is not reported twice.
func (o *object) check(in any) error {
	issues := o.issues
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return apperr.Validation(apperr.Issue{Reason: err.Error()})
		}
		for _, fe := range verrs {
			if o.failed(fe.Field()) {
				continue
			}
			issues = append(issues, apperr.Issue{Field: fe.Field(), Reason: reason(fe)})
		}
	}
	if len(issues) > 0 {
		return apperr.Validation(issues...)
	}
	return nil
}

func (o *object) failed(field string) bool {
	for _, is := range o.issues {
		if is.Field == field {
			return true
		}
	}
	return false
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "integer":
		return "must be an integer"
	case "gt":
		return "must be greater than " + fe.Param()
	case "min":
		if fe.Kind() == reflect.String {
			return "must not be empty"
		}
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	}
	return "invalid value"
}

func intPtr(f *float64) *int {
	if f == nil {
		return nil
	}
	i := int(*f)
	return &i
}
