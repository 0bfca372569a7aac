package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	playground "github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/shopspring/decimal"
)

// rules checks the field level constraints declared in the validate tags of the
// raw document types. Cross entity checks stay in validator.go.
var rules = newRules()

func newRules() *playground.Validate {
	r := playground.New(playground.WithRequiredStructEnabled())

	// Report fields by their element or attribute name. Character data has no
	// name of its own and falls back to the Go field name.
	r.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("xml"), ",")
		if i := strings.LastIndex(name, ">"); i >= 0 {
			name = name[i+1:]
		}
		return name
	})

	for tag, fn := range map[string]playground.Func{
		"notblank":    validators.NotBlank,
		"decimal":     isDecimal,
		"wholenumber": isWholeNumber,
		"nonnegative": isNonNegative,
	} {
		if err := r.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register %s rule: %v", tag, err))
		}
	}
	return r
}

func isDecimal(fl playground.FieldLevel) bool {
	_, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
	return err == nil
}

func isWholeNumber(fl playground.FieldLevel) bool {
	_, err := strconv.Atoi(strings.TrimSpace(fl.Field().String()))
	return err == nil
}

func isNonNegative(fl playground.FieldLevel) bool {
	d, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
	return err == nil && !d.IsNegative()
}

// check runs the tag rules on one raw struct and records a violation per failed
// field against id. field prefixes the reported field path. It reports whether
// the struct passed.
func (v *validator) check(id, field string, raw any) bool {
	err := rules.Struct(raw)
	if err == nil {
		return true
	}

	var fieldErrs playground.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		v.add(id, MissingField, field, "%v", err)
		return false
	}
	for _, fe := range fieldErrs {
		path := fieldPath(field, fe.Namespace())
		kind := kindOf(fe)
		v.add(id, kind, path, "%s", describe(kind, path, fe))
	}
	return false
}

// fieldPath drops the struct name from a namespace such as
// RawPricing.RecurringPrice.Value and joins the rest onto prefix. A trailing
// Value segment is the element text and names nothing new.
func fieldPath(prefix, namespace string) string {
	parts := strings.Split(namespace, ".")[1:]
	if n := len(parts); n > 0 && parts[n-1] == "Value" {
		parts = parts[:n-1]
	}
	if prefix != "" {
		parts = append([]string{prefix}, parts...)
	}
	return strings.Join(parts, ".")
}

func kindOf(fe playground.FieldError) Kind {
	switch fe.Tag() {
	case "notblank", "required":
		return MissingField
	case "decimal", "wholenumber":
		return InvalidAmount
	case "nonnegative":
		if ns := fe.StructNamespace(); strings.HasPrefix(ns, "RawTerm.") || strings.Contains(ns, ".MinimumTerm.") {
			return NegativeTerm
		}
		return NegativeAmount
	case "oneofci":
		if fe.StructField() == "Unit" {
			return InvalidTermUnit
		}
		return InvalidFrequency
	default:
		return MissingField
	}
}

func describe(kind Kind, path string, fe playground.FieldError) string {
	value := strings.TrimSpace(fmt.Sprint(fe.Value()))
	switch kind {
	case MissingField:
		return path + " is required"
	case InvalidAmount:
		if fe.Tag() == "wholenumber" {
			return fmt.Sprintf("%q is not a whole number", value)
		}
		return fmt.Sprintf("%q is not a number", value)
	case NegativeAmount, NegativeTerm:
		return fmt.Sprintf("%s is negative", value)
	case InvalidTermUnit:
		return fmt.Sprintf("unit %q is not months or years", value)
	case InvalidFrequency:
		return fmt.Sprintf("frequency %q is not monthly or annually", value)
	default:
		return fe.Error()
	}
}
