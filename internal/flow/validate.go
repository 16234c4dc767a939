package flow

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Messages are translation ids understood by the admin front end.
const (
	msgValidationPrefix = "components.Input.error.validation."
	MsgPasswordNoMatch  = "components.Input.error.password.noMatch"
)

var validate = validator.New()

// ruleMessages maps validator tags to message ids when the id differs from
// the tag.
var ruleMessages = map[string]string{
	"min":         "minLength",
	"max":         "maxLength",
	"containsany": "regex",
}

// FieldError is a client-side validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Validate checks p against the field rules and returns one error per
// failing field, in schema order.
func (s Schema) Validate(p Payload) []FieldError {
	var out []FieldError
	for _, f := range s.Fields {
		value, _ := Lookup(p, f.Name)
		if !sameKind(f.Default, value) {
			out = append(out, FieldError{Field: f.Name, Rule: "invalid", Message: msgValidationPrefix + "invalid"})
			continue
		}
		if f.Rules != "" {
			if fe, failed := checkRules(f, value); failed {
				out = append(out, fe)
				continue
			}
		}
		if f.Match != "" {
			other, _ := Lookup(p, f.Match)
			if !stringsEqual(value, other) {
				out = append(out, FieldError{Field: f.Name, Rule: "match", Message: MsgPasswordNoMatch})
			}
		}
	}
	return out
}

// sameKind reports whether value may stand in for a field whose default is
// def. Missing values are left to the rules.
func sameKind(def, value any) bool {
	if value == nil {
		return true
	}
	switch def.(type) {
	case string:
		_, ok := value.(string)
		return ok
	case bool:
		_, ok := value.(bool)
		return ok
	}
	return true
}

// stringsEqual is false unless both values are strings.
func stringsEqual(a, b any) bool {
	as, ok := a.(string)
	if !ok {
		return false
	}
	bs, ok := b.(string)
	return ok && as == bs
}

func checkRules(f FieldSpec, value any) (FieldError, bool) {
	if value == nil {
		value = ""
	}
	err := validate.Var(value, f.Rules)
	if err == nil {
		return FieldError{}, false
	}
	var verrs validator.ValidationErrors
	rule := "invalid"
	if errors.As(err, &verrs) && len(verrs) > 0 {
		rule = verrs[0].Tag()
	}
	id := rule
	if mapped, ok := ruleMessages[rule]; ok {
		id = mapped
	}
	return FieldError{Field: f.Name, Rule: rule, Message: msgValidationPrefix + id}, true
}

// Field returns the spec for the named field.
func (s Schema) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Coerce converts raw form input to the type of the field's default.
// Unknown fields keep the raw string.
func (s Schema) Coerce(name, raw string) any {
	f, ok := s.Field(name)
	if !ok {
		return raw
	}
	if _, isBool := f.Default.(bool); isBool {
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "on", "yes", "y":
			return true
		case "off", "no", "n":
			return false
		}
		b, _ := strconv.ParseBool(raw)
		return b
	}
	return raw
}

// Validate checks the current form against the mounted schema. Failures
// replace the form errors, keyed by field name, and false is returned.
func (c *Controller) Validate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lifecycle == nil {
		return false
	}
	errs := c.descriptor.Schema.Validate(c.state.ModifiedData)
	if len(errs) == 0 {
		return true
	}
	formErrors := make(FormErrors, len(errs))
	for _, fe := range errs {
		formErrors[fe.Field] = fe.Message
	}
	c.state = Reduce(c.state, SetFormErrors{Errors: formErrors})
	return false
}
