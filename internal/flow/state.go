package flow

// Reserved FormErrors keys.
const (
	KeyErrorMessage = "errorMessage"
	KeyAPIErrors    = "apiErrors"
)

// RequestError is the message and status reported by a failed password reset.
type RequestError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// FormErrors maps field names to messages. KeyErrorMessage holds the banner
// message and KeyAPIErrors a map[string]string of server field errors.
type FormErrors map[string]any

// ErrorMessage returns the banner message, if any.
func (e FormErrors) ErrorMessage() string {
	s, _ := e[KeyErrorMessage].(string)
	return s
}

// APIErrors returns the server-side field errors, if any.
func (e FormErrors) APIErrors() map[string]string {
	m, _ := e[KeyAPIErrors].(map[string]string)
	return m
}

// State is the form state of one mounted mode.
type State struct {
	ModifiedData map[string]any `json:"modifiedData"`
	FormErrors   FormErrors     `json:"formErrors"`
	RequestError *RequestError  `json:"requestError,omitempty"`
}

// Action is a state transition understood by Reduce.
type Action interface {
	action()
}

// Reset discards all data and errors.
type Reset struct{}

// SetField writes one field. Existing errors for the field are kept.
type SetField struct {
	Name  string
	Value any
}

// SetRequestError records a reset-password failure.
type SetRequestError struct {
	Message string
	Status  int
}

// SetFormErrors replaces the form errors, as a fresh submit does.
type SetFormErrors struct {
	Errors FormErrors
}

func (Reset) action()           {}
func (SetField) action()        {}
func (SetRequestError) action() {}
func (SetFormErrors) action()   {}

// NewState returns an empty state.
func NewState() State {
	return State{
		ModifiedData: map[string]any{},
		FormErrors:   FormErrors{},
	}
}

// Init seeds a fresh state with one default entry per schema field.
func Init(d FlowDescriptor) State {
	s := NewState()
	for _, f := range d.Schema.Fields {
		setPath(s.ModifiedData, f.Name, f.Default)
	}
	return s
}

// Reduce applies a to s and returns the new state. s is not modified.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case Reset:
		return NewState()
	case SetField:
		next := s.clone()
		setPath(next.ModifiedData, a.Name, a.Value)
		return next
	case SetRequestError:
		next := s.clone()
		next.RequestError = &RequestError{Message: a.Message, Status: a.Status}
		return next
	case SetFormErrors:
		next := s.clone()
		next.FormErrors = cloneErrors(a.Errors)
		return next
	default:
		return s
	}
}

func (s State) clone() State {
	out := State{
		ModifiedData: clonePayload(s.ModifiedData),
		FormErrors:   cloneErrors(s.FormErrors),
	}
	if s.RequestError != nil {
		re := *s.RequestError
		out.RequestError = &re
	}
	return out
}

func cloneErrors(e FormErrors) FormErrors {
	out := make(FormErrors, len(e))
	for k, v := range e {
		if fields, ok := v.(map[string]string); ok {
			cp := make(map[string]string, len(fields))
			for fk, fv := range fields {
				cp[fk] = fv
			}
			v = cp
		}
		out[k] = v
	}
	return out
}
