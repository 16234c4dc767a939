package flow

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const (
	// DefaultErrorMessage is shown when a failed response carries no message.
	DefaultErrorMessage = "Something went wrong"
	// GenericErrorMessage is the fixed message of the forgot-password page.
	GenericErrorMessage = "notification.error"
	// DefaultErrorStatus is used when a reset-password failure carries no status.
	DefaultErrorStatus = 400

	inactiveAccountMessage = "usernotactive"
)

// ResponseError is a transport failure for which the server answered. Body
// is the decoded JSON error document, possibly empty.
type ResponseError struct {
	Status int
	Body   map[string]any
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("identity service responded with status %d", e.Status)
}

// ErrorKind is the classification of a failed submit.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindIgnored
	KindFieldErrors
	KindGenericMessage
	KindInactiveAccount
	KindRequestError
)

func (k ErrorKind) String() string {
	switch k {
	case KindIgnored:
		return "ignored"
	case KindFieldErrors:
		return "field_errors"
	case KindGenericMessage:
		return "generic_message"
	case KindInactiveAccount:
		return "inactive_account"
	case KindRequestError:
		return "request_error"
	default:
		return "none"
	}
}

// Classification is the result of classifying a transport error.
type Classification struct {
	Kind    ErrorKind
	Message string
	Status  int
	Fields  map[string]string
}

// ClassifyLogin classifies a sign-in failure.
func ClassifyLogin(err error) Classification {
	resp, ok := responseOf(err)
	if !ok {
		return Classification{Kind: KindIgnored}
	}
	msg := stringAt(resp.Body, DefaultErrorMessage, "error", "message")
	if normalizeMessage(msg) == inactiveAccountMessage {
		return Classification{Kind: KindInactiveAccount, Message: msg, Status: resp.Status}
	}
	return Classification{Kind: KindGenericMessage, Message: msg, Status: resp.Status}
}

// ClassifyRegistration classifies a register or register-admin failure.
func ClassifyRegistration(err error) Classification {
	resp, ok := responseOf(err)
	if !ok {
		return Classification{Kind: KindIgnored}
	}
	return Classification{Kind: KindFieldErrors, Status: resp.Status, Fields: FormatAPIErrors(resp.Body)}
}

// ClassifyForgotPassword classifies a forgot-password failure. Every failure,
// with or without a response, yields the fixed generic message.
func ClassifyForgotPassword(err error) Classification {
	c := Classification{Kind: KindGenericMessage, Message: GenericErrorMessage}
	if resp, ok := responseOf(err); ok {
		c.Status = resp.Status
	}
	return c
}

// ClassifyResetPassword classifies a reset-password failure.
func ClassifyResetPassword(err error) Classification {
	resp, ok := responseOf(err)
	if !ok {
		return Classification{Kind: KindIgnored}
	}
	return Classification{
		Kind:    KindRequestError,
		Message: stringAt(resp.Body, DefaultErrorMessage, "message"),
		Status:  intAt(resp.Body, DefaultErrorStatus, "statusCode"),
	}
}

func responseOf(err error) (*ResponseError, bool) {
	var resp *ResponseError
	if errors.As(err, &resp) && resp != nil {
		return resp, true
	}
	return nil, false
}

// normalizeMessage folds case and drops word separators, so "User not
// active", "user_not_active" and "UserNotActive" compare equal.
func normalizeMessage(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func valueAt(body map[string]any, path ...string) (any, bool) {
	var cur any = body
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[key]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func stringAt(body map[string]any, def string, path ...string) string {
	v, ok := valueAt(body, path...)
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

func intAt(body map[string]any, def int, path ...string) int {
	v, ok := valueAt(body, path...)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
	}
	return def
}
