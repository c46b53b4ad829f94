package auth

import "errors"

// Credential error codes. They are stable strings shown to clients and
// resolved to user-facing text by MessageFor.
const (
	CodeEmailInUse         = "auth/email-already-in-use"
	CodeInvalidEmail       = "auth/invalid-email"
	CodeUserNotFound       = "auth/user-not-found"
	CodeWrongPassword      = "auth/wrong-password"
	CodeWeakPassword       = "auth/weak-password"
	CodePasswordMismatch   = "auth/password-mismatch"
	CodeMissingField       = "auth/missing-field"
	CodeInvalidRole        = "auth/invalid-role"
	CodeProfileWriteFailed = "auth/profile-write-failed"

	// provider sign-in
	CodeSignInCancelled = "auth/sign-in-cancelled"
	CodeInvalidState    = "auth/invalid-state"
	CodeProviderFailed  = "auth/provider-unavailable"
)

const minPasswordLen = 6

type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code string) *Error { return &Error{Code: code} }

// CodeOf returns the credential code carried by err, or "".
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// IsCancel reports whether code means the user backed out of a provider
// sign-in. Cancellation is not an error and is never displayed.
func IsCancel(code string) bool {
	return code == CodeSignInCancelled
}

// providerErrorCode maps an OAuth error parameter to a credential code.
func providerErrorCode(e string) string {
	if e == "access_denied" {
		return CodeSignInCancelled
	}
	return "auth/" + e
}
