package auth

var messages = map[string]string{
	CodeEmailInUse:         "This email address is already in use.",
	CodeInvalidEmail:       "The email address is not valid.",
	CodeUserNotFound:       "No account was found for this email.",
	CodeWrongPassword:      "The password is incorrect.",
	CodeWeakPassword:       "Passwords must be at least 6 characters.",
	CodePasswordMismatch:   "The passwords do not match.",
	CodeMissingField:       "Region and school are required.",
	CodeInvalidRole:        "Choose either student or teacher.",
	CodeProfileWriteFailed: "Your account exists but the profile could not be saved. Please try again.",
	CodeInvalidState:       "The sign-in request expired. Please try again.",
	CodeProviderFailed:     "Google sign-in is unavailable right now. Please try again.",
}

// MessageFor maps a credential code to the text shown next to the form.
// Unknown codes fall back to a generic message that echoes the code.
func MessageFor(code string) string {
	if m, ok := messages[code]; ok {
		return m
	}
	return "Sign-in or sign-up failed: " + code
}
