package domain

// Identity is the resolved caller identity for this session. Immutable once
// the session bootstrap reaches Ready.
type Identity struct {
	ID            string
	DisplayName   string
	Authenticated bool
}

// AuthState is one identity-change notification from the backend: a
// principal when sign-in produced one, or empty when the session falls back
// to a local anonymous identity.
type AuthState struct {
	UserID        string
	Authenticated bool
}
