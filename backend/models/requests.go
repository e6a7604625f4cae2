package models

// DocumentRequest is the payload KOReader sends on PUT /syncs/progress.
// Progress and percentage are client-owned and stored untouched.
type DocumentRequest struct {
	Document   string  `json:"document"`
	Progress   string  `json:"progress"`
	Percentage float64 `json:"percentage"`
	Device     string  `json:"device"`
	DeviceID   string  `json:"device_id"`
}

// UserCreateRequest is shared by the public registration endpoint (where the
// password field already carries the client-side digest) and the admin
// creation endpoint (where it is plaintext and hashed server-side).
type UserCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type PasswordChangeRequest struct {
	Password string `json:"password"`
}
