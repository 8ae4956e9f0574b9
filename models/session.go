package models

// Session is the normalized payload emitted on a successful login,
// identical in shape across the password and federated sign-in paths.
type Session struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
	DisplayName   string `json:"displayName"`
	PhotoURL      string `json:"photoURL"`
	RefreshToken  string `json:"refreshToken"`
}
