package models

const (
	UserTypePhotographer = "photographer"
	UserTypeTraveller    = "traveller"
)

// UnknownField is the sentinel stored for fields the sign-up path cannot
// know yet (phone number, profile picture references).
const UnknownField = "-"

// UserMetadata is the canonical record for a subject id, stored at
// user_metadata/{uid}. Exactly one exists per uid; it is created once on
// first successful sign-up and never deleted.
type UserMetadata struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhoneNumber string `json:"phoneNumber"`
	UserType    string `json:"userType"`
	FirstLogin  bool   `json:"firstLogin"`
	Created     int64  `json:"created,omitempty"`
	Updated     int64  `json:"updated,omitempty"`
	Enable      int    `json:"enable"`

	// Photographer-only fields, absent for travellers.
	Rating                        *float64 `json:"rating,omitempty"`
	PriceStartFrom                *int     `json:"priceStartFrom,omitempty"`
	DefaultDisplayPictureURL      string   `json:"defaultDisplayPictureUrl,omitempty"`
	DefaultDisplayPicturePublicID string   `json:"defaultDisplayPicturePublicId,omitempty"`
	PhotoProfilePublicID          string   `json:"photoProfilePublicId,omitempty"`
}
