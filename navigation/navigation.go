// Package navigation decides the post-authentication destination from
// the canonical metadata record.
package navigation

import "marketplace-auth/models"

type Destination string

const (
	Home                   Destination = "/"
	PhotographerOnboarding Destination = "/photographer-registration/s2"
	CheckMail              Destination = "/photographer-registration/s1-checkmail"
)

// Resolve is pure and total over valid metadata records: photographers
// still on their first login are sent to onboarding step 2, everyone
// else goes home.
func Resolve(metadata models.UserMetadata) Destination {
	if metadata.UserType == models.UserTypePhotographer && metadata.FirstLogin {
		return PhotographerOnboarding
	}
	return Home
}
