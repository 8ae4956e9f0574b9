// Package provision creates canonical user records on first successful
// sign-up. Provisioning is idempotent per subject id: duplicate and
// concurrent calls collapse to at most one effective write.
package provision

import (
	"context"
	"fmt"
	"log"

	"marketplace-auth/identity"
	"marketplace-auth/models"
	"marketplace-auth/notify"
	"marketplace-auth/store"

	"golang.org/x/sync/singleflight"
)

// Subject is the identity-provider view of an account to provision.
type Subject struct {
	UID         string
	Email       string
	DisplayName string
	UserType    string
	Provider    identity.ProviderKind
}

type Provisioner struct {
	records store.Records
	sink    notify.Sink
	group   singleflight.Group
}

func New(records store.Records, sink notify.Sink) *Provisioner {
	return &Provisioner{records: records, sink: sink}
}

// EnsureAccountExists creates the canonical metadata record for the
// subject if it does not exist yet, reporting whether this call created
// it. Concurrent calls for the same uid are serialized in-process; the
// store write itself is an atomic create-if-absent, so a race between
// processes still yields exactly one record.
func (p *Provisioner) EnsureAccountExists(ctx context.Context, subject Subject) (bool, error) {
	result, err, _ := p.group.Do(subject.UID, func() (interface{}, error) {
		return p.provision(ctx, subject)
	})
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}

func (p *Provisioner) provision(ctx context.Context, subject Subject) (bool, error) {
	path := store.Path(store.UserMetadataPath, subject.UID)

	found, err := p.records.Once(ctx, path, nil)
	if err != nil {
		return false, fmt.Errorf("provision %s: %w", subject.UID, err)
	}

	created := false
	if !found {
		created, err = p.records.SetIfAbsent(ctx, path, seedMetadata(subject))
		if err != nil {
			return false, fmt.Errorf("provision %s: %w", subject.UID, err)
		}
		if created {
			p.sink.RegistrationNotice(fmt.Sprintf(
				"New user registered via %s - Name: %s, Email: %s, Type: %s",
				subject.Provider.DisplayName(), subject.DisplayName, subject.Email, subject.UserType,
			))
		}
	}

	// Profile bootstrap is independent of the metadata write and safe to
	// repeat; its failure never fails provisioning.
	if subject.UserType == models.UserTypePhotographer {
		if err := p.bootstrapServiceProfile(ctx, subject.UID); err != nil {
			log.Printf("provision: service profile bootstrap for %s failed: %v", subject.UID, err)
		}
	}

	return created, nil
}

func (p *Provisioner) bootstrapServiceProfile(ctx context.Context, uid string) error {
	path := store.Path(store.ServiceInformationPath, uid)

	found, err := p.records.Once(ctx, path, nil)
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	_, err = p.records.SetIfAbsent(ctx, path, seedServiceProfile())
	return err
}

func seedMetadata(subject Subject) map[string]interface{} {
	seed := map[string]interface{}{
		"uid":         subject.UID,
		"email":       subject.Email,
		"userType":    subject.UserType,
		"firstLogin":  true,
		"displayName": subject.DisplayName,
		"phoneNumber": models.UnknownField,
		"created":     store.ServerTimestamp,
		"enable":      1,
	}

	if subject.UserType == models.UserTypePhotographer {
		seed["rating"] = 3
		seed["priceStartFrom"] = 0
		seed["defaultDisplayPictureUrl"] = models.UnknownField
		seed["photoProfilePublicId"] = models.UnknownField
		seed["defaultDisplayPicturePublicId"] = models.UnknownField
	}

	return seed
}

func seedServiceProfile() models.ServiceProfile {
	return models.ServiceProfile{
		ServiceReviews: models.ServiceReviews{
			Rating: models.RatingLabel{Label: "Rating", Value: 3},
			Impressions: []models.Impression{
				{Label: "Friendly", Value: 0.5},
				{Label: "Skillful", Value: 0.5},
				{Label: "Creative", Value: 0.5},
			},
		},
	}
}
