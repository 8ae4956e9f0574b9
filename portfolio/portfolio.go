// Package portfolio mutates a photographer's portfolio and default
// display picture records, delegating image removal to the Cloudinary
// integration endpoint.
package portfolio

import (
	"context"
	"fmt"

	"marketplace-auth/models"
	"marketplace-auth/store"
)

// ImageDeleter removes uploaded images by their public ids.
type ImageDeleter interface {
	Delete(ctx context.Context, publicIDs []string) error
}

type Manager struct {
	records store.Records
	images  ImageDeleter
}

func NewManager(records store.Records, images ImageDeleter) *Manager {
	return &Manager{records: records, images: images}
}

// UpdatePhotosPortfolio replaces the stored portfolio. In initiation
// mode the first photo becomes the account's default display picture and
// is the only entry flagged as default.
func (m *Manager) UpdatePhotosPortfolio(ctx context.Context, uid string, photos []models.PortfolioPhoto, initiation bool) error {
	if len(photos) == 0 {
		return nil
	}

	if !initiation {
		return m.records.Update(ctx, store.Path(store.ServiceInformationPath, uid), map[string]interface{}{
			"photosPortofolio": photos,
			"updated":          store.ServerTimestamp,
		})
	}

	if err := m.UpdateDefaultDisplayPicture(ctx, uid, photos[0].URL, photos[0].PublicID); err != nil {
		return err
	}

	flagged := make([]models.PortfolioPhoto, len(photos))
	for i, photo := range photos {
		photo.DefaultPicture = i == 0
		flagged[i] = photo
	}

	return m.records.Update(ctx, store.Path(store.ServiceInformationPath, uid), map[string]interface{}{
		"photosPortofolio": flagged,
		"updated":          store.ServerTimestamp,
	})
}

// UpdateDefaultDisplayPicture points the canonical metadata record at a
// new default picture.
func (m *Manager) UpdateDefaultDisplayPicture(ctx context.Context, uid, pictureURL, publicID string) error {
	return m.records.Update(ctx, store.Path(store.UserMetadataPath, uid), map[string]interface{}{
		"defaultDisplayPictureUrl":      pictureURL,
		"defaultDisplayPicturePublicId": publicID,
		"updated":                       store.ServerTimestamp,
	})
}

// DeletePhotos removes the given photos from the image host, then writes
// the caller-supplied remaining list; the diff is not recomputed here.
func (m *Manager) DeletePhotos(ctx context.Context, uid string, deleted, remaining []models.PortfolioPhoto) error {
	if len(deleted) == 0 {
		return nil
	}

	publicIDs := make([]string, len(deleted))
	for i, photo := range deleted {
		publicIDs[i] = photo.PublicID
	}

	if err := m.images.Delete(ctx, publicIDs); err != nil {
		return fmt.Errorf("delete portfolio images: %w", err)
	}

	if remaining == nil {
		remaining = []models.PortfolioPhoto{}
	}
	return m.records.Update(ctx, store.Path(store.ServiceInformationPath, uid), map[string]interface{}{
		"photosPortofolio": remaining,
	})
}
