package listings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"motomarket/internal/app/commands"
	"motomarket/internal/app/dto"
	"motomarket/internal/app/outbox"
	"motomarket/internal/infra/storage/s3"
)

const uploadListingPhotoKey = "listings.photos.upload"

var (
	ErrUploaderUnavailable = errors.New("listings: photo uploader unavailable")
	ErrPhotoRequired       = errors.New("listings: photo is required")
)

type UploadListingPhotoCommand struct {
	SellerID    string
	ListingID   string
	ObjectKey   string
	ContentType string
	Size        int64
	Reader      io.Reader
}

func (c UploadListingPhotoCommand) Key() string     { return uploadListingPhotoKey }
func (c UploadListingPhotoCommand) ActorID() string { return c.SellerID }

type UploadListingPhotoHandler struct {
	Logger   *slog.Logger
	Uploader s3.Uploader
	Encoder  outbox.EventEncoder
	Now      func() time.Time
}

func (h *UploadListingPhotoHandler) Handle(ctx context.Context, cmd UploadListingPhotoCommand) (*dto.PhotoUploadResult, error) {
	if h.Uploader == nil {
		return nil, ErrUploaderUnavailable
	}
	if cmd.Reader == nil || strings.TrimSpace(cmd.ObjectKey) == "" {
		return nil, ErrPhotoRequired
	}
	unit, listing, err := loadOwnedListing(ctx, cmd.SellerID, cmd.ListingID)
	if err != nil {
		return nil, err
	}

	publicURL, err := h.Uploader.Upload(ctx, cmd.ObjectKey, cmd.Reader, cmd.Size, cmd.ContentType)
	if err != nil {
		return nil, fmt.Errorf("upload photo: %w", err)
	}
	listing.AddPhoto(publicURL, clock(h.Now))
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}
	if err := recordEvents(ctx, h.Encoder, listing); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("listing photo added", "listing_id", listing.ID, "object_key", cmd.ObjectKey)
	}
	return &dto.PhotoUploadResult{
		ListingID:    string(listing.ID),
		Photos:       append([]string(nil), listing.Photos...),
		ThumbnailURL: listing.ThumbnailURL,
	}, nil
}

var _ commands.Handler[UploadListingPhotoCommand, *dto.PhotoUploadResult] = (*UploadListingPhotoHandler)(nil)
