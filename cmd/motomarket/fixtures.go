package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"motomarket/internal/app/uow"
	"motomarket/internal/domain/listings"
	domainuser "motomarket/internal/domain/user"
	"motomarket/internal/infra/security"
)

type fixtureFile struct {
	Sellers  []sellerFixture  `json:"sellers"`
	Listings []listingFixture `json:"listings"`
}

type sellerFixture struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type listingFixture struct {
	ID           string   `json:"id"`
	Seller       string   `json:"seller"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	Make         string   `json:"make"`
	Model        string   `json:"model"`
	Year         int      `json:"year"`
	MileageKm    int      `json:"mileage_km"`
	EngineCC     int      `json:"engine_cc"`
	Condition    string   `json:"condition"`
	PriceCents   int64    `json:"price_cents"`
	Currency     string   `json:"currency"`
	Location     string   `json:"location"`
	Photos       []string `json:"photos"`
	ThumbnailURL string   `json:"thumbnail_url"`
	CreatedAt    string   `json:"created_at"`
}

// loadListingFixtures imports sellers and listings from a JSON file. Records
// that already exist are left untouched so restarts against a persistent
// store are harmless.
func (a *application) loadListingFixtures(ctx context.Context, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("listing fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("listing fixtures file empty", "path", path)
		return nil
	}
	var fixtures fixtureFile
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}
	return a.importFixtures(ctx, fixtures, logger)
}

func (a *application) importFixtures(ctx context.Context, fixtures fixtureFile, logger *slog.Logger) error {
	if len(fixtures.Sellers) == 0 && len(fixtures.Listings) == 0 {
		return nil
	}
	unit, err := a.factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(ctx)
		}
	}()

	now := time.Now()
	hasher := security.BcryptHasher{}
	for _, fx := range fixtures.Sellers {
		if _, err := unit.Users().ByID(ctx, domainuser.ID(fx.ID)); err == nil {
			continue
		} else if !errors.Is(err, domainuser.ErrNotFound) {
			return err
		}
		password := fx.Password
		if password == "" {
			password = "motomarket"
		}
		hash, err := hasher.Hash(password)
		if err != nil {
			return err
		}
		seller, err := domainuser.NewUser(domainuser.CreateParams{
			ID:           domainuser.ID(fx.ID),
			Email:        fx.Email,
			Name:         fx.Name,
			PasswordHash: hash,
			Roles:        []domainuser.Role{domainuser.RoleSeller},
			CreatedAt:    now,
		})
		if err != nil {
			logger.Error("seller fixture invalid", "user_id", fx.ID, "error", err)
			continue
		}
		if err := unit.Users().Save(ctx, seller); err != nil {
			return fmt.Errorf("store seller %s: %w", fx.ID, err)
		}
	}

	imported := 0
	for _, fx := range fixtures.Listings {
		if _, err := unit.Listings().ByID(ctx, listings.ListingID(fx.ID)); err == nil {
			continue
		} else if !errors.Is(err, listings.ErrNotFound) {
			return err
		}
		listing, err := listings.NewListing(listings.CreateListingParams{
			ID:     listings.ListingID(fx.ID),
			Seller: listings.SellerID(fx.Seller),
			Attributes: listings.Attributes{
				Title:        fx.Title,
				Description:  fx.Description,
				Category:     listings.Category(fx.Category),
				Make:         fx.Make,
				Model:        fx.Model,
				Year:         fx.Year,
				MileageKm:    fx.MileageKm,
				EngineCC:     fx.EngineCC,
				Condition:    listings.Condition(fx.Condition),
				PriceCents:   fx.PriceCents,
				Currency:     fx.Currency,
				Location:     fx.Location,
				Photos:       append([]string(nil), fx.Photos...),
				ThumbnailURL: fx.ThumbnailURL,
			},
			Now: parseFixtureTime(fx.CreatedAt, now),
		})
		if err != nil {
			logger.Error("fixture invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		listing.ClearEvents()
		if err := unit.Listings().Save(ctx, listing); err != nil {
			return fmt.Errorf("store listing %s: %w", fx.ID, err)
		}
		imported++
	}
	if err := unit.Commit(ctx); err != nil {
		return err
	}
	committed = true
	logger.Info("listing fixtures imported", "listings", imported)
	return nil
}

func parseFixtureTime(value string, fallback time.Time) time.Time {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return fallback
}

func defaultListingFixturesPath() string {
	candidates := []string{
		filepath.Join("data", "listings.json"),
		filepath.Join("..", "..", "data", "listings.json"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return candidates[0]
}
