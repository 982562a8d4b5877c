package users

import (
	"context"
	"strings"

	"motomarket/internal/app/dto"
	"motomarket/internal/app/queries"
	"motomarket/internal/app/uow"
	domainuser "motomarket/internal/domain/user"
)

const getProfileKey = "users.profile"

// GetProfileQuery resolves the public details of a user.
type GetProfileQuery struct {
	UserID string
}

func (q GetProfileQuery) Key() string { return getProfileKey }

type GetProfileHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetProfileHandler) Handle(ctx context.Context, q GetProfileQuery) (dto.UserDetails, error) {
	id := strings.TrimSpace(q.UserID)
	if id == "" {
		return dto.UserDetails{}, domainuser.ErrNotFound
	}
	unit, ctx, release, err := uow.BeginReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return dto.UserDetails{}, err
	}
	defer release()

	u, err := unit.Users().ByID(ctx, domainuser.ID(id))
	if err != nil {
		return dto.UserDetails{}, err
	}
	return dto.MapUserDetails(u.Details()), nil
}

var _ queries.Handler[GetProfileQuery, dto.UserDetails] = (*GetProfileHandler)(nil)
