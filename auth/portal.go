package auth

import (
	"context"
	"fmt"
	"net/http"

	apperrors "github.com/jrsteele09/academy-portal/internal/errors"
	"github.com/jrsteele09/academy-portal/users"
	"golang.org/x/oauth2"
)

// Session is a gateway with its principal type erased, for code that handles every role
// alike such as the route guard and the HTTP handlers.
type Session interface {
	Role() users.RoleType
	Check(ctx context.Context) Result
	IsAuthenticated(ctx context.Context) bool
	User(ctx context.Context) any
	AuthHeaders(ctx context.Context) http.Header
	TokenSource(ctx context.Context) oauth2.TokenSource
	StoreLogin(ctx context.Context, body []byte) (any, error)
	ClearAuthData(ctx context.Context) error
	Logout(ctx context.Context) error
}

var (
	_ Session = (*Gateway[users.Student])(nil)
	_ Session = (*Gateway[users.Coach])(nil)
	_ Session = (*Gateway[users.BranchManager])(nil)
	_ Session = (*Gateway[users.SuperAdmin])(nil)
)

// Portal holds one gateway per role over a shared store. Roles never see each other's
// records.
type Portal struct {
	Student       *Gateway[users.Student]
	Coach         *Gateway[users.Coach]
	BranchManager *Gateway[users.BranchManager]
	SuperAdmin    *Gateway[users.SuperAdmin]
}

func NewPortal(store CredentialStore, validator *Validator) *Portal {
	if validator == nil {
		validator = NewValidator()
	}
	return &Portal{
		Student:       NewGateway[users.Student](users.RoleStudent, store, validator),
		Coach:         NewGateway[users.Coach](users.RoleCoach, store, validator),
		BranchManager: NewGateway[users.BranchManager](users.RoleBranchManager, store, validator),
		SuperAdmin:    NewGateway[users.SuperAdmin](users.RoleSuperAdmin, store, validator),
	}
}

// Session returns the gateway for role.
func (p *Portal) Session(role users.RoleType) (Session, error) {
	switch role {
	case users.RoleStudent:
		return p.Student, nil
	case users.RoleCoach:
		return p.Coach, nil
	case users.RoleBranchManager:
		return p.BranchManager, nil
	case users.RoleSuperAdmin:
		return p.SuperAdmin, nil
	}
	return nil, fmt.Errorf("portal session %q: %w", role, apperrors.ErrUnknownRole)
}

// Sessions returns every gateway in users.Roles order.
func (p *Portal) Sessions() []Session {
	return []Session{p.Student, p.Coach, p.BranchManager, p.SuperAdmin}
}
