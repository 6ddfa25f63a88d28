package gym

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/gymhub/contentdesk/core"
)

var (
	// errors
	ErrNotFound          = core.NewNotFoundError("gym not found")
	ErrPINInUse          = errors.New("this PIN is already in use")
	ErrTooManyAttempts   = errors.New("too many login attempts, try again later")
	errInvalidPIN        = core.NewValidationError(nil, core.FieldError{Field: "pin", Error: pinText})
	errCannotDemoteSelf  = core.NewValidationError(nil, core.FieldError{Field: "role", Error: "an admin cannot demote themselves"})
	errCannotDisableSelf = core.NewValidationError(nil, core.FieldError{Field: "is_active", Error: "an admin cannot deactivate themselves"})
)

type (
	Repository interface {
		CreateGym(ctx context.Context, g Gym) (Gym, error)
		// GetGym returns the gym with id if the scope may see it, ErrNotFound otherwise.
		GetGym(ctx context.Context, scope core.Scope, id string) (Gym, error)
		// GetGymByPINLookup is the only unscoped lookup: it resolves the tenant at login.
		GetGymByPINLookup(ctx context.Context, lookup string) (Gym, error)
		QueryGyms(ctx context.Context, scope core.Scope, filter *QueryFilter) ([]Gym, error)
		UpdateGym(ctx context.Context, scope core.Scope, g Gym) (Gym, error)
	}

	Service interface {
		// Authenticate resolves exactly one active gym by PIN. origin keys the attempt throttling.
		Authenticate(ctx context.Context, pin, origin string) (Gym, error)
		Create(ctx context.Context, scope core.Scope, ng NewGym) (Gym, error)
		Get(ctx context.Context, scope core.Scope, id string) (Gym, error)
		Query(ctx context.Context, scope core.Scope, filter *QueryFilter) ([]Gym, error)
		ResetPIN(ctx context.Context, scope core.Scope, id, pin string) (Gym, error)
		SetActive(ctx context.Context, scope core.Scope, id string, active bool) (Gym, error)
		SetRole(ctx context.Context, scope core.Scope, id, role string) (Gym, error)
	}

	service struct {
		repo    Repository
		limiter core.AttemptLimiter
		conf    *core.Config
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository, limiter core.AttemptLimiter, conf *core.Config) Service {
	return &service{repo: repo, limiter: limiter, conf: conf}
}

func (svc *service) Authenticate(ctx context.Context, pin, origin string) (Gym, error) {
	key := "login:" + origin
	if svc.limiter != nil {
		ok, err := svc.limiter.Allow(ctx, key)
		if err != nil {
			return Gym{}, errors.Wrap(err, "checking login attempts")
		}
		if !ok {
			return Gym{}, ErrTooManyAttempts
		}
	}

	pin = core.CleanString(pin)
	if pin == "" {
		return Gym{}, ErrNotFound
	}
	g, err := svc.repo.GetGymByPINLookup(ctx, PINLookup(pin, svc.conf.SecretKey))
	if err != nil {
		return Gym{}, errors.Wrap(err, "finding gym by PIN")
	}
	if err = g.CheckPIN(pin); err != nil || !g.IsActive {
		return Gym{}, ErrNotFound
	}

	if svc.limiter != nil {
		if err = svc.limiter.Reset(ctx, key); err != nil {
			return Gym{}, errors.Wrap(err, "resetting login attempts")
		}
	}
	return g, nil
}

func (svc *service) Create(ctx context.Context, scope core.Scope, ng NewGym) (Gym, error) {
	if err := scope.RequireAdmin(); err != nil {
		return Gym{}, err
	}
	if err := svc.checkPINAvailable(ctx, ng.PIN, ""); err != nil {
		return Gym{}, err
	}

	now := time.Now().UTC()
	g := Gym{
		Name:      ng.Name,
		Location:  ng.Location,
		Email:     ng.Email,
		Role:      ng.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if g.Role == "" {
		g.Role = RoleMember
	}
	if err := g.SetPIN(ng.PIN, svc.conf.SecretKey); err != nil {
		return Gym{}, errors.Wrap(err, "hashing PIN")
	}
	return svc.repo.CreateGym(ctx, g)
}

// checkPINAvailable makes sure no other gym than exclID logs in with pin.
func (svc *service) checkPINAvailable(ctx context.Context, pin, exclID string) error {
	existing, err := svc.repo.GetGymByPINLookup(ctx, PINLookup(pin, svc.conf.SecretKey))
	switch {
	case errors.Cause(err) == ErrNotFound:
		return nil
	case err != nil:
		return errors.Wrap(err, "checking PIN uniqueness")
	case existing.ID != exclID:
		return core.NewValidationError(ErrPINInUse, core.FieldError{Field: "pin", Error: ErrPINInUse.Error()})
	}
	return nil
}

func (svc *service) Get(ctx context.Context, scope core.Scope, id string) (Gym, error) {
	if err := scope.Check(); err != nil {
		return Gym{}, err
	}
	return svc.repo.GetGym(ctx, scope, id)
}

func (svc *service) Query(ctx context.Context, scope core.Scope, filter *QueryFilter) ([]Gym, error) {
	if err := scope.Check(); err != nil {
		return nil, err
	}
	return svc.repo.QueryGyms(ctx, scope, filter)
}

func (svc *service) ResetPIN(ctx context.Context, scope core.Scope, id, pin string) (Gym, error) {
	if err := scope.RequireAdmin(); err != nil {
		return Gym{}, err
	}
	pin = core.CleanString(pin)
	if !ValidPIN(pin) {
		return Gym{}, errInvalidPIN
	}
	g, err := svc.repo.GetGym(ctx, scope, id)
	if err != nil {
		return Gym{}, errors.Wrap(err, "finding gym")
	}
	if err = svc.checkPINAvailable(ctx, pin, g.ID); err != nil {
		return Gym{}, err
	}
	if err = g.SetPIN(pin, svc.conf.SecretKey); err != nil {
		return Gym{}, errors.Wrap(err, "hashing PIN")
	}
	g.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateGym(ctx, scope, g)
}

func (svc *service) SetActive(ctx context.Context, scope core.Scope, id string, active bool) (Gym, error) {
	if err := scope.RequireAdmin(); err != nil {
		return Gym{}, err
	}
	if !active && id == scope.GymID {
		return Gym{}, errCannotDisableSelf
	}
	g, err := svc.repo.GetGym(ctx, scope, id)
	if err != nil {
		return Gym{}, errors.Wrap(err, "finding gym")
	}
	g.IsActive = active
	g.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateGym(ctx, scope, g)
}

func (svc *service) SetRole(ctx context.Context, scope core.Scope, id, role string) (Gym, error) {
	if err := scope.RequireAdmin(); err != nil {
		return Gym{}, err
	}
	role = core.CleanString(role, true /* lower */)
	if role != RoleAdmin && role != RoleMember {
		return Gym{}, core.NewValidationError(nil, core.FieldError{Field: "role", Error: "must be one of [admin member]"})
	}
	if role != RoleAdmin && id == scope.GymID {
		return Gym{}, errCannotDemoteSelf
	}
	g, err := svc.repo.GetGym(ctx, scope, id)
	if err != nil {
		return Gym{}, errors.Wrap(err, "finding gym")
	}
	g.Role = role
	g.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateGym(ctx, scope, g)
}
