package format

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/gymhub/contentdesk/core"
)

var (
	// errors
	ErrNotFound  = core.NewNotFoundError("content format not found")
	ErrKeyExists = errors.New("a content format with this key already exists")
)

type (
	Repository interface {
		CreateFormat(ctx context.Context, f Format) (Format, error)
		GetFormat(ctx context.Context, id string) (Format, error)
		GetFormatByKey(ctx context.Context, key string) (Format, error)
		QueryFormats(ctx context.Context, filter *QueryFilter) ([]Format, error)
		UpdateFormat(ctx context.Context, f Format) (Format, error)
	}

	// Service manages the content format catalog. The catalog is shared by all tenants and only admins edit it.
	Service interface {
		Create(ctx context.Context, scope core.Scope, nf NewFormat) (Format, error)
		Get(ctx context.Context, id string) (Format, error)
		GetByKey(ctx context.Context, key string) (Format, error)
		// ByKeys returns the formats for keys, in order; unknown keys are reported in missing.
		ByKeys(ctx context.Context, keys []string) (formats []Format, missing []string, err error)
		Query(ctx context.Context, filter *QueryFilter) ([]Format, error)
		Update(ctx context.Context, scope core.Scope, id string, uf UpdateFormat) (Format, error)
		// Seed adds the missing entries of DefaultCatalog and returns how many were created.
		Seed(ctx context.Context, scope core.Scope) (int, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, scope core.Scope, nf NewFormat) (Format, error) {
	if err := scope.RequireAdmin(); err != nil {
		return Format{}, err
	}
	_, err := svc.repo.GetFormatByKey(ctx, nf.Key)
	if err == nil {
		return Format{}, core.NewValidationError(ErrKeyExists, core.FieldError{Field: "format_key", Error: ErrKeyExists.Error()})
	} else if errors.Cause(err) != ErrNotFound {
		return Format{}, errors.Wrap(err, "checking format key")
	}

	now := time.Now().UTC()
	f := Format{
		Key:            nf.Key,
		Title:          nf.Title,
		Type:           nf.Type,
		Dimensions:     nf.Dimensions,
		Duration:       nf.Duration,
		TotalRequired:  nf.TotalRequired,
		SetupPlanning:  nf.SetupPlanning,
		ProductionTips: nf.ProductionTips,
		Examples:       nf.Examples,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return svc.repo.CreateFormat(ctx, f)
}

func (svc *service) Get(ctx context.Context, id string) (Format, error) {
	return svc.repo.GetFormat(ctx, id)
}

func (svc *service) GetByKey(ctx context.Context, key string) (Format, error) {
	return svc.repo.GetFormatByKey(ctx, core.CleanString(key, true /* lower */))
}

func (svc *service) ByKeys(ctx context.Context, keys []string) ([]Format, []string, error) {
	keys = core.CleanStrings(keys, true /* lower */)
	if len(keys) == 0 {
		return nil, nil, nil
	}
	found, err := svc.repo.QueryFormats(ctx, &QueryFilter{Keys: keys})
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying formats by key")
	}
	byKey := make(map[string]Format, len(found))
	for _, f := range found {
		byKey[f.Key] = f
	}

	var missing []string
	formats := make([]Format, 0, len(keys))
	for _, key := range keys {
		if f, ok := byKey[key]; ok {
			formats = append(formats, f)
		} else {
			missing = append(missing, key)
		}
	}
	return formats, missing, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter) ([]Format, error) {
	return svc.repo.QueryFormats(ctx, filter)
}

func (svc *service) Update(ctx context.Context, scope core.Scope, id string, uf UpdateFormat) (Format, error) {
	if err := scope.RequireAdmin(); err != nil {
		return Format{}, err
	}
	f, err := svc.repo.GetFormat(ctx, id)
	if err != nil {
		return Format{}, errors.Wrap(err, "finding format")
	}
	if uf.Title != "" {
		f.Title = uf.Title
	}
	if uf.Dimensions != nil {
		f.Dimensions = *uf.Dimensions
	}
	if uf.Duration != nil {
		f.Duration = *uf.Duration
	}
	if uf.TotalRequired != nil {
		f.TotalRequired = *uf.TotalRequired
	}
	if uf.SetupPlanning != nil {
		f.SetupPlanning = *uf.SetupPlanning
	}
	if uf.ProductionTips != nil {
		f.ProductionTips = *uf.ProductionTips
	}
	if uf.Examples != nil {
		f.Examples = uf.Examples
	}
	f.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateFormat(ctx, f)
}

func (svc *service) Seed(ctx context.Context, scope core.Scope) (int, error) {
	if err := scope.RequireAdmin(); err != nil {
		return 0, err
	}
	var created int
	for _, nf := range DefaultCatalog {
		if _, err := svc.repo.GetFormatByKey(ctx, nf.Key); err == nil {
			continue
		} else if errors.Cause(err) != ErrNotFound {
			return created, errors.Wrap(err, "checking format key")
		}
		if _, err := svc.Create(ctx, scope, nf); err != nil {
			return created, errors.Wrapf(err, "creating format %s", nf.Key)
		}
		created++
	}
	return created, nil
}
