package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/gymhub/contentdesk/core"
	"github.com/gymhub/contentdesk/core/gym"
)

const gymColumns = "id, name, location, email, role, is_active, pin_hash, pin_lookup, created_at, updated_at"

type gymRow struct {
	ID        string      `db:"id"`
	Name      string      `db:"name"`
	Location  null.String `db:"location"`
	Email     null.String `db:"email"`
	Role      string      `db:"role"`
	IsActive  bool        `db:"is_active"`
	PINHash   []byte      `db:"pin_hash"`
	PINLookup string      `db:"pin_lookup"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

type gymRepository struct {
	store
}

var _ gym.Repository = (*gymRepository)(nil) // interface compliance check

func NewGymRepository(db *sqlx.DB) gym.Repository {
	return &gymRepository{store{db: db}}
}

func (repo gymRepository) boil(g gym.Gym) gymRow {
	return gymRow{
		ID:        g.ID,
		Name:      g.Name,
		Location:  nullString(g.Location),
		Email:     nullString(g.Email),
		Role:      g.Role,
		IsActive:  g.IsActive,
		PINHash:   g.PINHash,
		PINLookup: g.PINLookup,
		CreatedAt: g.CreatedAt.UTC(),
		UpdatedAt: g.UpdatedAt.UTC(),
	}
}

func (repo gymRepository) unboil(row gymRow) gym.Gym {
	return gym.Gym{
		ID:        row.ID,
		Name:      row.Name,
		Location:  row.Location.String,
		Email:     row.Email.String,
		Role:      row.Role,
		IsActive:  row.IsActive,
		PINHash:   row.PINHash,
		PINLookup: row.PINLookup,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

// trapNoRowsErr maps "no rows" to gym.ErrNotFound
func (repo gymRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return gym.ErrNotFound
	}
	return dbErr(err, msg)
}

func (repo gymRepository) trapPINErr(err error, msg string) error {
	if isUniqueViolation(err) {
		return core.NewValidationError(gym.ErrPINInUse, core.FieldError{Field: "pin", Error: gym.ErrPINInUse.Error()})
	}
	return dbErr(err, msg)
}

func (repo gymRepository) CreateGym(ctx context.Context, g gym.Gym) (gym.Gym, error) {
	if g.ID == "" {
		g.ID = newID()
	}
	q := "INSERT INTO gyms (" + gymColumns + ") VALUES " +
		"(:id, :name, :location, :email, :role, :is_active, :pin_hash, :pin_lookup, :created_at, :updated_at)"
	if _, err := repo.db.NamedExecContext(ctx, q, repo.boil(g)); err != nil {
		return gym.Gym{}, repo.trapPINErr(err, "inserting gym")
	}
	return g, nil
}

func (repo gymRepository) GetGym(ctx context.Context, scope core.Scope, id string) (gym.Gym, error) {
	if err := scope.Check(); err != nil {
		return gym.Gym{}, err
	}
	if !scope.CanAccess(id) {
		return gym.Gym{}, gym.ErrNotFound
	}
	var row gymRow
	q := repo.db.Rebind("SELECT " + gymColumns + " FROM gyms WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return gym.Gym{}, repo.trapNoRowsErr(err, "selecting gym")
	}
	return repo.unboil(row), nil
}

func (repo gymRepository) GetGymByPINLookup(ctx context.Context, lookup string) (gym.Gym, error) {
	var row gymRow
	q := repo.db.Rebind("SELECT " + gymColumns + " FROM gyms WHERE pin_lookup = ?")
	if err := repo.db.GetContext(ctx, &row, q, lookup); err != nil {
		return gym.Gym{}, repo.trapNoRowsErr(err, "selecting gym by PIN")
	}
	return repo.unboil(row), nil
}

func (repo gymRepository) QueryGyms(ctx context.Context, scope core.Scope, filter *gym.QueryFilter) ([]gym.Gym, error) {
	if err := scope.Check(); err != nil {
		return nil, err
	}
	var w where
	w.tenant(scope, "id")
	if filter != nil {
		if filter.Role != "" {
			w.add("role = ?", filter.Role)
		}
		if filter.IsActive != nil {
			w.add("is_active = ?", *filter.IsActive)
		}
		if s := strings.ToLower(filter.Search); s != "" {
			w.add("(LOWER(name) LIKE ? OR LOWER(COALESCE(location, '')) LIKE ?)", "%"+s+"%", "%"+s+"%")
		}
	}

	var rows []gymRow
	q := repo.db.Rebind("SELECT " + gymColumns + " FROM gyms" + w.String() + " ORDER BY name ASC, id ASC")
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, dbErr(err, "selecting gyms")
	}
	gyms := make([]gym.Gym, 0, len(rows))
	for _, row := range rows {
		gyms = append(gyms, repo.unboil(row))
	}
	return gyms, nil
}

func (repo gymRepository) UpdateGym(ctx context.Context, scope core.Scope, g gym.Gym) (gym.Gym, error) {
	if err := scope.RequireAccess(g.ID); err != nil {
		return gym.Gym{}, err
	}
	q := "UPDATE gyms SET name = :name, location = :location, email = :email, role = :role, is_active = :is_active, " +
		"pin_hash = :pin_hash, pin_lookup = :pin_lookup, updated_at = :updated_at WHERE id = :id"
	res, err := repo.db.NamedExecContext(ctx, q, repo.boil(g))
	if err != nil {
		return gym.Gym{}, repo.trapPINErr(err, "updating gym")
	}
	n, err := affected(res)
	if err != nil {
		return gym.Gym{}, err
	}
	if n == 0 {
		return gym.Gym{}, gym.ErrNotFound
	}
	return g, nil
}
