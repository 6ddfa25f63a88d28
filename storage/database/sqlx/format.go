package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/gymhub/contentdesk/core"
	"github.com/gymhub/contentdesk/core/format"
)

const formatColumns = "id, format_key, title, format_type, dimensions, duration, total_required, " +
	"setup_planning, production_tips, examples, created_at, updated_at"

type formatRow struct {
	ID             string      `db:"id"`
	Key            string      `db:"format_key"`
	Title          string      `db:"title"`
	Type           string      `db:"format_type"`
	Dimensions     null.String `db:"dimensions"`
	Duration       null.String `db:"duration"`
	TotalRequired  int         `db:"total_required"`
	SetupPlanning  null.String `db:"setup_planning"`
	ProductionTips null.String `db:"production_tips"`
	Examples       jsonList    `db:"examples"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

// formatRepository serves the shared catalog: its rows belong to no tenant.
type formatRepository struct {
	store
}

var _ format.Repository = (*formatRepository)(nil) // interface compliance check

func NewFormatRepository(db *sqlx.DB) format.Repository {
	return &formatRepository{store{db: db}}
}

func (repo formatRepository) boil(f format.Format) formatRow {
	return formatRow{
		ID:             f.ID,
		Key:            f.Key,
		Title:          f.Title,
		Type:           f.Type,
		Dimensions:     nullString(f.Dimensions),
		Duration:       nullString(f.Duration),
		TotalRequired:  f.TotalRequired,
		SetupPlanning:  nullString(f.SetupPlanning),
		ProductionTips: nullString(f.ProductionTips),
		Examples:       jsonList(f.Examples),
		CreatedAt:      f.CreatedAt.UTC(),
		UpdatedAt:      f.UpdatedAt.UTC(),
	}
}

func (repo formatRepository) unboil(row formatRow) format.Format {
	return format.Format{
		ID:             row.ID,
		Key:            row.Key,
		Title:          row.Title,
		Type:           row.Type,
		Dimensions:     row.Dimensions.String,
		Duration:       row.Duration.String,
		TotalRequired:  row.TotalRequired,
		SetupPlanning:  row.SetupPlanning.String,
		ProductionTips: row.ProductionTips.String,
		Examples:       []string(row.Examples),
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
}

// trapNoRowsErr maps "no rows" to format.ErrNotFound
func (repo formatRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return format.ErrNotFound
	}
	return dbErr(err, msg)
}

func (repo formatRepository) trapKeyErr(err error, msg string) error {
	if isUniqueViolation(err) {
		return core.NewValidationError(format.ErrKeyExists, core.FieldError{Field: "format_key", Error: format.ErrKeyExists.Error()})
	}
	return dbErr(err, msg)
}

func (repo formatRepository) CreateFormat(ctx context.Context, f format.Format) (format.Format, error) {
	if f.ID == "" {
		f.ID = newID()
	}
	q := "INSERT INTO formats (" + formatColumns + ") VALUES (:id, :format_key, :title, :format_type, :dimensions, " +
		":duration, :total_required, :setup_planning, :production_tips, :examples, :created_at, :updated_at)"
	if _, err := repo.db.NamedExecContext(ctx, q, repo.boil(f)); err != nil {
		return format.Format{}, repo.trapKeyErr(err, "inserting format")
	}
	return f, nil
}

func (repo formatRepository) get(ctx context.Context, col, value string) (format.Format, error) {
	var row formatRow
	q := repo.db.Rebind("SELECT " + formatColumns + " FROM formats WHERE " + col + " = ?")
	if err := repo.db.GetContext(ctx, &row, q, value); err != nil {
		return format.Format{}, repo.trapNoRowsErr(err, "selecting format")
	}
	return repo.unboil(row), nil
}

func (repo formatRepository) GetFormat(ctx context.Context, id string) (format.Format, error) {
	return repo.get(ctx, "id", id)
}

func (repo formatRepository) GetFormatByKey(ctx context.Context, key string) (format.Format, error) {
	return repo.get(ctx, "format_key", key)
}

func (repo formatRepository) QueryFormats(ctx context.Context, filter *format.QueryFilter) ([]format.Format, error) {
	var w where
	if filter != nil {
		if filter.Type != "" {
			w.add("format_type = ?", filter.Type)
		}
		if len(filter.Keys) > 0 {
			w.add("format_key IN (?)", filter.Keys)
		}
	}
	q, args, err := sqlx.In("SELECT "+formatColumns+" FROM formats"+w.String()+" ORDER BY format_key ASC", w.args...)
	if err != nil {
		return nil, errors.Wrap(err, "expanding format query")
	}

	var rows []formatRow
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, dbErr(err, "selecting formats")
	}
	formats := make([]format.Format, 0, len(rows))
	for _, row := range rows {
		formats = append(formats, repo.unboil(row))
	}
	return formats, nil
}

func (repo formatRepository) UpdateFormat(ctx context.Context, f format.Format) (format.Format, error) {
	q := "UPDATE formats SET title = :title, dimensions = :dimensions, duration = :duration, " +
		"total_required = :total_required, setup_planning = :setup_planning, production_tips = :production_tips, " +
		"examples = :examples, updated_at = :updated_at WHERE id = :id"
	res, err := repo.db.NamedExecContext(ctx, q, repo.boil(f))
	if err != nil {
		return format.Format{}, dbErr(err, "updating format")
	}
	n, err := affected(res)
	if err != nil {
		return format.Format{}, err
	}
	if n == 0 {
		return format.Format{}, format.ErrNotFound
	}
	return f, nil
}
