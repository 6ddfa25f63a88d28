package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/gymhub/contentdesk/core"
	"github.com/gymhub/contentdesk/core/assignment"
)

type templateRow struct {
	ID              string      `db:"id"`
	Title           string      `db:"title"`
	Description     null.String `db:"description"`
	Priority        string      `db:"priority"`
	FormatsRequired jsonList    `db:"formats_required"`
	ClipsRequired   null.Int    `db:"clips_required"`
	SetupPlanning   null.String `db:"setup_planning"`
	ProductionTips  null.String `db:"production_tips"`
	CreatedByID     null.String `db:"created_by_id"`
	CreatedAt       time.Time   `db:"created_at"`
}

type distributionRow struct {
	ID                string      `db:"id"`
	TemplateID        string      `db:"template_id"`
	GymID             string      `db:"gym_id"`
	CustomTitle       null.String `db:"custom_title"`
	CustomDescription null.String `db:"custom_description"`
	DueDate           time.Time   `db:"due_date"`
	Status            string      `db:"status"`
	PriorityOverride  null.String `db:"priority_override"`
	ReviewNotes       null.String `db:"review_notes"`
	CreatedAt         time.Time   `db:"created_at"`
	AcknowledgedAt    null.Time   `db:"acknowledged_at"`
	StartedAt         null.Time   `db:"started_at"`
	SubmittedAt       null.Time   `db:"submitted_at"`
	ReviewedAt        null.Time   `db:"reviewed_at"`
}

// distributionView is a distribution joined with its template and gym.
type distributionView struct {
	distributionRow
	GymName          null.String `db:"gym_name"`
	TTitle           string      `db:"t_title"`
	TDescription     null.String `db:"t_description"`
	TPriority        string      `db:"t_priority"`
	TFormatsRequired jsonList    `db:"t_formats_required"`
	TClipsRequired   null.Int    `db:"t_clips_required"`
	TSetupPlanning   null.String `db:"t_setup_planning"`
	TProductionTips  null.String `db:"t_production_tips"`
	TCreatedByID     null.String `db:"t_created_by_id"`
	TCreatedAt       time.Time   `db:"t_created_at"`
}

const distributionSelect = `SELECT d.id, d.template_id, d.gym_id, d.custom_title, d.custom_description, d.due_date,
       d.status, d.priority_override, d.review_notes, d.created_at, d.acknowledged_at, d.started_at,
       d.submitted_at, d.reviewed_at, g.name AS gym_name,
       t.title AS t_title, t.description AS t_description, t.priority AS t_priority,
       t.formats_required AS t_formats_required, t.clips_required AS t_clips_required,
       t.setup_planning AS t_setup_planning, t.production_tips AS t_production_tips,
       t.created_by_id AS t_created_by_id, t.created_at AS t_created_at
FROM distributions d
JOIN templates t ON t.id = d.template_id
LEFT JOIN gyms g ON g.id = d.gym_id`

var distributionOrdering = map[string]string{
	"due_date":   "d.due_date",
	"created_at": "d.created_at",
	"status":     "d.status",
	"gym_name":   "g.name",
}

type assignmentRepository struct {
	store
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *sqlx.DB) assignment.Repository {
	return &assignmentRepository{store{db: db}}
}

func (repo assignmentRepository) boilTemplate(t assignment.Template) templateRow {
	return templateRow{
		ID:              t.ID,
		Title:           t.Title,
		Description:     nullString(t.Description),
		Priority:        t.Priority,
		FormatsRequired: jsonList(t.FormatsRequired),
		ClipsRequired:   null.IntFromPtr(t.ClipsRequired),
		SetupPlanning:   nullString(t.SetupPlanning),
		ProductionTips:  nullString(t.ProductionTips),
		CreatedByID:     nullString(t.CreatedByID),
		CreatedAt:       t.CreatedAt.UTC(),
	}
}

func (repo assignmentRepository) boil(d assignment.Distribution) distributionRow {
	return distributionRow{
		ID:                d.ID,
		TemplateID:        d.TemplateID,
		GymID:             d.GymID,
		CustomTitle:       nullString(d.CustomTitle),
		CustomDescription: nullString(d.CustomDescription),
		DueDate:           d.DueDate.UTC(),
		Status:            string(d.Status),
		PriorityOverride:  nullString(d.PriorityOverride),
		ReviewNotes:       nullString(d.ReviewNotes),
		CreatedAt:         d.CreatedAt.UTC(),
		AcknowledgedAt:    null.TimeFromPtr(d.AcknowledgedAt),
		StartedAt:         null.TimeFromPtr(d.StartedAt),
		SubmittedAt:       null.TimeFromPtr(d.SubmittedAt),
		ReviewedAt:        null.TimeFromPtr(d.ReviewedAt),
	}
}

func (repo assignmentRepository) unboil(v distributionView) assignment.Distribution {
	return assignment.Distribution{
		ID:                v.ID,
		TemplateID:        v.TemplateID,
		GymID:             v.GymID,
		GymName:           v.GymName.String,
		CustomTitle:       v.CustomTitle.String,
		CustomDescription: v.CustomDescription.String,
		DueDate:           v.DueDate.UTC(),
		Status:            assignment.Status(v.Status),
		PriorityOverride:  v.PriorityOverride.String,
		ReviewNotes:       v.ReviewNotes.String,
		CreatedAt:         v.CreatedAt.UTC(),
		AcknowledgedAt:    utcPtr(v.AcknowledgedAt),
		StartedAt:         utcPtr(v.StartedAt),
		SubmittedAt:       utcPtr(v.SubmittedAt),
		ReviewedAt:        utcPtr(v.ReviewedAt),
		Template: assignment.Template{
			ID:              v.TemplateID,
			Title:           v.TTitle,
			Description:     v.TDescription.String,
			Priority:        v.TPriority,
			FormatsRequired: []string(v.TFormatsRequired),
			ClipsRequired:   v.TClipsRequired.Ptr(),
			SetupPlanning:   v.TSetupPlanning.String,
			ProductionTips:  v.TProductionTips.String,
			CreatedByID:     v.TCreatedByID.String,
			CreatedAt:       v.TCreatedAt.UTC(),
		},
	}
}

// trapNoRowsErr maps "no rows" to assignment.ErrNotFound
func (repo assignmentRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return assignment.ErrNotFound
	}
	return dbErr(err, msg)
}

func (repo assignmentRepository) load(ctx context.Context, tx *sqlx.Tx, scope core.Scope, id string) (assignment.Distribution, error) {
	w := where{}
	w.add("d.id = ?", id)
	w.tenant(scope, "d.gym_id")

	var v distributionView
	if err := tx.GetContext(ctx, &v, tx.Rebind(distributionSelect+w.String()), w.args...); err != nil {
		return assignment.Distribution{}, repo.trapNoRowsErr(err, "selecting distribution")
	}
	return repo.unboil(v), nil
}

func (repo assignmentRepository) CreateAssignment(
	ctx context.Context,
	scope core.Scope,
	t assignment.Template,
	ds []assignment.Distribution,
) (assignment.Template, []assignment.Distribution, error) {
	if err := scope.RequireAdmin(); err != nil {
		return assignment.Template{}, nil, err
	}
	t.ID = newID()
	out := make([]assignment.Distribution, 0, len(ds))

	err := repo.inTx(ctx, scope, func(tx *sqlx.Tx) error {
		q := `INSERT INTO templates (id, title, description, priority, formats_required, clips_required,
			setup_planning, production_tips, created_by_id, created_at)
			VALUES (:id, :title, :description, :priority, :formats_required, :clips_required,
			:setup_planning, :production_tips, :created_by_id, :created_at)`
		if _, err := tx.NamedExecContext(ctx, q, repo.boilTemplate(t)); err != nil {
			return dbErr(err, "inserting template")
		}

		q = `INSERT INTO distributions (id, template_id, gym_id, custom_title, custom_description, due_date, status,
			priority_override, review_notes, created_at, acknowledged_at, started_at, submitted_at, reviewed_at)
			VALUES (:id, :template_id, :gym_id, :custom_title, :custom_description, :due_date, :status,
			:priority_override, :review_notes, :created_at, :acknowledged_at, :started_at, :submitted_at, :reviewed_at)`
		for _, d := range ds {
			d.ID = newID()
			d.TemplateID = t.ID
			if _, err := tx.NamedExecContext(ctx, q, repo.boil(d)); err != nil {
				return dbErr(err, "inserting distribution for gym "+d.GymID)
			}
			stored, err := repo.load(ctx, tx, scope, d.ID)
			if err != nil {
				return err
			}
			out = append(out, stored)
		}
		return nil
	})
	if err != nil {
		return assignment.Template{}, nil, err
	}
	return t, out, nil
}

func (repo assignmentRepository) GetDistribution(ctx context.Context, scope core.Scope, id string) (d assignment.Distribution, err error) {
	err = repo.inTx(ctx, scope, func(tx *sqlx.Tx) error {
		d, err = repo.load(ctx, tx, scope, id)
		return err
	})
	return d, err
}

func (repo assignmentRepository) QueryDistributions(
	ctx context.Context,
	scope core.Scope,
	filter *assignment.QueryFilter,
	ordering []core.DBOrdering,
) ([]assignment.Distribution, error) {
	var w where
	w.tenant(scope, "d.gym_id")
	if filter != nil {
		if filter.GymID != "" {
			w.add("d.gym_id = ?", filter.GymID)
		}
		if filter.TemplateID != "" {
			w.add("d.template_id = ?", filter.TemplateID)
		}
		if statuses := filter.Statuses(); len(statuses) > 0 {
			values := make([]string, 0, len(statuses))
			for _, st := range statuses {
				values = append(values, string(st))
			}
			w.add("d.status IN (?)", values)
		}
	}
	order := core.OrderBy(ordering, distributionOrdering, "d.due_date ASC")

	var views []distributionView
	err := repo.inTx(ctx, scope, func(tx *sqlx.Tx) error {
		q, args, err := sqlx.In(distributionSelect+w.String()+" ORDER BY "+order+", d.id ASC", w.args...)
		if err != nil {
			return errors.Wrap(err, "expanding distribution query")
		}
		return dbErr(tx.SelectContext(ctx, &views, tx.Rebind(q), args...), "selecting distributions")
	})
	if err != nil {
		return nil, err
	}

	dists := make([]assignment.Distribution, 0, len(views))
	for _, v := range views {
		dists = append(dists, repo.unboil(v))
	}
	return dists, nil
}

func (repo assignmentRepository) UpdateStatus(
	ctx context.Context,
	scope core.Scope,
	from assignment.Status,
	d assignment.Distribution,
) (out assignment.Distribution, err error) {
	if err = scope.RequireAccess(d.GymID); err != nil {
		return assignment.Distribution{}, err
	}
	row := repo.boil(d)

	err = repo.inTx(ctx, scope, func(tx *sqlx.Tx) error {
		w := where{}
		w.add("id = ?", d.ID)
		w.add("status = ?", string(from))
		w.tenant(scope, "gym_id")
		args := append([]interface{}{
			row.Status, row.AcknowledgedAt, row.StartedAt, row.SubmittedAt, row.ReviewedAt, row.ReviewNotes,
		}, w.args...)
		q := "UPDATE distributions SET status = ?, acknowledged_at = ?, started_at = ?, submitted_at = ?, " +
			"reviewed_at = ?, review_notes = ?" + w.String()

		res, err := tx.ExecContext(ctx, tx.Rebind(q), args...)
		if err != nil {
			return dbErr(err, "updating distribution status")
		}
		n, err := affected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			// either gone or moved by someone else
			if _, err = repo.load(ctx, tx, scope, d.ID); err != nil {
				return err
			}
			return assignment.ErrStatusChanged
		}
		out, err = repo.load(ctx, tx, scope, d.ID)
		return err
	})
	return out, err
}

func (repo assignmentRepository) UpdateDueDate(
	ctx context.Context,
	scope core.Scope,
	id string,
	dueDate time.Time,
) (out assignment.Distribution, err error) {
	if err = scope.RequireAdmin(); err != nil {
		return assignment.Distribution{}, err
	}
	err = repo.inTx(ctx, scope, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind("UPDATE distributions SET due_date = ? WHERE id = ?"), dueDate.UTC(), id)
		if err != nil {
			return dbErr(err, "updating due date")
		}
		n, err := affected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			return assignment.ErrNotFound
		}
		out, err = repo.load(ctx, tx, scope, id)
		return err
	})
	return out, err
}
