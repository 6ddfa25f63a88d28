package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/gymhub/contentdesk/core"
	"github.com/gymhub/contentdesk/core/submission"
)

const submissionColumns = "id, format_id, gym_id, file_name, file_path, file_type, file_url, status, " +
	"feedback_notes, replaces_id, superseded, submitted_at, reviewed_at"

type submissionRow struct {
	ID            string      `db:"id"`
	FormatID      string      `db:"format_id"`
	GymID         string      `db:"gym_id"`
	FileName      string      `db:"file_name"`
	FilePath      string      `db:"file_path"`
	FileType      null.String `db:"file_type"`
	FileURL       string      `db:"file_url"`
	Status        string      `db:"status"`
	FeedbackNotes null.String `db:"feedback_notes"`
	ReplacesID    null.String `db:"replaces_id"`
	Superseded    bool        `db:"superseded"`
	SubmittedAt   time.Time   `db:"submitted_at"`
	ReviewedAt    null.Time   `db:"reviewed_at"`
}

type submissionRepository struct {
	store
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(db *sqlx.DB) submission.Repository {
	return &submissionRepository{store{db: db}}
}

func (repo submissionRepository) boil(s submission.Submission) submissionRow {
	return submissionRow{
		ID:            s.ID,
		FormatID:      s.FormatID,
		GymID:         s.GymID,
		FileName:      s.FileName,
		FilePath:      s.FilePath,
		FileType:      nullString(s.FileType),
		FileURL:       s.FileURL,
		Status:        s.Status,
		FeedbackNotes: nullString(s.FeedbackNotes),
		ReplacesID:    nullString(s.ReplacesID),
		Superseded:    s.Superseded,
		SubmittedAt:   s.SubmittedAt.UTC(),
		ReviewedAt:    null.TimeFromPtr(s.ReviewedAt),
	}
}

func (repo submissionRepository) unboil(row submissionRow) submission.Submission {
	return submission.Submission{
		ID:            row.ID,
		FormatID:      row.FormatID,
		GymID:         row.GymID,
		FileName:      row.FileName,
		FilePath:      row.FilePath,
		FileType:      row.FileType.String,
		FileURL:       row.FileURL,
		Status:        row.Status,
		FeedbackNotes: row.FeedbackNotes.String,
		ReplacesID:    row.ReplacesID.String,
		Superseded:    row.Superseded,
		SubmittedAt:   row.SubmittedAt.UTC(),
		ReviewedAt:    utcPtr(row.ReviewedAt),
	}
}

// trapNoRowsErr maps "no rows" to submission.ErrNotFound
func (repo submissionRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return submission.ErrNotFound
	}
	return dbErr(err, msg)
}

func (repo submissionRepository) get(ctx context.Context, tx *sqlx.Tx, scope core.Scope, id string) (submission.Submission, error) {
	w := where{}
	w.add("id = ?", id)
	w.tenant(scope, "gym_id")

	var row submissionRow
	q := tx.Rebind("SELECT " + submissionColumns + " FROM submissions" + w.String())
	if err := tx.GetContext(ctx, &row, q, w.args...); err != nil {
		return submission.Submission{}, repo.trapNoRowsErr(err, "selecting submission")
	}
	return repo.unboil(row), nil
}

func (repo submissionRepository) CreateSubmissions(
	ctx context.Context,
	scope core.Scope,
	subs []submission.Submission,
	supersededID string,
) ([]submission.Submission, error) {
	for _, s := range subs {
		if err := scope.RequireAccess(s.GymID); err != nil {
			return nil, err
		}
	}

	out := make([]submission.Submission, 0, len(subs))
	err := repo.inTx(ctx, scope, func(tx *sqlx.Tx) error {
		if supersededID != "" {
			w := where{}
			w.add("id = ?", supersededID)
			w.add("superseded = ?", false)
			w.tenant(scope, "gym_id")
			args := append([]interface{}{true}, w.args...)
			res, err := tx.ExecContext(ctx, tx.Rebind("UPDATE submissions SET superseded = ?"+w.String()), args...)
			if err != nil {
				return dbErr(err, "superseding submission")
			}
			n, err := affected(res)
			if err != nil {
				return err
			}
			if n == 0 {
				return submission.ErrNotFound
			}
		}

		q := "INSERT INTO submissions (" + submissionColumns + ") VALUES (:id, :format_id, :gym_id, :file_name, " +
			":file_path, :file_type, :file_url, :status, :feedback_notes, :replaces_id, :superseded, :submitted_at, :reviewed_at)"
		for _, s := range subs {
			if s.ID == "" {
				s.ID = newID()
			}
			if _, err := tx.NamedExecContext(ctx, q, repo.boil(s)); err != nil {
				return dbErr(err, "inserting submission "+s.FileName)
			}
			out = append(out, s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (repo submissionRepository) GetSubmission(ctx context.Context, scope core.Scope, id string) (s submission.Submission, err error) {
	err = repo.inTx(ctx, scope, func(tx *sqlx.Tx) error {
		s, err = repo.get(ctx, tx, scope, id)
		return err
	})
	return s, err
}

func (repo submissionRepository) QuerySubmissions(
	ctx context.Context,
	scope core.Scope,
	filter *submission.QueryFilter,
) ([]submission.Submission, error) {
	var w where
	w.tenant(scope, "gym_id")
	if filter != nil {
		if filter.GymID != "" {
			w.add("gym_id = ?", filter.GymID)
		}
		if filter.FormatID != "" {
			w.add("format_id = ?", filter.FormatID)
		}
		if filter.Status != "" {
			w.add("status = ?", filter.Status)
		}
		if !filter.IncludeSuperseded {
			w.add("superseded = ?", false)
		}
	}

	var rows []submissionRow
	err := repo.inTx(ctx, scope, func(tx *sqlx.Tx) error {
		q := tx.Rebind("SELECT " + submissionColumns + " FROM submissions" + w.String() + " ORDER BY submitted_at DESC, id ASC")
		return dbErr(tx.SelectContext(ctx, &rows, q, w.args...), "selecting submissions")
	})
	if err != nil {
		return nil, err
	}

	subs := make([]submission.Submission, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, repo.unboil(row))
	}
	return subs, nil
}

func (repo submissionRepository) ReviewSubmission(ctx context.Context, scope core.Scope, s submission.Submission) (out submission.Submission, err error) {
	if err = scope.RequireAdmin(); err != nil {
		return submission.Submission{}, err
	}
	row := repo.boil(s)

	err = repo.inTx(ctx, scope, func(tx *sqlx.Tx) error {
		q := "UPDATE submissions SET status = ?, feedback_notes = ?, reviewed_at = ? " +
			"WHERE id = ? AND status = ? AND superseded = ?"
		res, err := tx.ExecContext(ctx, tx.Rebind(q),
			row.Status, row.FeedbackNotes, row.ReviewedAt, s.ID, submission.StatusPending, false)
		if err != nil {
			return dbErr(err, "reviewing submission")
		}
		n, err := affected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			if _, err = repo.get(ctx, tx, scope, s.ID); err != nil {
				return err
			}
			return submission.ErrNotPending
		}
		out, err = repo.get(ctx, tx, scope, s.ID)
		return err
	})
	return out, err
}
