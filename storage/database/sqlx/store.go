package sqlxrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/gymhub/contentdesk/core"
)

// store runs queries bound to a tenant scope.
type store struct {
	db *sqlx.DB
}

func (s store) postgres() bool { return s.db.DriverName() == "postgres" }

// inTx runs fn in a transaction bound to scope. On postgres the scope is published to the
// row level security policies first; when that fails nothing runs.
func (s store) inTx(ctx context.Context, scope core.Scope, fn func(tx *sqlx.Tx) error) error {
	if err := scope.Check(); err != nil {
		return err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return dbErr(err, "beginning transaction")
	}
	if err = s.bindScope(ctx, tx, scope); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return dbErr(tx.Commit(), "committing transaction")
}

func (s store) bindScope(ctx context.Context, tx *sqlx.Tx, scope core.Scope) error {
	if !s.postgres() {
		return nil
	}
	admin := "off"
	if scope.Admin {
		admin = "on"
	}
	_, err := tx.ExecContext(ctx,
		"SELECT set_config('app.current_gym_id', $1, true), set_config('app.is_admin', $2, true)",
		scope.GymID, admin)
	if err != nil {
		return core.NewAuthorizationError("binding tenant scope: " + err.Error())
	}
	return nil
}

// where accumulates AND-ed conditions and their arguments.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

// tenant restricts col to the scope's gym unless the scope is admin.
func (w *where) tenant(scope core.Scope, col string) {
	if !scope.Admin {
		w.add(col+" = ?", scope.GymID)
	}
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// dbErr reports a failed record store call as an upstream error.
func dbErr(err error, op string) error {
	if err == nil {
		return nil
	}
	return core.NewUpstreamError(op, err)
}

func newID() string { return uuid.New().String() }

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func affected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	return n, dbErr(err, "counting affected rows")
}

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}

func utcPtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

// jsonList is a string list stored as a JSON array.
type jsonList []string

func (l jsonList) Value() (driver.Value, error) {
	if l == nil {
		l = jsonList{}
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *jsonList) Scan(src interface{}) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*l = jsonList{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.Errorf("cannot scan %T into a list", src)
	}
	var out []string
	if err := json.Unmarshal(b, &out); err != nil {
		return errors.Wrap(err, "decoding list")
	}
	if out == nil {
		out = []string{}
	}
	*l = out
	return nil
}
