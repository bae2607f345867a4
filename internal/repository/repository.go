package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/unitutor-api/pkg/database"
)

var (
	// ErrOverlap is returned when an exclusion constraint rejects a booking.
	ErrOverlap = errors.New("booking overlaps an existing reservation")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
	// ErrReferenced is returned when a foreign key blocks a write or delete.
	ErrReferenced = errors.New("record is referenced by other rows")
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// translate maps constraint violations onto repository sentinels.
func translate(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case database.IsExclusionViolation(err):
		return fmt.Errorf("%s: %w", op, ErrOverlap)
	case database.IsUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	case database.IsForeignKeyViolation(err):
		return fmt.Errorf("%s: %w", op, ErrReferenced)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func paginate(page, size int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > maxPageSize {
		size = defaultPageSize
	}
	return size, (page - 1) * size
}

// whereBuilder accumulates AND-ed conditions with positional arguments.
type whereBuilder struct {
	conditions []string
	args       []interface{}
}

// add appends a condition; each "?" in cond is replaced by the next $n placeholder.
func (w *whereBuilder) add(cond string, args ...interface{}) {
	for _, arg := range args {
		w.args = append(w.args, arg)
		cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.conditions = append(w.conditions, cond)
}

func (w *whereBuilder) clause() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conditions, " AND ")
}

func (w *whereBuilder) next() string {
	return fmt.Sprintf("$%d", len(w.args)+1)
}

func statusArray[S ~string](statuses []S) pq.StringArray {
	out := make(pq.StringArray, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// withTx runs fn inside a transaction, rolling back when fn fails.
func withTx(ctx context.Context, db *sqlx.DB, op string, fn func(*sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", op, err)
	}
	return nil
}
