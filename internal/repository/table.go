// Package repository provides the data access layer for profiles, comments, likes and accounts.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/pillow12360/eureka-ssul/internal/middleware"
	"github.com/pillow12360/eureka-ssul/internal/models"
	"github.com/pillow12360/eureka-ssul/internal/observability"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Filter is an equality predicate: every column must equal its value.
// A nil value matches NULL.
type Filter map[string]any

// Order sorts a selection by one column.
type Order struct {
	Column string
	Desc   bool
}

// Asc and Desc build orderings.
func Asc(column string) Order  { return Order{Column: column} }
func Desc(column string) Order { return Order{Column: column, Desc: true} }

// Table is the data access for one entity stored in one table.
// Every typed repository is a thin layer over a Table.
type Table[T any] struct {
	db       *gorm.DB
	name     string
	resource string
}

// NewTable binds entity type T to the named table. resource names the entity in errors.
func NewTable[T any](db *gorm.DB, name, resource string) *Table[T] {
	return &Table[T]{db: db, name: name, resource: resource}
}

// Name returns the table name.
func (t *Table[T]) Name() string { return t.name }

// WithTx returns the same table bound to a transaction.
func (t *Table[T]) WithTx(tx *gorm.DB) *Table[T] {
	return &Table[T]{db: tx, name: t.name, resource: t.resource}
}

func (t *Table[T]) scoped(ctx context.Context, f Filter) *gorm.DB {
	q := t.db.WithContext(ctx).Model(new(T)).Table(t.name)
	if len(f) > 0 {
		q = q.Where(map[string]any(f))
	}
	return q
}

// Insert writes row and fills generated fields back into it.
func (t *Table[T]) Insert(ctx context.Context, row *T) (err error) {
	ctx, end := t.trace(ctx, "insert")
	defer func() { end(err) }()

	if err = t.db.WithContext(ctx).Table(t.name).Create(row).Error; err != nil {
		return t.fail(ctx, "insert", nil, err)
	}
	return nil
}

// Select returns every row matching f in the given order.
func (t *Table[T]) Select(ctx context.Context, f Filter, orders ...Order) (rows []T, err error) {
	ctx, end := t.trace(ctx, "select")
	defer func() { end(err) }()

	q := t.scoped(ctx, f)
	for _, o := range orders {
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: o.Column}, Desc: o.Desc})
	}
	rows = make([]T, 0)
	if err = q.Find(&rows).Error; err != nil {
		return nil, t.fail(ctx, "select", f, err)
	}
	return rows, nil
}

// SelectOne returns the first row matching f, or a NOT_FOUND error.
func (t *Table[T]) SelectOne(ctx context.Context, f Filter, orders ...Order) (*T, error) {
	row, found, err := t.MaybeOne(ctx, f, orders...)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.NewNotFoundError(t.resource, describe(f))
	}
	return row, nil
}

// MaybeOne returns the first row matching f and whether one existed.
func (t *Table[T]) MaybeOne(ctx context.Context, f Filter, orders ...Order) (row *T, found bool, err error) {
	ctx, end := t.trace(ctx, "select_one")
	defer func() { end(err) }()

	q := t.scoped(ctx, f)
	for _, o := range orders {
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: o.Column}, Desc: o.Desc})
	}
	var out T
	if err = q.Take(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, t.fail(ctx, "select_one", f, err)
	}
	return &out, true, nil
}

// Update applies cols to every row matching f and returns the first updated row.
func (t *Table[T]) Update(ctx context.Context, f Filter, cols map[string]any) (row *T, err error) {
	if len(f) == 0 {
		return nil, fmt.Errorf("%s: update without filter", t.name)
	}
	ctx, end := t.trace(ctx, "update")
	defer func() { end(err) }()

	if len(cols) > 0 {
		res := t.scoped(ctx, f).Updates(cols)
		if res.Error != nil {
			return nil, t.fail(ctx, "update", f, res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, models.NewNotFoundError(t.resource, describe(f))
		}
	}
	return t.SelectOne(ctx, f)
}

// Delete removes every row matching f and reports how many went.
func (t *Table[T]) Delete(ctx context.Context, f Filter) (n int64, err error) {
	if len(f) == 0 {
		return 0, fmt.Errorf("%s: delete without filter", t.name)
	}
	ctx, end := t.trace(ctx, "delete")
	defer func() { end(err) }()

	res := t.db.WithContext(ctx).Table(t.name).Where(map[string]any(f)).Delete(new(T))
	if res.Error != nil {
		return 0, t.fail(ctx, "delete", f, res.Error)
	}
	return res.RowsAffected, nil
}

// Count returns the exact number of rows matching f.
func (t *Table[T]) Count(ctx context.Context, f Filter) (n int64, err error) {
	ctx, end := t.trace(ctx, "count")
	defer func() { end(err) }()

	if err = t.scoped(ctx, f).Count(&n).Error; err != nil {
		return 0, t.fail(ctx, "count", f, err)
	}
	return n, nil
}

func (t *Table[T]) trace(ctx context.Context, op string) (context.Context, func(error)) {
	done := observability.TrackQuery(op, t.name)
	ctx, end := observability.StartSpan(ctx, t.name, op)
	return ctx, func(err error) {
		done()
		end(err)
	}
}

// fail logs err and converts driver errors into application errors.
func (t *Table[T]) fail(ctx context.Context, op string, f Filter, err error) error {
	if isDuplicateKey(err) {
		return models.NewConflictError(fmt.Sprintf("%s already exists", t.resource), err)
	}
	middleware.Logger.ErrorContext(ctx, "repository operation failed",
		slog.String("table", t.name),
		slog.String("operation", op),
		slog.String("filter", describe(f)),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("%s %s: %w", t.name, op, err)
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func describe(f Filter) string {
	if id, ok := f["id"]; ok && len(f) == 1 {
		return fmt.Sprint(id)
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, f[k]))
	}
	return strings.Join(parts, ",")
}
