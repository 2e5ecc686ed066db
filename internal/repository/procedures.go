package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pillow12360/eureka-ssul/internal/middleware"
	"github.com/pillow12360/eureka-ssul/internal/models"

	"gorm.io/gorm"
)

// Names of the counter procedures run alongside comment and like mutations.
const (
	ProcIncrementCommentCount = "increment_counter"
	ProcDecrementCommentCount = "decrement_comment_count"
	ProcIncrementLikeCount    = "increment_like_count"
	ProcDecrementLikeCount    = "decrement_like_count"
)

// Args are the named arguments of a procedure call.
type Args map[string]any

// Procedure runs inside the caller's transaction.
type Procedure func(ctx context.Context, tx *gorm.DB, args Args) error

// Procedures is a registry of named server-side operations callable by name.
type Procedures struct {
	procs map[string]Procedure
}

// NewProcedures returns a registry holding the profile counter procedures.
func NewProcedures() *Procedures {
	p := &Procedures{procs: map[string]Procedure{}}
	p.Register(ProcIncrementCommentCount, adjustCounter("comments", "row_id", +1))
	p.Register(ProcDecrementCommentCount, adjustCounter("comments", "profile_id", -1))
	p.Register(ProcIncrementLikeCount, adjustCounter("like_count", "row_id", +1))
	p.Register(ProcDecrementLikeCount, adjustCounter("like_count", "row_id", -1))
	return p
}

// Register adds or replaces a procedure.
func (p *Procedures) Register(name string, fn Procedure) {
	p.procs[name] = fn
}

// Call runs the named procedure on tx.
func (p *Procedures) Call(ctx context.Context, tx *gorm.DB, name string, args Args) error {
	fn, ok := p.procs[name]
	if !ok {
		return fmt.Errorf("unknown procedure %q", name)
	}
	if err := fn(ctx, tx, args); err != nil {
		middleware.Logger.ErrorContext(ctx, "procedure failed",
			slog.String("procedure", name),
			slog.Any("args", args),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

// adjustCounter moves a profiles counter column by sign*amount, flooring at zero.
// The optional "amount" argument defaults to 1.
func adjustCounter(column, idArg string, sign int) Procedure {
	return func(ctx context.Context, tx *gorm.DB, args Args) error {
		id, _ := args[idArg].(string)
		if id == "" {
			return fmt.Errorf("missing %s argument", idArg)
		}
		amount := 1
		if v, ok := args["amount"].(int); ok {
			amount = v
		}
		if amount <= 0 {
			return nil
		}

		var expr *gorm.DB
		if sign > 0 {
			expr = tx.WithContext(ctx).Exec(
				fmt.Sprintf("UPDATE profiles SET %[1]s = %[1]s + ?, updated_at = ? WHERE id = ?", column),
				amount, time.Now().UTC(), id,
			)
		} else {
			expr = tx.WithContext(ctx).Exec(
				fmt.Sprintf("UPDATE profiles SET %[1]s = CASE WHEN %[1]s > ? THEN %[1]s - ? ELSE 0 END, updated_at = ? WHERE id = ?", column),
				amount, amount, time.Now().UTC(), id,
			)
		}
		if expr.Error != nil {
			return fmt.Errorf("adjust %s: %w", column, expr.Error)
		}
		if expr.RowsAffected == 0 {
			return models.NewNotFoundError("Profile", id)
		}
		return nil
	}
}
