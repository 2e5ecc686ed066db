package middleware

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what happens to a request when Redis cannot be reached.
type FailPolicy int

const (
	FailOpen FailPolicy = iota
	// FailClosed answers 503 instead of letting the request through.
	FailClosed
)

// Limit is a fixed-window quota on one write route.
type Limit struct {
	Name   string
	Max    int
	Window time.Duration
	Policy FailPolicy
}

// Quotas for the board's write routes.
var (
	ProfileCreateLimit = Limit{Name: "create_profile", Max: 5, Window: 10 * time.Minute}
	CommentCreateLimit = Limit{Name: "create_comment", Max: 10, Window: time.Minute}
	ImageUploadLimit   = Limit{Name: "upload_image", Max: 10, Window: 10 * time.Minute}
	RefreshLimit       = Limit{Name: "refresh", Max: 20, Window: 5 * time.Minute}
	AdminLoginLimit    = Limit{Name: "admin_login", Max: 10, Window: 5 * time.Minute, Policy: FailClosed}
)

// Decision is the outcome of one Check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

var errNoRedis = errors.New("rate limit store unavailable")

func limitsBypassed() bool {
	switch os.Getenv("APP_ENV") {
	case "", "development", "test":
		return true
	}
	return false
}

// Check counts one hit by subject against l. Limits are skipped when
// APP_ENV is unset, development or test.
func (l Limit) Check(ctx context.Context, rdb *redis.Client, subject string) (Decision, error) {
	if limitsBypassed() {
		return Decision{Allowed: true, Remaining: l.Max}, nil
	}
	if rdb == nil {
		return Decision{}, errNoRedis
	}

	key := "eureka:rl:" + l.Name + ":" + subject
	var hits *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.SetNX(ctx, key, 0, l.Window)
		hits = p.Incr(ctx, key)
		ttl = p.PTTL(ctx, key)
		return nil
	})
	if err != nil {
		return Decision{}, err
	}

	n := int(hits.Val())
	d := Decision{Allowed: n <= l.Max, Remaining: max(l.Max-n, 0)}
	if !d.Allowed {
		d.RetryAfter = ttl.Val()
		if d.RetryAfter <= 0 {
			d.RetryAfter = l.Window
		}
	}
	return d, nil
}

// subject identifies the caller: signed-in user, then anonymous client cookie, then IP.
func subject(c *fiber.Ctx) string {
	if uid := UserIDFrom(c); uid != "" {
		return "user:" + uid
	}
	if cid := ClientIDFrom(c); cid != "" {
		return "client:" + cid
	}
	return "ip:" + c.IP()
}

// RateLimit enforces l per caller and sets X-RateLimit-* headers.
func RateLimit(rdb *redis.Client, l Limit) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d, err := l.Check(c.UserContext(), rdb, subject(c))
		if err != nil {
			if l.Policy == FailOpen {
				return c.Next()
			}
			Logger.WarnContext(c.UserContext(), "rate limit unavailable, rejecting",
				slog.String("limit", l.Name),
				slog.String("error", err.Error()),
			)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "rate limit unavailable",
			})
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(l.Max))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			secs := int((d.RetryAfter + time.Second - 1) / time.Second)
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(secs))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}
		return c.Next()
	}
}
