package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// NotifyDeduper tracks successfully handled notification deliveries. It
// only suppresses redelivery bursts; correctness under duplicates comes
// from the order store's compare-and-set, not from here.
type NotifyDeduper interface {
	// Seen reports whether the delivery key was already handled.
	Seen(ctx context.Context, key string) (bool, error)
	// Mark records a handled delivery key.
	Mark(ctx context.Context, key string) error
}

type redisNotifyDeduper struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func (d *redisNotifyDeduper) Seen(ctx context.Context, key string) (bool, error) {
	n, err := d.client.Exists(ctx, d.prefix+":"+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *redisNotifyDeduper) Mark(ctx context.Context, key string) error {
	return d.client.Set(ctx, d.prefix+":"+key, "1", d.ttl).Err()
}

type memoryNotifyDeduper struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	ttl    time.Duration
	nextGC time.Time
}

func newMemoryNotifyDeduper(ttl time.Duration) *memoryNotifyDeduper {
	now := time.Now()
	return &memoryNotifyDeduper{
		seen:   make(map[string]time.Time),
		ttl:    ttl,
		nextGC: now.Add(ttl),
	}
}

func (d *memoryNotifyDeduper) Seen(_ context.Context, key string) (bool, error) {
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if exp, ok := d.seen[key]; ok && exp.After(now) {
		return true, nil
	}
	return false, nil
}

func (d *memoryNotifyDeduper) Mark(_ context.Context, key string) error {
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.seen[key] = now.Add(d.ttl)
	if now.After(d.nextGC) {
		for k, exp := range d.seen {
			if exp.Before(now) {
				delete(d.seen, k)
			}
		}
		d.nextGC = now.Add(d.ttl)
	}
	return nil
}

// NewNotifyDeduper builds a Redis deduper and falls back to in-memory on
// failure.
func NewNotifyDeduper(addr, pass string, db int, ttl time.Duration) (NotifyDeduper, error) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if addr == "" {
		return newMemoryNotifyDeduper(ttl), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: pass,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return newMemoryNotifyDeduper(ttl), err
	}

	return &redisNotifyDeduper{
		client: client,
		prefix: "pf:itn",
		ttl:    ttl,
	}, nil
}

// NotifyDedup short-circuits byte-identical notification redeliveries. The
// key includes the signature, so a changed payload for the same reference
// always passes through. A delivery is only marked after the handler
// acknowledged it, so a failed attempt stays eligible for retry.
func NotifyDedup(deduper NotifyDeduper) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if deduper == nil {
				return next(c)
			}

			reference := c.FormValue("m_payment_id")
			txID := c.FormValue("pf_payment_id")
			signature := c.FormValue("signature")
			if reference == "" || signature == "" {
				return next(c)
			}

			ctx := c.Request().Context()
			key := strings.Join([]string{reference, txID, signature}, ":")

			isDuplicate, err := deduper.Seen(ctx, key)
			if err == nil && isDuplicate {
				// The gateway only needs a 2xx to stop retrying.
				return c.String(http.StatusOK, "OK")
			}

			if err := next(c); err != nil {
				return err
			}
			if c.Response().Status < http.StatusMultipleChoices {
				_ = deduper.Mark(ctx, key)
			}
			return nil
		}
	}
}
