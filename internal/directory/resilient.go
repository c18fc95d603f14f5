package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/tbourn/go-tgstats/internal/config"
	"github.com/tbourn/go-tgstats/internal/observability"
)

// Resilient decorates a Directory so that every call is throttled by a token
// bucket, bounded by a per-attempt deadline, and retried with exponential
// backoff. Confirmed absences and client errors are not retried. A call that
// still fails returns an error wrapping ErrUnavailable, or the context error
// when the caller gave up.
type Resilient struct {
	Next       Directory
	Timeout    time.Duration
	MaxRetries uint
	Limiter    *rate.Limiter
	NewBackOff func() backoff.BackOff
	Log        *zerolog.Logger
}

// NewResilient wraps next using the directory settings.
func NewResilient(next Directory, cfg config.DirectoryConfig) *Resilient {
	return &Resilient{
		Next:       next,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
		Limiter:    rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		NewBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
	}
}

func (r *Resilient) logger() *zerolog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return &log.Logger
}

// Search implements Directory.
func (r *Resilient) Search(ctx context.Context, channelID int64, filter string, offset, limit int) ([]Entity, error) {
	ctx, span := otel.Tracer("directory").Start(ctx, "Directory.Search")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("channel.id", channelID),
		attribute.String("directory.filter", filter),
		attribute.Int("directory.offset", offset),
	)

	out, err := call(ctx, r, "search", func(ctx context.Context) ([]Entity, error) {
		return r.Next.Search(ctx, channelID, filter, offset, limit)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
	}
	return out, err
}

// Lookup implements Directory.
func (r *Resilient) Lookup(ctx context.Context, channelID, userID int64) (*Entity, error) {
	ctx, span := otel.Tracer("directory").Start(ctx, "Directory.Lookup")
	defer span.End()
	span.SetAttributes(attribute.Int64("channel.id", channelID), attribute.Int64("user.id", userID))

	out, err := call(ctx, r, "lookup", func(ctx context.Context) (*Entity, error) {
		return r.Next.Lookup(ctx, channelID, userID)
	})
	if err != nil && !IsAbsence(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
	}
	return out, err
}

func call[T any](ctx context.Context, r *Resilient, op string, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	attempt := 0

	operation := func() (T, error) {
		var zero T
		attempt++
		if r.Limiter != nil {
			if err := r.Limiter.Wait(ctx); err != nil {
				return zero, backoff.Permanent(err)
			}
		}
		actx, cancel := ctx, context.CancelFunc(func() {})
		if r.Timeout > 0 {
			actx, cancel = context.WithTimeout(ctx, r.Timeout)
		}
		defer cancel()

		v, err := fn(actx)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil || IsAbsence(err) || !retryable(err) {
			return zero, backoff.Permanent(err)
		}
		var ra *RetryAfterError
		if errors.As(err, &ra) {
			return zero, backoff.RetryAfter(int(ra.After / time.Second))
		}
		return zero, err
	}

	newBackOff := r.NewBackOff
	if newBackOff == nil {
		newBackOff = func() backoff.BackOff { return backoff.NewExponentialBackOff() }
	}
	v, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(newBackOff()),
		backoff.WithMaxTries(r.MaxRetries+1),
		backoff.WithNotify(func(err error, next time.Duration) {
			r.logger().Debug().Err(err).Str("op", op).Int("attempt", attempt).Dur("retry_in", next).Msg("directory call failed, retrying")
		}),
	)

	outcome := "ok"
	switch {
	case err == nil:
	case ctx.Err() != nil:
		outcome = "canceled"
		err = ctx.Err()
	case errors.Is(err, ErrNotMember):
		outcome = "not_member"
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "unavailable"
		if !errors.Is(err, ErrUnavailable) {
			err = fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
		}
	}
	observability.ObserveDirectoryCall(op, outcome, time.Since(start))
	return v, err
}

// retryable reports whether another attempt can succeed.
func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}
