package services

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-tgstats/internal/directory"
	"github.com/tbourn/go-tgstats/internal/observability"
)

// DefaultPageLimit is the search page size used when none is configured.
const DefaultPageLimit = 200

// Sink receives each newly discovered entity exactly once per crawl. Calls
// are serialized. A sink error is counted and the crawl moves on.
type Sink func(ctx context.Context, e directory.Entity) error

// ProbeResult is what one probe key contributed to a crawl.
type ProbeResult struct {
	Key         string
	Pages       int
	Entities    int
	NewEntities int
	Truncated   bool
	Err         error
}

// CrawlReport summarizes a crawl.
type CrawlReport struct {
	Probes     []ProbeResult
	Observed   int
	SinkErrors int
}

// FailedKeys returns the number of probe keys abandoned on error.
func (r CrawlReport) FailedKeys() int {
	n := 0
	for _, p := range r.Probes {
		if p.Err != nil {
			n++
		}
	}
	return n
}

// Crawler enumerates a channel's membership by paging the directory search
// once per probe key and merging the results by user id. The result is a
// best-effort superset: a failing key is logged and skipped.
type Crawler struct {
	Dir            directory.Directory
	Alphabet       Alphabet
	PageLimit      int
	MaxPagesPerKey int
	// Concurrency > 1 pages that many keys at once. Merging and sink calls
	// stay serialized.
	Concurrency int
	Log         *zerolog.Logger
}

func (c *Crawler) logger() *zerolog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return &log.Logger
}

// Crawl enumerates channelID and streams every distinct entity to sink.
// The only error it returns is the context's.
func (c *Crawler) Crawl(ctx context.Context, channelID int64, sink Sink) (CrawlReport, error) {
	ctx, span := otel.Tracer("services/crawler").Start(ctx, "Crawler.Crawl")
	defer span.End()
	span.SetAttributes(attribute.Int64("channel.id", channelID), attribute.Int("crawl.keys", len(c.Alphabet)))

	var (
		mu   sync.Mutex
		seen = make(map[int64]struct{})
		rep  = CrawlReport{Probes: make([]ProbeResult, len(c.Alphabet))}
	)
	for i, key := range c.Alphabet {
		rep.Probes[i].Key = key
	}

	// merge records page entities under mu and forwards new ones to sink.
	merge := func(pr *ProbeResult, page []directory.Entity) {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range page {
			if e.ID == 0 {
				continue
			}
			pr.Entities++
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
			pr.NewEntities++
			if err := sink(ctx, e); err != nil {
				rep.SinkErrors++
				c.logger().Warn().Err(err).Int64("channel_id", channelID).Int64("user_id", e.ID).Msg("crawl: sink rejected entity")
			}
		}
	}

	limit := c.Concurrency
	if limit < 1 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, key := range c.Alphabet {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			rep.Probes[i] = c.probe(gctx, channelID, key, merge)
			return nil
		})
	}
	_ = g.Wait()

	rep.Observed = len(seen)
	span.SetAttributes(attribute.Int("crawl.observed", rep.Observed), attribute.Int("crawl.failed_keys", rep.FailedKeys()))
	if err := ctx.Err(); err != nil {
		return rep, err
	}
	return rep, nil
}

// probe pages one key from offset 0 until a short page, an empty page, or
// the page cap.
func (c *Crawler) probe(ctx context.Context, channelID int64, key string, merge func(*ProbeResult, []directory.Entity)) ProbeResult {
	pr := ProbeResult{Key: key}
	limit := c.PageLimit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	offset := 0
	for {
		if c.MaxPagesPerKey > 0 && pr.Pages >= c.MaxPagesPerKey {
			pr.Truncated = true
			c.logger().Warn().Int64("channel_id", channelID).Str("key", key).Int("pages", pr.Pages).
				Msg("crawl: page cap reached, key may be incomplete")
			break
		}
		page, err := c.Dir.Search(ctx, channelID, key, offset, limit)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				pr.Err = ctxErr
				break
			}
			pr.Err = err
			c.logger().Warn().Err(err).Int64("channel_id", channelID).Str("key", key).Int("offset", offset).
				Msg("crawl: probe key abandoned")
			break
		}
		pr.Pages++
		merge(&pr, page)
		if len(page) < limit {
			break
		}
		offset += len(page)
	}
	if ctx.Err() == nil {
		observability.CountProbeKey(pr.Err == nil)
	}
	return pr
}

// Enumerate crawls channelID and returns the deduplicated entities in
// discovery order.
func (c *Crawler) Enumerate(ctx context.Context, channelID int64) ([]directory.Entity, CrawlReport, error) {
	var out []directory.Entity
	rep, err := c.Crawl(ctx, channelID, func(_ context.Context, e directory.Entity) error {
		out = append(out, e)
		return nil
	})
	return out, rep, err
}
