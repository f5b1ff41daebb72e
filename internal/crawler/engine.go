package crawler

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/novel-crawler/internal/metrics"
)

// Config tunes the Engine.
type Config struct {
	Site Site
	// ImageConcurrency above one moves image downloads onto a bounded pool.
	ImageConcurrency int
	// DetectCycles aborts the crawl when a next link names a chapter that was
	// already queued or processed.
	DetectCycles bool
}

// Dependencies groups the collaborators the Engine drives.
type Dependencies struct {
	Fetcher   Fetcher
	Extractor Extractor
	Persister Persister
	Queue     Queue
	Retry     RetryPolicy
	Hasher    Hasher
	IDs       IDGenerator
}

// Engine drains the work queue one item at a time until the completion
// sentinel is consumed. An Engine owns its queue and runs a single crawl.
type Engine struct {
	cfg       Config
	fetcher   Fetcher
	extractor Extractor
	persister Persister
	queue     Queue
	retry     RetryPolicy
	hasher    Hasher
	ids       IDGenerator
	logger    *zap.Logger
	sleep     func(context.Context, time.Duration) error
}

// NewEngine wires an Engine. A nil retry policy disables retries.
func NewEngine(cfg Config, deps Dependencies, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Retry == nil {
		deps.Retry = NoRetry{}
	}
	return &Engine{
		cfg:       cfg,
		fetcher:   deps.Fetcher,
		extractor: deps.Extractor,
		persister: deps.Persister,
		queue:     deps.Queue,
		retry:     deps.Retry,
		hasher:    deps.Hasher,
		ids:       deps.IDs,
		logger:    logger,
		sleep:     sleepContext,
	}
}

// Run crawls one novel: catalog, every chapter of the chain, and every image.
// It returns once the completion sentinel is consumed or the first
// unrecoverable error occurs.
func (e *Engine) Run(ctx context.Context, novelID string) (Stats, error) {
	if strings.TrimSpace(novelID) == "" {
		return Stats{}, errors.New("novel id is required")
	}
	if err := e.validate(); err != nil {
		return Stats{}, err
	}

	start := time.Now()
	run := e.newRun(novelID)

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if e.cfg.ImageConcurrency > 1 {
		g, gctx := errgroup.WithContext(loopCtx)
		g.SetLimit(e.cfg.ImageConcurrency)
		run.images = g
		loopCtx = gctx
	}

	run.logger.Info("crawl started", zap.String("catalog_url", e.cfg.Site.CatalogURL(novelID)))
	var err error
	if err = e.queue.Enqueue(CatalogFetch(novelID)); err != nil {
		err = fmt.Errorf("enqueue catalog: %w", err)
	} else {
		err = run.drain(loopCtx)
	}
	if err != nil {
		cancel()
	}
	if waitErr := run.wait(); waitErr != nil {
		if err == nil || (errors.Is(err, context.Canceled) && ctx.Err() == nil) {
			err = waitErr
		}
	}

	stats := run.snapshot()
	stats.Duration = time.Since(start)
	if err != nil {
		run.logger.Error("crawl failed", zap.Error(err), zap.Int("chapters", stats.Chapters), zap.Int("images", stats.Images))
		return stats, err
	}
	run.logger.Info("crawl finished",
		zap.Int("chapters", stats.Chapters),
		zap.Int("images", stats.Images),
		zap.Int64("bytes", stats.Bytes),
		zap.Duration("duration", stats.Duration),
	)
	return stats, nil
}

func (e *Engine) validate() error {
	switch {
	case e.fetcher == nil:
		return errors.New("engine requires a fetcher")
	case e.extractor == nil:
		return errors.New("engine requires an extractor")
	case e.persister == nil:
		return errors.New("engine requires a persister")
	case e.queue == nil:
		return errors.New("engine requires a queue")
	}
	return nil
}

func (e *Engine) newRun(novelID string) *crawlRun {
	logger := e.logger.With(zap.String("novel_id", novelID))
	if e.ids != nil {
		id, err := e.ids.NewID()
		if err != nil {
			logger.Warn("run id generation failed", zap.Error(err))
		} else {
			logger = logger.With(zap.String("run_id", id))
		}
	}
	return &crawlRun{
		engine:  e,
		novelID: novelID,
		logger:  logger,
		seen:    make(map[string]struct{}),
	}
}

// crawlRun carries the state of one Run call.
type crawlRun struct {
	engine  *Engine
	novelID string
	logger  *zap.Logger
	// seen holds every chapter filename queued so far; only the consumer touches it.
	seen   map[string]struct{}
	images *errgroup.Group

	mu    sync.Mutex
	stats Stats
}

func (r *crawlRun) drain(ctx context.Context) error {
	q := r.engine.queue
	for {
		item, err := q.Dequeue(ctx)
		if errors.Is(err, ErrEndOfStream) {
			return fmt.Errorf("novel %s: %w", r.novelID, ErrChainStalled)
		}
		if err != nil {
			return fmt.Errorf("dequeue: %w", err)
		}
		metrics.SetQueueDepth(q.Len())

		if item.Kind == KindCompletion {
			r.complete(q)
			return nil
		}
		if err := r.process(ctx, q, item); err != nil {
			metrics.ObserveItem(item.Kind.String(), "failed")
			return err
		}
		// The consumer is the only producer, so an empty queue here can never refill.
		if q.Len() == 0 {
			q.Close()
		}
	}
}

func (r *crawlRun) complete(q Queue) {
	left := q.Len()
	q.Close()
	metrics.ObserveItem(KindCompletion.String(), "success")
	if left > 0 {
		r.logger.Warn("discarding work queued after completion", zap.Int("items", left))
	}
	r.mu.Lock()
	r.stats.Discarded = left
	r.mu.Unlock()
}

func (r *crawlRun) wait() error {
	if r.images == nil {
		return nil
	}
	return r.images.Wait()
}

func (r *crawlRun) snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *crawlRun) process(ctx context.Context, out Enqueuer, item WorkItem) error {
	switch item.Kind {
	case KindCatalog:
		return r.processCatalog(ctx, out, item)
	case KindChapter:
		return r.processChapter(ctx, out, item)
	case KindImage:
		if r.images != nil {
			r.images.Go(func() error {
				return r.processImage(ctx, item)
			})
			return nil
		}
		return r.processImage(ctx, item)
	default:
		return fmt.Errorf("unknown work item %s", item.Kind)
	}
}

func (r *crawlRun) processCatalog(ctx context.Context, out Enqueuer, item WorkItem) error {
	site := r.engine.cfg.Site
	resp, err := r.fetch(ctx, KindCatalog, site.CatalogURL(item.NovelID))
	if err != nil {
		return fmt.Errorf("catalog %s: %w", item.NovelID, err)
	}
	uri, digest, err := r.persist(ctx, KindCatalog, CatalogName, resp.Body)
	if err != nil {
		return err
	}

	link, err := r.engine.extractor.FirstChapter(resp.Body)
	if err != nil {
		return fmt.Errorf("catalog %s: %w", item.NovelID, err)
	}
	first := LastSegment(link)
	if first == "" {
		return fmt.Errorf("catalog %s: %w", item.NovelID, &ExtractionError{Rule: "first chapter link", Name: CatalogName})
	}
	r.seen[first] = struct{}{}
	if err := out.Enqueue(ChapterFetch(item.NovelID, first)); err != nil {
		return fmt.Errorf("enqueue chapter %s: %w", first, err)
	}

	r.mu.Lock()
	r.stats.Catalogs++
	r.mu.Unlock()
	metrics.ObserveItem(KindCatalog.String(), "success")
	r.logger.Info("catalog saved",
		zap.String("kind", KindCatalog.String()),
		zap.String("name", CatalogName),
		zap.String("first_chapter", first),
		zap.Int("bytes", len(resp.Body)),
		zap.String("sha256", digest),
		zap.String("uri", uri),
	)
	return nil
}

func (r *crawlRun) processChapter(ctx context.Context, out Enqueuer, item WorkItem) error {
	site := r.engine.cfg.Site
	name := item.ChapterFilename
	resp, err := r.fetch(ctx, KindChapter, site.ChapterURL(item.NovelID, name))
	if err != nil {
		return fmt.Errorf("chapter %s: %w", name, err)
	}
	uri, digest, err := r.persist(ctx, KindChapter, name, resp.Body)
	if err != nil {
		return err
	}

	page, err := r.engine.extractor.Chapter(resp.Body)
	if err != nil {
		return fmt.Errorf("chapter %s: %w", name, err)
	}

	images := 0
	for _, src := range page.Images {
		if src == "" {
			continue
		}
		if err := out.Enqueue(ImageFetch(item.NovelID, name, src)); err != nil {
			return fmt.Errorf("enqueue image %s: %w", src, err)
		}
		images++
	}

	next, err := r.followNext(out, item, page.NextLinks)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.stats.Chapters++
	r.mu.Unlock()
	metrics.ObserveItem(KindChapter.String(), "success")
	r.logger.Info("chapter saved",
		zap.String("kind", KindChapter.String()),
		zap.String("name", name),
		zap.String("title", page.Title),
		zap.String("sub_title", page.SubTitle),
		zap.Int("images", images),
		zap.Strings("next", next),
		zap.Int("bytes", len(resp.Body)),
		zap.String("sha256", digest),
		zap.String("uri", uri),
	)
	return nil
}

// followNext enqueues the work named by a chapter's next links and returns the
// filenames it acted on.
func (r *crawlRun) followNext(out Enqueuer, item WorkItem, links []string) ([]string, error) {
	site := r.engine.cfg.Site
	if len(links) == 0 {
		r.logger.Warn("chapter has no next link", zap.String("name", item.ChapterFilename))
		return nil, nil
	}
	handled := make(map[string]struct{}, len(links))
	var next []string
	for _, link := range links {
		filename := LastSegment(link)
		if filename == "" {
			r.logger.Warn("ignoring empty next link", zap.String("name", item.ChapterFilename), zap.String("link", link))
			continue
		}
		if _, dup := handled[filename]; dup {
			continue
		}
		handled[filename] = struct{}{}
		next = append(next, filename)

		if site.IsCatalog(filename) {
			if err := out.Enqueue(Completion()); err != nil {
				return nil, fmt.Errorf("enqueue completion: %w", err)
			}
			continue
		}
		if _, visited := r.seen[filename]; visited && r.engine.cfg.DetectCycles {
			return nil, fmt.Errorf("chapter %s links to %s: %w", item.ChapterFilename, filename, ErrChainCycle)
		}
		r.seen[filename] = struct{}{}
		if err := out.Enqueue(ChapterFetch(item.NovelID, filename)); err != nil {
			return nil, fmt.Errorf("enqueue chapter %s: %w", filename, err)
		}
	}
	return next, nil
}

func (r *crawlRun) processImage(ctx context.Context, item WorkItem) error {
	target := r.engine.cfg.Site.ResolveImageURL(item.ImageURL)
	resp, err := r.fetch(ctx, KindImage, target)
	if err != nil {
		return fmt.Errorf("image %s: %w", item.ImageURL, err)
	}
	name := ImageArtifactName(item.ChapterFilename, item.ImageURL)
	uri, digest, err := r.persist(ctx, KindImage, name, resp.Body)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.stats.Images++
	r.mu.Unlock()
	metrics.ObserveItem(KindImage.String(), "success")
	r.logger.Info("image saved",
		zap.String("kind", KindImage.String()),
		zap.String("name", name),
		zap.String("chapter", item.ChapterFilename),
		zap.String("image_url", item.ImageURL),
		zap.Int("bytes", len(resp.Body)),
		zap.String("sha256", digest),
		zap.String("uri", uri),
	)
	return nil
}

// fetch calls the Fetcher, retrying FetchErrors as the retry policy allows.
func (r *crawlRun) fetch(ctx context.Context, kind Kind, rawURL string) (FetchResponse, error) {
	for attempt := 1; ; attempt++ {
		start := time.Now()
		resp, err := r.engine.fetcher.Fetch(ctx, rawURL)
		metrics.ObserveFetch(kind.String(), time.Since(start))
		if err == nil && resp.StatusCode != 0 && (resp.StatusCode < 200 || resp.StatusCode > 299) {
			err = &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: errors.New("unexpected status")}
		}
		if err == nil {
			return resp, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return FetchResponse{}, ctxErr
		}
		if !errors.Is(err, ErrFetch) {
			err = &FetchError{URL: rawURL, Err: err}
		}
		if !r.engine.retry.ShouldRetry(err, attempt) {
			return FetchResponse{}, err
		}

		delay := r.engine.retry.Backoff(attempt)
		metrics.ObserveRetry(kind.String())
		r.logger.Warn("fetch failed, retrying",
			zap.String("kind", kind.String()),
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		if err := r.engine.sleep(ctx, delay); err != nil {
			return FetchResponse{}, err
		}
	}
}

func (r *crawlRun) persist(ctx context.Context, kind Kind, name string, data []byte) (string, string, error) {
	uri, err := r.engine.persister.Persist(ctx, r.novelID, name, data)
	if err != nil {
		if !errors.Is(err, ErrIO) {
			err = &IOError{Op: "persist", Path: path.Join(r.novelID, name), Err: err}
		}
		return "", "", err
	}
	var digest string
	if r.engine.hasher != nil {
		if digest, err = r.engine.hasher.Hash(data); err != nil {
			return "", "", fmt.Errorf("hash %s: %w", name, err)
		}
	}
	r.mu.Lock()
	r.stats.Bytes += int64(len(data))
	r.mu.Unlock()
	metrics.ObserveBytes(kind.String(), len(data))
	return uri, digest, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
