package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"libraryapi/internal/book"
)

type Config struct {
	// Workers bounds concurrent lookups. The Open Library client applies its
	// own rate limit underneath.
	Workers int
}

type Service struct {
	importer Importer
	repo     Repository
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time

	// runs in flight belong to base, not to the request that started them
	base    context.Context
	stop    context.CancelFunc
	pending sync.WaitGroup
}

func NewService(importer Importer, repo Repository, cfg Config, logger *slog.Logger) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	base, stop := context.WithCancel(context.Background())
	return &Service{
		importer: importer,
		repo:     repo,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		base:     base,
		stop:     stop,
	}
}

// Start records a RUNNING run and imports its ISBNs in the background. The
// returned run carries the id to poll with Get.
func (s *Service) Start(ctx context.Context, isbns []string) (Run, error) {
	isbns = dedupe(isbns)
	if len(isbns) == 0 {
		return Run{}, ErrNoISBNs
	}

	run := Run{
		Status:    StatusRunning,
		Requested: len(isbns),
		StartedAt: s.now(),
	}
	id, err := s.repo.CreateRun(ctx, &run)
	if err != nil {
		return Run{}, err
	}
	run.ID = id

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		_, _ = s.execute(s.base, run, isbns)
	}()
	return run, nil
}

// Wait blocks until every started run has finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

// Close cancels runs still in flight and waits for them to be marked FAILED.
func (s *Service) Close() {
	s.stop()
	s.pending.Wait()
}

// execute imports every ISBN of run and persists the outcome. Individual
// failures are recorded on the run; only a cancelled context marks the whole
// run FAILED.
func (s *Service) execute(ctx context.Context, run Run, isbns []string) (result Run, err error) {
	defer func() {
		now := s.now()
		run.FinishedAt = &now
		if err != nil && run.Error == "" {
			run.Error = err.Error()
		}
		if run.Error != "" {
			run.Status = StatusFailed
		} else {
			run.Status = StatusCompleted
		}
		// Persist the final state even when ctx is cancelled.
		if updateErr := s.repo.UpdateRun(context.WithoutCancel(ctx), &run); updateErr != nil {
			s.logger.Error("update import run", "run_id", run.ID, "error", updateErr)
		}
		s.logger.Info("import run finished",
			"run_id", run.ID, "status", run.Status,
			"imported", run.Imported, "skipped", run.Skipped, "failed", run.Failed)
		result = run
	}()

	items := make([]Item, len(isbns))
	sem := make(chan struct{}, s.cfg.Workers)
	var wg sync.WaitGroup

	for i, isbn := range isbns {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)

		go func(i int, isbn string) {
			defer wg.Done()
			defer func() { <-sem }()
			items[i] = s.importOne(ctx, isbn)
		}(i, isbn)
	}
	wg.Wait()

	storeCtx := context.WithoutCancel(ctx)
	for _, it := range items {
		if it.ISBN == "" {
			continue // not started before cancellation
		}
		run.count(it)
		if err := s.repo.AddItem(storeCtx, run.ID, it); err != nil {
			s.logger.Warn("record import item", "run_id", run.ID, "isbn", it.ISBN, "error", err)
		}
		run.Items = append(run.Items, it)
	}

	return run, ctx.Err()
}

func (s *Service) importOne(ctx context.Context, isbn string) Item {
	b, err := s.importer.ImportByISBN(ctx, isbn)
	switch {
	case err == nil:
		return Item{ISBN: isbn, Outcome: OutcomeImported, BookID: b.ID}
	case errors.Is(err, book.ErrAlreadyExists):
		return Item{ISBN: isbn, Outcome: OutcomeSkipped}
	case errors.Is(err, book.ErrMetadataNotFound):
		return Item{ISBN: isbn, Outcome: OutcomeFailed, Error: "not found in Open Library"}
	default:
		s.logger.Warn("import isbn", "isbn", isbn, "error", err)
		return Item{ISBN: isbn, Outcome: OutcomeFailed, Error: err.Error()}
	}
}

// Get returns a run together with its per-ISBN outcomes.
func (s *Service) Get(ctx context.Context, id string) (Run, error) {
	run, err := s.repo.GetRun(ctx, id)
	if err != nil {
		return Run{}, err
	}
	if run.Items, err = s.repo.ListItems(ctx, id); err != nil {
		return Run{}, err
	}
	return run, nil
}

func dedupe(isbns []string) []string {
	seen := make(map[string]bool, len(isbns))
	out := make([]string, 0, len(isbns))
	for _, isbn := range isbns {
		isbn = book.NormalizeISBN(isbn)
		if isbn == "" || seen[isbn] {
			continue
		}
		seen[isbn] = true
		out = append(out, isbn)
	}
	return out
}
