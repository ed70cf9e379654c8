package charts

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"melodex/internal/core"
)

// Page is the boundary to the external page-rendering collaborator. The
// rendering and DOM-traversal mechanics live behind it; this package only
// drives the scroll-stabilization protocol.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Scroll(ctx context.Context) error
	ContentHeight(ctx context.Context) (int, error)
	Rows(ctx context.Context) ([]core.TitleHint, error)
	Close() error
}

// PageFactory opens a fresh page session per extraction attempt.
type PageFactory func(ctx context.Context) (Page, error)

// PageScraper extracts hints from a lazily loading rendered playlist page.
// It repeatedly scrolls and polls the content height, and only extracts
// once the height has stopped growing for a fixed number of consecutive
// polls. The whole extraction runs under one deadline independent of the
// per-poll interval, so a stalled source cannot hold the run hostage.
type PageScraper struct {
	open         PageFactory
	stablePolls  int
	pollInterval time.Duration
	timeout      time.Duration
	logger       *zap.Logger
}

func NewPageScraper(open PageFactory, cfg *core.ChartsConfig, logger *zap.Logger) *PageScraper {
	return &PageScraper{
		open:         open,
		stablePolls:  cfg.StablePolls,
		pollInterval: cfg.PollInterval,
		timeout:      cfg.ExtractTimeout,
		logger:       logger,
	}
}

func (s *PageScraper) Extract(ctx context.Context, locator string) ([]core.TitleHint, error) {
	if locator == "" {
		return nil, fmt.Errorf("%w: empty page URL", core.ErrValidation)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	page, err := s.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: open page: %v", core.ErrUnavailable, err)
	}
	defer page.Close()

	if err := page.Navigate(ctx, locator); err != nil {
		return nil, fmt.Errorf("%w: navigate: %v", core.ErrUnavailable, err)
	}

	if err := s.stabilize(ctx, page); err != nil {
		return nil, err
	}

	hints, err := page.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: extract rows: %v", core.ErrUnavailable, err)
	}
	if len(hints) == 0 {
		return nil, fmt.Errorf("%w: no playlist rows found", core.ErrUnavailable)
	}

	s.logger.Debug("Rendered page extracted", zap.Int("rows", len(hints)))
	return hints, nil
}

// stabilize scrolls until stablePolls consecutive height polls report no
// growth. The context deadline bounds the worst case.
func (s *PageScraper) stabilize(ctx context.Context, page Page) error {
	lastHeight := -1
	stable := 0

	for stable < s.stablePolls {
		if err := page.Scroll(ctx); err != nil {
			return fmt.Errorf("%w: scroll: %v", core.ErrUnavailable, err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: stabilization timed out", core.ErrUnavailable)
		case <-time.After(s.pollInterval):
		}

		height, err := page.ContentHeight(ctx)
		if err != nil {
			return fmt.Errorf("%w: measure: %v", core.ErrUnavailable, err)
		}

		if height == lastHeight {
			stable++
		} else {
			stable = 0
			lastHeight = height
		}
	}

	return nil
}
