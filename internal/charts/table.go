// Package charts extracts ordered title hints from external chart and
// playlist sources: a static weekly-chart table, a rendered playlist page,
// or a token-authenticated paginated tracks API.
package charts

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"melodex/internal/core"
	"melodex/pkg/text"
)

// TableScraper extracts hints from a static chart page whose rows carry
// artist and title cells.
type TableScraper struct {
	httpClient *http.Client
	titleCell  int
	artistCell int
	logger     *zap.Logger
}

func NewTableScraper(cfg *core.ChartsConfig, logger *zap.Logger) *TableScraper {
	return &TableScraper{
		httpClient: &http.Client{Timeout: cfg.ExtractTimeout},
		titleCell:  cfg.TitleCell,
		artistCell: cfg.ArtistCell,
		logger:     logger,
	}
}

func (s *TableScraper) Extract(ctx context.Context, locator string) ([]core.TitleHint, error) {
	if locator == "" {
		return nil, fmt.Errorf("%w: empty chart URL", core.ErrValidation)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrValidation, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: chart page status %d", core.ErrUnavailable, resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrUnavailable, err)
	}

	hints := s.rows(doc)
	if len(hints) == 0 {
		return nil, fmt.Errorf("%w: no chart rows found", core.ErrUnavailable)
	}

	s.logger.Debug("Chart table extracted", zap.Int("rows", len(hints)))
	return hints, nil
}

func (s *TableScraper) rows(doc *html.Node) []core.TitleHint {
	var hints []core.TitleHint

	for _, tr := range elementsByTag(doc, "tr") {
		cells := elementsByTag(tr, "td")
		if len(cells) <= s.titleCell || len(cells) <= s.artistCell {
			continue // header or malformed row
		}

		title := text.CleanCell(nodeText(cells[s.titleCell]))
		if title == "" {
			continue
		}

		// Some charts combine "Title - Artist" in a single cell.
		var artist string
		if s.artistCell == s.titleCell {
			title, artist = text.SplitTitleArtist(title)
		} else {
			artist = text.CleanCell(nodeText(cells[s.artistCell]))
		}

		hints = append(hints, core.TitleHint{
			Title:  title,
			Artist: artist,
		})
	}

	return hints
}

func elementsByTag(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == tag {
			out = append(out, node)
			return
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return out
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return b.String()
}
