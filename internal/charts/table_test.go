package charts

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"melodex/internal/core"
)

const chartPage = `<html><body>
<table>
  <tr><th>Artist</th><th>Title</th></tr>
  <tr><td>Arijit Singh</td><td>Tum Hi Ho</td></tr>
  <tr><td>Arijit Singh</td><td>Kesariya</td></tr>
  <tr><td>Pritam</td><td>  Chaleya </td></tr>
  <tr><td>broken row</td></tr>
</table>
</body></html>`

func newTableScraper() *TableScraper {
	cfg := core.DefaultConfig().Charts
	return NewTableScraper(&cfg, zap.NewNop())
}

func TestTableExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(chartPage))
	}))
	defer srv.Close()

	hints, err := newTableScraper().Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	want := []core.TitleHint{
		{Title: "Tum Hi Ho", Artist: "Arijit Singh"},
		{Title: "Kesariya", Artist: "Arijit Singh"},
		{Title: "Chaleya", Artist: "Pritam"},
	}
	if len(hints) != len(want) {
		t.Fatalf("expected %d hints, got %d: %+v", len(want), len(hints), hints)
	}
	for i, w := range want {
		if hints[i] != w {
			t.Errorf("hint %d: expected %+v, got %+v", i, w, hints[i])
		}
	}
}

func TestTableExtractCombinedCell(t *testing.T) {
	page := `<html><body><table>
	  <tr><td>1. Kesariya - Arijit Singh</td></tr>
	  <tr><td>2. Tum Hi Ho</td></tr>
	</table></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	cfg := core.DefaultConfig().Charts
	cfg.TitleCell = 0
	cfg.ArtistCell = 0
	scraper := NewTableScraper(&cfg, zap.NewNop())

	hints, err := scraper.Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	want := []core.TitleHint{
		{Title: "Kesariya", Artist: "Arijit Singh"},
		{Title: "Tum Hi Ho"},
	}
	if len(hints) != len(want) {
		t.Fatalf("expected %d hints, got %d: %+v", len(want), len(hints), hints)
	}
	for i, w := range want {
		if hints[i] != w {
			t.Errorf("hint %d: expected %+v, got %+v", i, w, hints[i])
		}
	}
}

func TestTableExtractNoRowsIsHardFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><body><p>charts are down</p></body></html>`))
	}))
	defer srv.Close()

	_, err := newTableScraper().Extract(context.Background(), srv.URL)
	if !errors.Is(err, core.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestTableExtractBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTableScraper().Extract(context.Background(), srv.URL)
	if !errors.Is(err, core.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}
