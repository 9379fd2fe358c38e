package embed

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"reelwatch/internal/httputil"
	"reelwatch/internal/media"
)

// Availability is the outcome of probing one provider.
type Availability struct {
	Source    Source
	URL       string
	Available bool
	Reason    string
}

// Prober fetches embed pages and inspects their markup.
type Prober struct {
	client *http.Client
}

// NewProber creates a prober. A nil client uses httputil.NewClient.
func NewProber(client *http.Client) *Prober {
	if client == nil {
		client = httputil.NewClient()
	}
	return &Prober{client: client}
}

// Probe fetches pageURL and reports whether it looks like a working player.
// Network failures are returned as errors; an unusable page is not an error.
func (p *Prober) Probe(ctx context.Context, pageURL string) (Availability, error) {
	a := Availability{URL: pageURL}

	resp, err := httputil.Get(ctx, p.client, pageURL)
	if err != nil {
		return a, fmt.Errorf("fetching embed page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.Reason = fmt.Sprintf("HTTP %d", resp.StatusCode)
		return a, nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return a, fmt.Errorf("parsing embed page: %w", err)
	}

	a.Available, a.Reason = inspect(doc)
	return a, nil
}

// ProbeAll probes every provider concurrently for ref at season/episode and
// returns the results in Sources() order.
func (p *Prober) ProbeAll(ctx context.Context, ref media.Ref, season, episode int) ([]Availability, error) {
	sources := Sources()
	results := make([]Availability, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		u, err := URL(src, ref, season, episode)
		if err != nil {
			return nil, err
		}
		g.Go(func() error {
			a, err := p.Probe(ctx, u)
			if err != nil {
				// One provider being unreachable says nothing about the others.
				a.Reason = err.Error()
			}
			a.Source = src
			results[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// notFoundMarkers are page titles providers use for missing titles.
var notFoundMarkers = []string{"not found", "404", "unavailable", "no sources"}

// inspect decides from the DOM whether a page hosts a player.
func inspect(doc *goquery.Document) (bool, string) {
	title := strings.ToLower(strings.TrimSpace(doc.Find("title").First().Text()))
	for _, m := range notFoundMarkers {
		if strings.Contains(title, m) {
			return false, "provider reports: " + strings.TrimSpace(doc.Find("title").First().Text())
		}
	}

	if src, ok := doc.Find("iframe[src]").First().Attr("src"); ok && strings.TrimSpace(src) != "" {
		return true, "iframe"
	}
	if doc.Find("video").Length() > 0 {
		return true, "video element"
	}

	found := ""
	doc.Find("script[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		lower := strings.ToLower(src)
		if strings.Contains(lower, "player") || strings.Contains(lower, "jwplayer") || strings.Contains(lower, "hls") {
			found = "player script"
			return false
		}
		return true
	})
	if found != "" {
		return true, found
	}

	if doc.Find(`[id*="player"], [class*="player"]`).Length() > 0 {
		return true, "player container"
	}

	return false, "no player markup"
}
