package journals

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

type Scraper struct {
	directoryURL string
	client       *http.Client
	logger       *zap.Logger
}

func NewScraper(directoryURL string, logger *zap.Logger) *Scraper {
	return &Scraper{
		directoryURL: directoryURL,
		client:       &http.Client{Timeout: 30 * time.Second},
		logger:       logger,
	}
}

// FetchAll downloads the journal directory page and extracts journal entries
// from its anchors.
func (s *Scraper) FetchAll(ctx context.Context) ([]Journal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.directoryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build directory request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; JournalBot/1.0)")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch journal directory: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch journal directory: status %d", resp.StatusCode)
	}

	root, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse journal directory: %w", err)
	}

	base, err := url.Parse(s.directoryURL)
	if err != nil {
		return nil, fmt.Errorf("parse directory URL: %w", err)
	}

	items := extractJournals(root, base)
	s.logger.Info("Journal directory scraped",
		zap.String("url", s.directoryURL),
		zap.Int("count", len(items)),
	)
	return items, nil
}

// extractJournals walks the DOM collecting anchors that look like journal
// links: non-empty text and an href pointing at a journal page.
func extractJournals(root *html.Node, base *url.URL) []Journal {
	var items []Journal
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if j, ok := journalFromAnchor(n, base); ok && !seen[j.ID] {
				seen[j.ID] = true
				items = append(items, j)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return items
}

func journalFromAnchor(n *html.Node, base *url.URL) (Journal, bool) {
	var href string
	for _, attr := range n.Attr {
		if attr.Key == "href" {
			href = attr.Val
			break
		}
	}
	if href == "" || !strings.Contains(href, "/pub/") {
		return Journal{}, false
	}

	name := strings.TrimSpace(nodeText(n))
	if name == "" {
		return Journal{}, false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return Journal{}, false
	}
	abs := base.ResolveReference(ref)

	segments := strings.Split(strings.Trim(abs.Path, "/"), "/")
	id := segments[len(segments)-1]
	if id == "" {
		return Journal{}, false
	}

	return Journal{
		ID:        id,
		Name:      name,
		SourceURL: abs.String(),
	}, true
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return b.String()
}
