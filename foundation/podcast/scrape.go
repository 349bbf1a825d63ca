package podcast

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"code.sajari.com/docconv/v2"
	"github.com/ardanlabs/ai-agents/foundation/client"
)

// ErrNoContent is returned when a page has no readable text.
var ErrNoContent = errors.New("page has no readable content")

// WebScraper fetches pages over HTTP and extracts their text.
type WebScraper struct {
	cln         *client.Client
	readability bool
}

// NewWebScraper constructs a scraper. With readability on, navigation and
// other boilerplate is removed from the text.
func NewWebScraper(cln *client.Client, readability bool) *WebScraper {
	return &WebScraper{
		cln:         cln.With(client.WithHeader("Accept", "text/html,application/xhtml+xml")),
		readability: readability,
	}
}

// Scrape returns the text of the page at url.
func (ws *WebScraper) Scrape(ctx context.Context, url string) (string, error) {
	var html string
	if err := ws.cln.Do(ctx, http.MethodGet, url, nil, &html); err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}

	text, _, err := docconv.ConvertHTML(strings.NewReader(html), ws.readability)
	if err != nil {
		return "", fmt.Errorf("convert html: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoContent
	}

	return text, nil
}
