// Package docling provides a client for the Docling document conversion
// service, used to turn web pages into markdown.
package docling

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ardanlabs/ai-agents/foundation/client"
)

// ErrNoContent is returned when the conversion produced no markdown.
var ErrNoContent = errors.New("document has no content")

// Docling converts documents at a URL to markdown.
type Docling struct {
	cln      *client.Client
	endpoint string
}

// New constructs a client for the service running at host.
func New(cln *client.Client, host string) (*Docling, error) {
	endpoint, err := url.JoinPath(host, "v1/convert/source")
	if err != nil {
		return nil, fmt.Errorf("endpoint: %w", err)
	}

	doc := Docling{
		cln:      cln,
		endpoint: endpoint,
	}

	return &doc, nil
}

type response struct {
	Document struct {
		MDContent string `json:"md_content"`
	} `json:"document"`
	Status string   `json:"status"`
	Errors []string `json:"errors"`
}

// Scrape fetches the document at rawURL through the service and returns it
// as markdown.
func (doc *Docling) Scrape(ctx context.Context, rawURL string) (string, error) {
	body := client.D{
		"http_sources": []client.D{
			{"url": rawURL},
		},
		"options": client.D{
			"to_formats": []string{"md"},
		},
	}

	var resp response
	if err := doc.cln.Do(ctx, http.MethodPost, doc.endpoint, body, &resp); err != nil {
		return "", fmt.Errorf("convert: %w", err)
	}

	if resp.Status != "" && resp.Status != "success" {
		return "", fmt.Errorf("convert: status %s: %s", resp.Status, strings.Join(resp.Errors, "; "))
	}

	md := strings.TrimSpace(resp.Document.MDContent)
	if md == "" {
		return "", ErrNoContent
	}

	return md, nil
}
