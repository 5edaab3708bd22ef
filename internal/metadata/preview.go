package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Preview is what the storefront needs to render an asset card without
// fetching the token metadata itself.
type Preview struct {
	URI         string    `json:"uri"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Image       string    `json:"image,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// jsonMetadata covers the common token metadata shape. External URLs and
// attributes are ignored.
type jsonMetadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

type Previewer struct {
	httpClient *http.Client
	gateway    string
	log        *zap.Logger
	maxRetries int
}

func NewPreviewer(timeoutMS, maxRetries int, gateway string, log *zap.Logger) *Previewer {
	return &Previewer{
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutMS) * time.Millisecond,
		},
		gateway:    strings.TrimSuffix(gateway, "/"),
		log:        log,
		maxRetries: maxRetries,
	}
}

// Fetch resolves the URI through the configured gateway and extracts a
// preview from JSON token metadata or an HTML page's OpenGraph tags.
func (p *Previewer) Fetch(ctx context.Context, uri string) (*Preview, error) {
	url := p.resolve(uri)

	var (
		body        []byte
		contentType string
		lastErr     error
	)

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json, text/html")

		resp, err := p.httpClient.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(attempt+1) * 500 * time.Millisecond)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
			time.Sleep(time.Duration(attempt+1) * 500 * time.Millisecond)
			continue
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		contentType = resp.Header.Get("Content-Type")
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		lastErr = nil
		break
	}

	if lastErr != nil {
		return nil, lastErr
	}

	preview := &Preview{
		URI:       uri,
		FetchedAt: time.Now(),
	}

	if isJSON(contentType, body) {
		var meta jsonMetadata
		if err := json.Unmarshal(body, &meta); err != nil {
			return nil, fmt.Errorf("decode metadata %s: %w", uri, err)
		}
		preview.Title = meta.Name
		preview.Description = meta.Description
		preview.Image = p.resolve(meta.Image)
		return preview, nil
	}

	if err := p.parseHTML(preview, strings.NewReader(string(body))); err != nil {
		return nil, err
	}
	return preview, nil
}

func (p *Previewer) parseHTML(preview *Preview, r io.Reader) error {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return err
	}

	doc.Find(`meta[property^="og:"]`).Each(func(_ int, s *goquery.Selection) {
		prop, _ := s.Attr("property")
		content, _ := s.Attr("content")
		if content == "" {
			return
		}
		switch prop {
		case "og:title":
			preview.Title = content
		case "og:description":
			preview.Description = content
		case "og:image":
			preview.Image = content
		}
	})

	// Fallbacks when the page carries no OpenGraph tags
	if preview.Title == "" {
		preview.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if preview.Description == "" {
		if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
			preview.Description = desc
		}
	}
	return nil
}

// resolve rewrites ipfs:// URIs to the HTTP gateway. Other schemes pass
// through untouched.
func (p *Previewer) resolve(uri string) string {
	if strings.HasPrefix(uri, "ipfs://") {
		return p.gateway + "/ipfs/" + strings.TrimPrefix(uri, "ipfs://")
	}
	return uri
}

func isJSON(contentType string, body []byte) bool {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		if mt == "application/json" || strings.HasSuffix(mt, "+json") {
			return true
		}
	}
	trimmed := strings.TrimLeftFunc(string(body), func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	return strings.HasPrefix(trimmed, "{")
}
