// Package ingest loads book text from local files and URLs. Every source
// reduces to one plain-text string; the chunker and everything after it
// never know where the text came from.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"

	"github.com/ppiankov/bookgeo/internal/model"
	"github.com/ppiankov/bookgeo/internal/util"
	"github.com/ppiankov/bookgeo/internal/worker"
)

// ErrUnsupportedSource means the source is neither a URL nor a file type the
// loader can read.
var ErrUnsupportedSource = errors.New("unsupported source")

const defaultFetchTimeout = 60 * time.Second

// maxFetchBytes caps a single download. Plain-text books run a few megabytes;
// 20 MiB leaves room for scanned PDFs.
const maxFetchBytes = 20 << 20

// Loader reads book text from a path or URL.
type Loader struct {
	httpClient *http.Client
	robots     *robotsChecker
	limiter    *worker.Limiter
	userAgent  string
	maxBytes   int64
}

// NewLoader creates a Loader using the shared HTTP settings.
func NewLoader(httpCfg model.HTTPConfig) *Loader {
	userAgent := httpCfg.UserAgent
	if userAgent == "" {
		userAgent = "bookgeo/1.0"
	}

	client := util.NewHTTPClient(httpCfg, defaultFetchTimeout)

	return &Loader{
		httpClient: client,
		robots:     newRobotsChecker(client, robotsAgent(userAgent)),
		limiter:    worker.NewLimiter(1, 2),
		userAgent:  userAgent,
		maxBytes:   maxFetchBytes,
	}
}

// Load reads the source and returns its text. http(s) URLs are fetched,
// honoring robots.txt; local files are read by extension (.txt, .md or
// .pdf). limitChars > 0 truncates the text to that many runes.
func (l *Loader) Load(ctx context.Context, source string, limitChars int) (string, error) {
	var text string
	var err error

	switch {
	case strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://"):
		text, err = l.fetchURL(ctx, source)
	default:
		text, err = readFile(source)
	}
	if err != nil {
		return "", err
	}

	return truncateRunes(text, limitChars), nil
}

func readFile(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".text", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return string(data), nil

	case ".pdf":
		return readPDF(path)

	default:
		return "", fmt.Errorf("%w: %s (expected .txt, .md, .pdf or a URL)", ErrUnsupportedSource, path)
	}
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return pdfText(r)
}

// pdfText concatenates page text with blank lines between pages so page
// boundaries survive as paragraph boundaries.
func pdfText(r *pdf.Reader) (string, error) {
	var buf strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(text)
	}
	if buf.Len() == 0 {
		return "", fmt.Errorf("pdf contains no extractable text")
	}
	return buf.String(), nil
}

func (l *Loader) fetchURL(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}

	if !l.robots.allowed(ctx, parsed) {
		return "", fmt.Errorf("robots.txt disallows fetching %s", rawURL)
	}

	if err := l.limiter.Wait(ctx, parsed.Host); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "text/html,text/plain,application/pdf;q=0.9,*/*;q=0.8")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	switch {
	case strings.Contains(contentType, "pdf") || strings.HasSuffix(strings.ToLower(parsed.Path), ".pdf"):
		r, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
		if err != nil {
			return "", fmt.Errorf("parse pdf: %w", err)
		}
		return pdfText(r)

	case strings.Contains(contentType, "html"):
		return htmlToText(string(body))

	case strings.Contains(contentType, "text/plain"):
		return string(body), nil

	default:
		// No usable Content-Type. Markup means HTML, anything else is
		// treated as plain text.
		if bytes.HasPrefix(bytes.TrimLeft(body, " \t\r\n"), []byte("<")) {
			return htmlToText(string(body))
		}
		return string(body), nil
	}
}

// blockElements start a new paragraph in the extracted text. The chunker
// prefers paragraph boundaries, so keeping them matters.
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "section": true, "article": true,
}

// htmlToText extracts visible text, skipping script, style and head
// content. Block elements become paragraph breaks.
func htmlToText(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "head":
				return
			}
			if blockElements[n.Data] && buf.Len() > 0 && !strings.HasSuffix(buf.String(), "\n\n") {
				buf.WriteString("\n\n")
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if buf.Len() > 0 && !strings.HasSuffix(buf.String(), "\n") {
					buf.WriteString(" ")
				}
				buf.WriteString(text)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.TrimSpace(buf.String()), nil
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
