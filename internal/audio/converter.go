package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v5"
)

// Converter drives a third-party converter site as the slow fallback tier:
// submit the video URL, wait for the site's asynchronous rendering to
// produce a download link, then transfer the file.
type Converter struct {
	siteURL string
	tempDir string
	maxWait time.Duration
	http    *http.Client
}

func NewConverter(siteURL, tempDir string, maxWait time.Duration) *Converter {
	return &Converter{
		siteURL: siteURL,
		tempDir: tempDir,
		maxWait: maxWait,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Converter) Name() string { return "converter" }

// Available is true whenever a site URL is configured; the site itself is
// only probed on an actual attempt.
func (c *Converter) Available() bool { return c.siteURL != "" }

// Fetch submits the video URL, polls for the produced link within the
// configured wait ceiling and streams the file to the hash-named target.
func (c *Converter) Fetch(ctx context.Context, videoURL string) (string, error) {
	final := cachedPath(c.tempDir, videoURL, ".mp3")
	if reusable(final) {
		return final, nil
	}

	link, err := c.waitForLink(ctx, videoURL)
	if err != nil {
		return "", fmt.Errorf("converter site: %w", err)
	}

	if err := c.transfer(ctx, link, final); err != nil {
		return "", fmt.Errorf("converter download: %w", err)
	}
	return final, nil
}

// waitForLink re-submits the conversion request until the rendered page
// contains a download link or the wait ceiling passes. The site renders
// asynchronously, so early responses legitimately hold no link yet.
func (c *Converter) waitForLink(ctx context.Context, videoURL string) (string, error) {
	operation := func() (string, error) {
		page, err := c.submit(ctx, videoURL)
		if err != nil {
			return "", backoff.Permanent(err)
		}

		link := findDownloadLink(page)
		if link == "" {
			return "", fmt.Errorf("no download link yet")
		}
		return link, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 2 * time.Second
	bo.MaxInterval = 15 * time.Second

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxElapsedTime(c.maxWait))
}

func (c *Converter) submit(ctx context.Context, videoURL string) (*goquery.Document, error) {
	form := url.Values{"url": {videoURL}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.siteURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

// findDownloadLink locates the produced media link in the rendered page.
func findDownloadLink(doc *goquery.Document) string {
	var link string
	doc.Find("a.download-link, a[download]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if href, ok := sel.Attr("href"); ok && href != "" {
			link = href
			return false
		}
		return true
	})
	return link
}

// transfer streams the produced file into place via a .part rename.
func (c *Converter) transfer(ctx context.Context, link, final string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	part := partPath(final)
	file, err := os.Create(part)
	if err != nil {
		return err
	}

	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		os.Remove(part)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(part)
		return err
	}

	if err := os.Rename(part, final); err != nil {
		os.Remove(part)
		if reusable(final) {
			return nil
		}
		return err
	}
	return nil
}
