package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/JxcChen/bili-pro/internal/subtitle"
)

var (
	// ErrBadReference means the supplied reference contains no recognizable
	// video ID. Detected locally, no network call involved.
	ErrBadReference = errors.New("reference is not a valid bilibili video link")

	// ErrShortLink marks b23.tv short links, which this service does not
	// resolve. Reported distinctly so callers are not told "no captions".
	ErrShortLink = errors.New("b23.tv short links are not supported, paste the full video link")

	// ErrVideoNotFound means the platform reports the video as missing or
	// inaccessible.
	ErrVideoNotFound = errors.New("video does not exist or is not accessible")
)

var bvidPattern = regexp.MustCompile(`BV[a-zA-Z0-9]+`)

// ResolveVideoID extracts a BV identifier from a watch URL or a bare ID.
func ResolveVideoID(ref string) (string, error) {
	if match := bvidPattern.FindString(ref); match != "" {
		return match, nil
	}
	if strings.Contains(ref, "b23.tv") {
		return "", ErrShortLink
	}
	return "", ErrBadReference
}

// VideoInfo is the metadata the extraction pipeline needs per video.
type VideoInfo struct {
	BVID     string
	Title    string
	Duration int
	CID      int64
	AID      int64
	Owner    string
	Desc     string
}

// Client calls the bilibili REST API. All methods are idempotent reads.
type Client struct {
	base     string
	cookie   string
	http     *http.Client
	maxRetry int
}

func NewClient(base, cookie string, maxRetry int) *Client {
	return &Client{
		base:     strings.TrimSuffix(base, "/"),
		cookie:   cookie,
		maxRetry: maxRetry,
		http: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return errors.New("stopped after 10 redirects")
				}
				return nil
			},
		},
	}
}

type apiEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type viewData struct {
	Title    string `json:"title"`
	Duration int    `json:"duration"`
	CID      int64  `json:"cid"`
	AID      int64  `json:"aid"`
	Desc     string `json:"desc"`
	Owner    struct {
		Name string `json:"name"`
	} `json:"owner"`
}

type playerData struct {
	Subtitle struct {
		Subtitles []struct {
			SubtitleURL string `json:"subtitle_url"`
		} `json:"subtitles"`
		AISubtitle *struct {
			SubtitleURL string `json:"subtitle_url"`
		} `json:"ai_subtitle"`
	} `json:"subtitle"`
}

type captionBody struct {
	Body []subtitle.CaptionEntry `json:"body"`
}

// VideoInfo fetches title, duration and content IDs for a video.
// A platform-side "not found" code maps to ErrVideoNotFound.
func (c *Client) VideoInfo(ctx context.Context, bvid string) (*VideoInfo, error) {
	env, err := c.getEnvelope(ctx, c.base+"/x/web-interface/view?"+url.Values{"bvid": {bvid}}.Encode())
	if err != nil {
		return nil, err
	}
	if env.Code != 0 {
		return nil, fmt.Errorf("%w: %s", ErrVideoNotFound, env.Message)
	}

	var data viewData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("decode view response: %w", err)
	}

	return &VideoInfo{
		BVID:     bvid,
		Title:    data.Title,
		Duration: data.Duration,
		CID:      data.CID,
		AID:      data.AID,
		Owner:    data.Owner.Name,
		Desc:     data.Desc,
	}, nil
}

// Captions fetches the human caption track. A nil result with nil error is a
// normal miss: the video simply has no captions.
func (c *Client) Captions(ctx context.Context, bvid string, cid int64) ([]subtitle.CaptionEntry, error) {
	data, err := c.playerInfo(ctx, bvid, cid)
	if err != nil {
		return nil, err
	}
	if len(data.Subtitle.Subtitles) == 0 {
		return nil, nil
	}

	captionURL := data.Subtitle.Subtitles[0].SubtitleURL
	if captionURL == "" {
		return nil, nil
	}
	return c.downloadCaptions(ctx, captionURL)
}

// AICaptions fetches the platform-generated caption track, if any.
func (c *Client) AICaptions(ctx context.Context, bvid string, cid int64) ([]subtitle.CaptionEntry, error) {
	data, err := c.playerInfo(ctx, bvid, cid)
	if err != nil {
		return nil, err
	}
	ai := data.Subtitle.AISubtitle
	if ai == nil || ai.SubtitleURL == "" {
		return nil, nil
	}
	return c.downloadCaptions(ctx, ai.SubtitleURL)
}

func (c *Client) playerInfo(ctx context.Context, bvid string, cid int64) (*playerData, error) {
	query := url.Values{"bvid": {bvid}, "cid": {fmt.Sprintf("%d", cid)}}
	env, err := c.getEnvelope(ctx, c.base+"/x/player/v2?"+query.Encode())
	if err != nil {
		return nil, err
	}
	if env.Code != 0 {
		return nil, fmt.Errorf("player api code %d: %s", env.Code, env.Message)
	}

	var data playerData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("decode player response: %w", err)
	}
	return &data, nil
}

func (c *Client) downloadCaptions(ctx context.Context, captionURL string) ([]subtitle.CaptionEntry, error) {
	// Caption URLs come back scheme-relative.
	if strings.HasPrefix(captionURL, "//") {
		captionURL = "https:" + captionURL
	}

	raw, err := c.getWithRetry(ctx, captionURL)
	if err != nil {
		return nil, err
	}

	var body captionBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode caption body: %w", err)
	}
	return body.Body, nil
}

func (c *Client) getEnvelope(ctx context.Context, fullURL string) (*apiEnvelope, error) {
	raw, err := c.getWithRetry(ctx, fullURL)
	if err != nil {
		return nil, err
	}

	var env apiEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode api envelope: %w", err)
	}
	return &env, nil
}

// getWithRetry performs an HTTP GET with exponential backoff on retryable
// statuses. Connection errors and non-retryable statuses fail immediately.
func (c *Client) getWithRetry(ctx context.Context, fullURL string) ([]byte, error) {
	operation := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		c.setHeaders(req)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, fmt.Errorf("status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, backoff.Permanent(fmt.Errorf("status %d", resp.StatusCode))
		}

		return io.ReadAll(resp.Body)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(c.maxRetry)))
}

// setHeaders applies the browser profile bilibili expects from web clients.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Referer", "https://www.bilibili.com")
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}
}
