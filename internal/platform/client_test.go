package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveVideoID(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		want string
		err  error
	}{
		{name: "full url", ref: "https://www.bilibili.com/video/BV1xx411c7XZ", want: "BV1xx411c7XZ"},
		{name: "url with query", ref: "https://www.bilibili.com/video/BV1xx411c7XZ?p=2", want: "BV1xx411c7XZ"},
		{name: "bare id", ref: "BV1xx411c7XZ", want: "BV1xx411c7XZ"},
		{name: "short link", ref: "https://b23.tv/abcdef", err: ErrShortLink},
		{name: "garbage", ref: "https://example.com/watch?v=nope", err: ErrBadReference},
		{name: "empty", ref: "", err: ErrBadReference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveVideoID(tt.ref)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVideoInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/x/web-interface/view", r.URL.Path)
		assert.Equal(t, "BV1demo", r.URL.Query().Get("bvid"))
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla")
		assert.Equal(t, "https://www.bilibili.com", r.Header.Get("Referer"))

		fmt.Fprint(w, `{"code":0,"message":"0","data":{
			"title":"测试视频","duration":330,"cid":112233,"aid":445566,
			"desc":"demo","owner":{"name":"uploader"}}}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", 1)
	info, err := client.VideoInfo(context.Background(), "BV1demo")

	require.NoError(t, err)
	assert.Equal(t, "BV1demo", info.BVID)
	assert.Equal(t, "测试视频", info.Title)
	assert.Equal(t, 330, info.Duration)
	assert.Equal(t, int64(112233), info.CID)
	assert.Equal(t, int64(445566), info.AID)
	assert.Equal(t, "uploader", info.Owner)
}

func TestVideoInfoNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":-404,"message":"啥都木有","data":null}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", 1)
	_, err := client.VideoInfo(context.Background(), "BV1gone")

	assert.ErrorIs(t, err, ErrVideoNotFound)
}

func TestCaptionsDownloadsFirstTrack(t *testing.T) {
	var base string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/x/player/v2":
			assert.Equal(t, "112233", r.URL.Query().Get("cid"))
			fmt.Fprintf(w, `{"code":0,"data":{"subtitle":{"subtitles":[
				{"subtitle_url":"%s/captions.json"}]}}}`, base)
		case "/captions.json":
			fmt.Fprint(w, `{"body":[{"from":0,"to":3.5,"content":"第一句"},{"from":3.5,"to":6,"content":"第二句"}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	base = srv.URL

	client := NewClient(srv.URL, "", 1)
	entries, err := client.Captions(context.Background(), "BV1demo", 112233)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "第一句", entries[0].Content)
	assert.Equal(t, 3.5, entries[0].To)
}

func TestCaptionsAbsentIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":0,"data":{"subtitle":{"subtitles":[]}}}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", 1)

	entries, err := client.Captions(context.Background(), "BV1demo", 1)
	require.NoError(t, err)
	assert.Nil(t, entries)

	entries, err = client.AICaptions(context.Background(), "BV1demo", 1)
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestAICaptions(t *testing.T) {
	var base string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/x/player/v2":
			fmt.Fprintf(w, `{"code":0,"data":{"subtitle":{
				"subtitles":[],
				"ai_subtitle":{"subtitle_url":"%s/ai.json"}}}}`, base)
		case "/ai.json":
			fmt.Fprint(w, `{"body":[{"from":1,"to":2,"content":"ai line"}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	base = srv.URL

	client := NewClient(srv.URL, "", 1)
	entries, err := client.AICaptions(context.Background(), "BV1demo", 1)

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ai line", entries[0].Content)
}

func TestCookieHeaderForwarded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "SESSDATA=abc", r.Header.Get("Cookie"))
		fmt.Fprint(w, `{"code":0,"data":{"title":"x","duration":1,"cid":1,"aid":1,"owner":{"name":"n"}}}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "SESSDATA=abc", 1)
	_, err := client.VideoInfo(context.Background(), "BV1demo")
	require.NoError(t, err)
}
