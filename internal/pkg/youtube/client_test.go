package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"newsreel/internal/config"
	"newsreel/internal/model/render"
	"newsreel/internal/pkg/retry"
)

func newTestClient(endpoint string) *Client {
	return &Client{
		http:      http.DefaultClient,
		cfg:       &config.YouTubeConfig{CategoryID: "25"},
		endpoint:  endpoint,
		chunkSize: 8 << 20,
		retry:     retry.Config{Attempts: 2, BaseDelay: time.Millisecond},
	}
}

func TestCreateSession(t *testing.T) {
	Convey("Given video metadata for a 40 MiB artifact", t, func() {
		meta := VideoMeta{
			Title:       "Morning briefing",
			Description: "Daily summary",
			Tags:        []string{"news"},
			Privacy:     render.PrivacyUnlisted,
		}

		Convey("the session request carries the metadata and declared size", func() {
			var got yt.Video
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("uploadType") != "resumable" {
					t.Errorf("uploadType = %q", r.URL.Query().Get("uploadType"))
				}
				if r.URL.Query().Get("part") != "snippet,status" {
					t.Errorf("part = %q", r.URL.Query().Get("part"))
				}
				if r.Header.Get("X-Upload-Content-Type") != "video/mp4" {
					t.Errorf("content type header = %q", r.Header.Get("X-Upload-Content-Type"))
				}
				if r.Header.Get("X-Upload-Content-Length") != "41943040" {
					t.Errorf("content length header = %q", r.Header.Get("X-Upload-Content-Length"))
				}
				if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
					t.Errorf("decode metadata: %v", err)
				}
				w.Header().Set("Location", "http://upload.example/session/abc")
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			sess, err := newTestClient(server.URL).CreateSession(context.Background(), meta, 40<<20)

			So(err, ShouldBeNil)
			So(sess.uploadURL, ShouldEqual, "http://upload.example/session/abc")
			So(sess.total, ShouldEqual, 40<<20)
			So(got.Snippet.Title, ShouldEqual, "Morning briefing")
			So(got.Snippet.Tags, ShouldResemble, []string{"news"})
			So(got.Snippet.CategoryId, ShouldEqual, "25") // client default applied
			So(got.Status.PrivacyStatus, ShouldEqual, "unlisted")
		})

		Convey("a blocked video never reaches the platform", func() {
			client := newTestClient("http://127.0.0.1:1")
			meta.Privacy = render.PrivacyBlocked

			_, err := client.CreateSession(context.Background(), meta, 40<<20)

			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "blocked")
		})

		Convey("a non-200 response is a protocol error", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
				fmt.Fprint(w, "quota exceeded")
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).CreateSession(context.Background(), meta, 40<<20)

			So(IsProtocolError(err), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "403")
			So(err.Error(), ShouldContainSubstring, "quota exceeded")
		})

		Convey("a 200 without a session URL is a protocol error", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).CreateSession(context.Background(), meta, 40<<20)

			So(IsProtocolError(err), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "Location")
		})

		Convey("a non-positive size is rejected before any request", func() {
			_, err := newTestClient("http://127.0.0.1:1").CreateSession(context.Background(), meta, 0)

			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "must be positive")
		})
	})
}

// pollClient wires the generated API client at a fake endpoint so the
// processing poll can be driven by canned list responses.
func pollClient(t *testing.T, serverURL string, cfg *config.YouTubeConfig) *Client {
	t.Helper()
	service, err := yt.NewService(context.Background(),
		option.WithEndpoint(serverURL),
		option.WithHTTPClient(http.DefaultClient))
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	return &Client{service: service, cfg: cfg}
}

func listResponse(status, processing string) string {
	body := map[string]any{
		"kind": "youtube#videoListResponse",
		"items": []map[string]any{{
			"status":            map[string]any{"uploadStatus": status},
			"processingDetails": map[string]any{"processingStatus": processing},
		}},
	}
	data, _ := json.Marshal(body)
	return string(data)
}

func TestPollProcessing(t *testing.T) {
	Convey("Given a platform that finishes processing on the second check", t, func() {
		var calls atomic.Int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if calls.Add(1) == 1 {
				fmt.Fprint(w, listResponse("uploaded", "processing"))
				return
			}
			fmt.Fprint(w, listResponse("processed", "succeeded"))
		}))
		defer server.Close()

		client := pollClient(t, server.URL, &config.YouTubeConfig{
			PollInterval: 5 * time.Millisecond,
			PollTimeout:  2 * time.Second,
		})

		Convey("the poll returns once the video is serveable", func() {
			err := client.PollProcessing(context.Background(), "vid-1")

			So(err, ShouldBeNil)
			So(calls.Load(), ShouldEqual, 2)
		})
	})

	Convey("Given a platform that reports a processing failure", t, func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"items":[{"status":{"uploadStatus":"failed","failureReason":"codec"}}]}`)
		}))
		defer server.Close()

		client := pollClient(t, server.URL, &config.YouTubeConfig{PollInterval: 5 * time.Millisecond})

		Convey("the poll surfaces the platform's reason", func() {
			err := client.PollProcessing(context.Background(), "vid-1")

			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "codec")
		})
	})

	Convey("Given a platform that rejects the video", t, func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"items":[{"status":{"uploadStatus":"rejected","rejectionReason":"duplicate"}}]}`)
		}))
		defer server.Close()

		client := pollClient(t, server.URL, &config.YouTubeConfig{PollInterval: 5 * time.Millisecond})

		Convey("the poll surfaces the rejection", func() {
			err := client.PollProcessing(context.Background(), "vid-1")

			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "duplicate")
		})
	})

	Convey("Given a video the platform has never heard of", t, func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"items":[]}`)
		}))
		defer server.Close()

		client := pollClient(t, server.URL, &config.YouTubeConfig{PollInterval: 5 * time.Millisecond})

		Convey("the poll fails immediately", func() {
			err := client.PollProcessing(context.Background(), "vid-404")

			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "not found")
		})
	})

	Convey("Given a platform stuck in processing", t, func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, listResponse("uploaded", "processing"))
		}))
		defer server.Close()

		client := pollClient(t, server.URL, &config.YouTubeConfig{
			PollInterval: 5 * time.Millisecond,
			PollTimeout:  40 * time.Millisecond,
		})

		Convey("the poll gives up at the configured deadline", func() {
			err := client.PollProcessing(context.Background(), "vid-1")

			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "poll ended")
		})
	})
}
