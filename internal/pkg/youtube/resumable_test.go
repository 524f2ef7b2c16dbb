package youtube

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"newsreel/internal/pkg/retry"
)

const testChunk = 256 * 1024

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// resumableBackend fakes the platform's resumable endpoint. It persists
// chunk bodies at their declared offsets and acknowledges cumulatively,
// with optional persistence shortfalls and header omissions per call.
type resumableBackend struct {
	mu       sync.Mutex
	total    int64
	received []byte
	ranges   []string

	// persistShort, keyed by call index, makes the backend keep only that
	// many bytes of the chunk.
	persistShort map[int]int
	// omitRange, keyed by call index, drops the Range header from the 308.
	omitRange map[int]bool
	// failFirst returns these statuses before behaving, one per call.
	failFirst []int

	calls int
}

func (b *resumableBackend) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		call := b.calls
		b.calls++

		if len(b.failFirst) > 0 {
			status := b.failFirst[0]
			b.failFirst = b.failFirst[1:]
			w.WriteHeader(status)
			return
		}

		var start, end, total int64
		if _, err := fmt.Sscanf(r.Header.Get("Content-Range"), "bytes %d-%d/%d", &start, &end, &total); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b.ranges = append(b.ranges, r.Header.Get("Content-Range"))

		body, err := io.ReadAll(r.Body)
		if err != nil || int64(len(body)) != end-start+1 || start != int64(len(b.received)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		keep := len(body)
		if short, ok := b.persistShort[call]; ok {
			keep = short
		}
		b.received = append(b.received, body[:keep]...)

		if int64(len(b.received)) == b.total {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"id": "yt-video-1", "kind": "youtube#video"}`))
			return
		}
		if !b.omitRange[call] {
			w.Header().Set("Range", fmt.Sprintf("bytes=0-%d", len(b.received)-1))
		}
		w.WriteHeader(http.StatusPermanentRedirect)
	}
}

func newTestSession(url string, total int64) *UploadSession {
	return &UploadSession{
		client:    http.DefaultClient,
		uploadURL: url,
		total:     total,
		chunkSize: testChunk,
		retry:     retry.Config{Attempts: 3, BaseDelay: time.Millisecond},
	}
}

func TestUploadSession(t *testing.T) {
	Convey("Given a resumable upload of 600000 bytes in 256 KiB chunks", t, func() {
		source := pattern(600000)

		Convey("the happy path sends aligned chunks and returns the video id", func() {
			backend := &resumableBackend{total: 600000}
			server := httptest.NewServer(backend.handler())
			defer server.Close()

			sess := newTestSession(server.URL, 600000)
			src := &countingReader{r: bytes.NewReader(source)}

			id, err := sess.Upload(context.Background(), src)

			So(err, ShouldBeNil)
			So(id, ShouldEqual, "yt-video-1")
			So(backend.received, ShouldResemble, source)
			So(backend.ranges, ShouldResemble, []string{
				"bytes 0-262143/600000",
				"bytes 262144-524287/600000",
				"bytes 524288-599999/600000",
			})
			So(sess.BytesAcknowledged(), ShouldEqual, 600000)
			So(sess.DegradedAcks(), ShouldEqual, 0)
			So(src.n, ShouldEqual, 600000)
		})

		Convey("a short acknowledgement keeps the tail buffered without re-reading the source", func() {
			backend := &resumableBackend{total: 600000, persistShort: map[int]int{0: 131072}}
			server := httptest.NewServer(backend.handler())
			defer server.Close()

			sess := newTestSession(server.URL, 600000)
			src := &countingReader{r: bytes.NewReader(source)}

			id, err := sess.Upload(context.Background(), src)

			So(err, ShouldBeNil)
			So(id, ShouldEqual, "yt-video-1")
			So(backend.received, ShouldResemble, source)
			// The resend after the short ack tops back up to a full chunk.
			So(backend.ranges[1], ShouldEqual, "bytes 131072-393215/600000")
			for _, sent := range backend.ranges[:len(backend.ranges)-1] {
				var start, end, total int64
				fmt.Sscanf(sent, "bytes %d-%d/%d", &start, &end, &total)
				So((end-start+1)%resumableChunkAlign, ShouldEqual, 0)
			}
			So(src.n, ShouldEqual, 600000)
		})

		Convey("a continuation without a Range header advances by the sent length and is counted", func() {
			backend := &resumableBackend{total: 600000, omitRange: map[int]bool{0: true}}
			server := httptest.NewServer(backend.handler())
			defer server.Close()

			sess := newTestSession(server.URL, 600000)

			id, err := sess.Upload(context.Background(), bytes.NewReader(source))

			So(err, ShouldBeNil)
			So(id, ShouldEqual, "yt-video-1")
			So(sess.DegradedAcks(), ShouldEqual, 1)
			So(backend.received, ShouldResemble, source)
		})

		Convey("a 503 on a chunk is retried with the same range", func() {
			backend := &resumableBackend{total: 600000, failFirst: []int{http.StatusServiceUnavailable}}
			server := httptest.NewServer(backend.handler())
			defer server.Close()

			sess := newTestSession(server.URL, 600000)

			id, err := sess.Upload(context.Background(), bytes.NewReader(source))

			So(err, ShouldBeNil)
			So(id, ShouldEqual, "yt-video-1")
			So(backend.received, ShouldResemble, source)
			So(backend.ranges[0], ShouldEqual, "bytes 0-262143/600000")
		})

		Convey("a hard status abandons the session as a protocol error", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte("upload session expired"))
			}))
			defer server.Close()

			sess := newTestSession(server.URL, 600000)

			_, err := sess.Upload(context.Background(), bytes.NewReader(source))

			So(err, ShouldNotBeNil)
			var protoErr *ProtocolError
			So(errors.As(err, &protoErr), ShouldBeTrue)
			So(protoErr.StatusCode, ShouldEqual, http.StatusNotFound)
			So(protoErr.Body, ShouldContainSubstring, "expired")
		})

		Convey("an acknowledgement beyond the sent window is a protocol error", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.Copy(io.Discard, r.Body)
				w.Header().Set("Range", "bytes=0-999999")
				w.WriteHeader(http.StatusPermanentRedirect)
			}))
			defer server.Close()

			sess := newTestSession(server.URL, 600000)

			_, err := sess.Upload(context.Background(), bytes.NewReader(source))

			So(err, ShouldNotBeNil)
			So(IsProtocolError(err), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "outside the sent window")
		})

		Convey("a source shorter than the declared total fails before any partial final chunk", func() {
			backend := &resumableBackend{total: 600000}
			server := httptest.NewServer(backend.handler())
			defer server.Close()

			sess := newTestSession(server.URL, 600000)

			_, err := sess.Upload(context.Background(), bytes.NewReader(source[:500000]))

			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "source ended after")
		})

		Convey("a chunk size off the 256 KiB grid is rejected up front", func() {
			sess := newTestSession("http://localhost", 600000)
			sess.chunkSize = 300000

			_, err := sess.Upload(context.Background(), bytes.NewReader(source))

			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "not a positive multiple")
		})
	})
}

func TestParseAckRange(t *testing.T) {
	tests := []struct {
		header string
		want   int64
		ok     bool
	}{
		{"bytes=0-262143", 262144, true},
		{"bytes=0-0", 1, true},
		{" bytes=0-1023 ", 1024, true},
		{"", 0, false},
		{"bytes=100-200", 0, false},
		{"bytes=0-", 0, false},
		{"0-262143", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseAckRange(tt.header)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseAckRange(%q) = (%d, %v), want (%d, %v)", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}
