package renderer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"newsreel/internal/config"
	"newsreel/internal/model/render"
	"newsreel/internal/pkg/assembly"
	"newsreel/internal/pkg/storage"
)

type fakeSession struct {
	mu       sync.Mutex
	writes   map[string][]byte
	execs    []string
	probe    string
	artifact []byte

	downloadErr error
}

func newFakeSession(probe string, artifact []byte) *fakeSession {
	return &fakeSession{writes: make(map[string][]byte), probe: probe, artifact: artifact}
}

func (s *fakeSession) Workdir() string { return "/tmp/render_test" }

func (s *fakeSession) Exec(ctx context.Context, command string) (string, int, error) {
	s.mu.Lock()
	s.execs = append(s.execs, command)
	s.mu.Unlock()
	if strings.HasPrefix(command, "ffprobe") {
		return s.probe, 0, nil
	}
	return "", 0, nil
}

func (s *fakeSession) WriteFile(ctx context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes[name] = append([]byte(nil), data...)
	return nil
}

func (s *fakeSession) DownloadFile(ctx context.Context, name string, w io.Writer) (int64, error) {
	if s.downloadErr != nil {
		return 0, s.downloadErr
	}
	n, err := w.Write(s.artifact)
	return int64(n), err
}

type fakeBackend struct {
	err     error
	called  bool
	gotPlan *assembly.CompositionPlan
}

func (b *fakeBackend) Render(ctx context.Context, sess Session, plan *assembly.CompositionPlan) error {
	b.called = true
	b.gotPlan = plan
	return b.err
}

type fakeStore struct {
	objects map[string][]byte
}

func (f *fakeStore) Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error) {
	return "", fmt.Errorf("not implemented")
}

func (f *fakeStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	b, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", key)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *fakeStore) GetPresignedDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	return "", fmt.Errorf("not implemented")
}

func (f *fakeStore) Delete(ctx context.Context, key string) error        { return nil }
func (f *fakeStore) Exists(ctx context.Context, key string) (bool, error) { return false, nil }
func (f *fakeStore) GetFileInfo(ctx context.Context, key string) (*storage.FileInfo, error) {
	return nil, fmt.Errorf("not implemented")
}
func (f *fakeStore) GetStorageType() string { return "fake" }

func probeJSON(sizeBytes int) string {
	return fmt.Sprintf(`{
		"streams": [
			{"codec_name": "h264", "codec_type": "video", "width": 1080, "height": 1920},
			{"codec_name": "aac", "codec_type": "audio"}
		],
		"format": {"duration": "37.000000", "size": "%d", "format_name": "mov,mp4,m4a,3gp,3g2,mj2"}
	}`, sizeBytes)
}

func executorPlan(t *testing.T, slideRefs, audioRefs []string) *assembly.CompositionPlan {
	t.Helper()
	req := &render.RenderRequest{Orientation: render.OrientationPortrait, OverlayDate: "2026-08-24"}
	durations := []int64{12000, 15000, 9000}
	for i, ref := range slideRefs {
		req.Slides = append(req.Slides, render.SlideAsset{LocationRef: ref, SlideIndex: i})
	}
	for i, ref := range audioRefs {
		req.Audio = append(req.Audio, render.AudioAsset{LocationRef: ref, SlideIndex: i, DurationMs: durations[i]})
	}
	slots := assembly.BuildTimeline(req.Audio, testProfile())
	plan, err := assembly.BuildPlan(req, slots, testProfile())
	if err != nil {
		t.Fatalf("BuildPlan() error = %v", err)
	}
	return plan
}

func testExecutor(backend Renderer, store storage.Storage, sess Session, released *int) *Executor {
	sandboxCfg := &config.SandboxConfig{
		FetchConcurrency: 2,
		FetchAttempts:    2,
		RetryBaseDelay:   time.Millisecond,
		MaxAssetBytes:    1 << 20,
	}
	pipelineCfg := &config.PipelineConfig{
		RenderTimeout:        time.Minute,
		DurationToleranceSec: 0.5,
	}
	acquire := func(ctx context.Context, renderID string) (Session, func(), error) {
		return sess, func() { *released++ }, nil
	}
	return NewExecutor(sandboxCfg, pipelineCfg, backend, store, acquire)
}

func TestExecutorExecute(t *testing.T) {
	Convey("Given assets served over HTTP and from storage", t, func() {
		assets := map[string][]byte{
			"/s0.png": bytes.Repeat([]byte{0x89}, 128),
			"/s1.png": bytes.Repeat([]byte{0x88}, 128),
			"/a0.mp3": bytes.Repeat([]byte{0x01}, 64),
			"/a1.mp3": bytes.Repeat([]byte{0x02}, 64),
		}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, ok := assets[r.URL.Path]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write(body)
		}))
		defer server.Close()

		store := &fakeStore{objects: map[string][]byte{
			"slides/s2.png": bytes.Repeat([]byte{0x87}, 128),
			"audio/a2.mp3":  bytes.Repeat([]byte{0x03}, 64),
		}}

		plan := executorPlan(t,
			[]string{server.URL + "/s0.png", server.URL + "/s1.png", "slides/s2.png"},
			[]string{server.URL + "/a0.mp3", server.URL + "/a1.mp3", "audio/a2.mp3"})

		artifact := bytes.Repeat([]byte{0xAB}, 2048)

		Convey("the happy path stages, renders, verifies, and extracts", func() {
			sess := newFakeSession(probeJSON(len(artifact)), artifact)
			backend := &fakeBackend{}
			released := 0
			exec := testExecutor(backend, store, sess, &released)

			got, err := exec.Execute(context.Background(), "render-1", plan)

			So(err, ShouldBeNil)
			So(backend.called, ShouldBeTrue)
			So(backend.gotPlan, ShouldEqual, plan)
			So(released, ShouldEqual, 1)

			So(sess.writes, ShouldContainKey, "slide_00.png")
			So(sess.writes, ShouldContainKey, "slide_02.png")
			So(sess.writes, ShouldContainKey, "audio_01.mp3")
			So(sess.writes["slide_02.png"], ShouldResemble, store.objects["slides/s2.png"])

			So(got.SizeBytes, ShouldEqual, int64(len(artifact)))
			So(got.DurationMs, ShouldEqual, 37000)
			So(got.Width, ShouldEqual, 1080)
			So(got.Height, ShouldEqual, 1920)
			So(got.FPS, ShouldEqual, 30)

			spooled, err := os.ReadFile(got.SpoolPath)
			So(err, ShouldBeNil)
			So(spooled, ShouldResemble, artifact)
			os.Remove(got.SpoolPath)
		})

		Convey("an engine failure surfaces as an EngineError and still releases the session", func() {
			sess := newFakeSession(probeJSON(len(artifact)), artifact)
			backend := &fakeBackend{err: &EngineError{ExitCode: 1, Diagnostics: "xfade: invalid offset"}}
			released := 0
			exec := testExecutor(backend, store, sess, &released)

			_, err := exec.Execute(context.Background(), "render-2", plan)

			So(err, ShouldNotBeNil)
			So(IsEngineError(err), ShouldBeTrue)
			So(released, ShouldEqual, 1)

			// No probe after a failed render.
			for _, command := range sess.execs {
				So(command, ShouldNotStartWith, "ffprobe")
			}
		})

		Convey("a missing asset stops the run before the engine starts", func() {
			badPlan := executorPlan(t,
				[]string{server.URL + "/gone.png", server.URL + "/s1.png", "slides/s2.png"},
				[]string{server.URL + "/a0.mp3", server.URL + "/a1.mp3", "audio/a2.mp3"})

			sess := newFakeSession(probeJSON(len(artifact)), artifact)
			backend := &fakeBackend{}
			released := 0
			exec := testExecutor(backend, store, sess, &released)

			_, err := exec.Execute(context.Background(), "render-3", badPlan)

			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "returned 404")
			So(backend.called, ShouldBeFalse)
			So(released, ShouldEqual, 1)
		})

		Convey("an oversized asset is rejected", func() {
			sess := newFakeSession(probeJSON(len(artifact)), artifact)
			backend := &fakeBackend{}
			released := 0
			exec := testExecutor(backend, store, sess, &released)
			exec.maxAssetBytes = 16

			_, err := exec.Execute(context.Background(), "render-4", plan)

			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "exceeds the 16 byte limit")
			So(backend.called, ShouldBeFalse)
			So(released, ShouldEqual, 1)
		})

		Convey("a bad artifact fails verification and nothing is extracted", func() {
			badProbe := strings.Replace(probeJSON(len(artifact)), `"h264"`, `"vp9"`, 1)
			sess := newFakeSession(badProbe, artifact)
			backend := &fakeBackend{}
			released := 0
			exec := testExecutor(backend, store, sess, &released)

			_, err := exec.Execute(context.Background(), "render-5", plan)

			So(err, ShouldNotBeNil)
			So(IsEngineError(err), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "video codec vp9")
			So(released, ShouldEqual, 1)
		})

		Convey("an extraction size mismatch is an error", func() {
			sess := newFakeSession(probeJSON(len(artifact)+100), artifact)
			backend := &fakeBackend{}
			released := 0
			exec := testExecutor(backend, store, sess, &released)

			_, err := exec.Execute(context.Background(), "render-6", plan)

			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "container reports")
			So(released, ShouldEqual, 1)
		})

		Convey("an acquire failure propagates without a session to release", func() {
			backend := &fakeBackend{}
			exec := testExecutor(backend, store, nil, new(int))
			exec.acquire = func(ctx context.Context, renderID string) (Session, func(), error) {
				return nil, nil, fmt.Errorf("failed to acquire sandbox session: boom")
			}

			_, err := exec.Execute(context.Background(), "render-7", plan)

			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "failed to acquire")
			So(backend.called, ShouldBeFalse)
		})
	})
}
