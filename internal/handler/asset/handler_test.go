package asset

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/smartystreets/goconvey/convey"

	"newsreel/internal/model/asset"
	"newsreel/internal/service"
)

// fakeAssetService scripts the asset service behind the handlers.
type fakeAssetService struct {
	rec      *asset.Asset
	records  []*asset.Asset
	link     *service.AssetLink
	openData []byte
	err      error

	gotUpload *service.UploadAssetRequest
	gotData   []byte
	gotKind   string
	gotLimit  int
	gotOffset int
	deleted   []string
}

func (f *fakeAssetService) UploadAsset(ctx context.Context, req *service.UploadAssetRequest) (*asset.Asset, error) {
	f.gotUpload = req
	if req.Data != nil {
		f.gotData, _ = io.ReadAll(req.Data)
	}
	return f.rec, f.err
}

func (f *fakeAssetService) GetAsset(ctx context.Context, assetID string) (*asset.Asset, error) {
	return f.rec, f.err
}

func (f *fakeAssetService) ListAssets(ctx context.Context, kind string, limit, offset int) ([]*asset.Asset, int64, error) {
	f.gotKind, f.gotLimit, f.gotOffset = kind, limit, offset
	return f.records, int64(len(f.records)), f.err
}

func (f *fakeAssetService) AssetLink(ctx context.Context, assetID string, expiresIn time.Duration) (*service.AssetLink, error) {
	return f.link, f.err
}

func (f *fakeAssetService) OpenAsset(ctx context.Context, assetID string) (*asset.Asset, io.ReadCloser, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.rec, io.NopCloser(bytes.NewReader(f.openData)), nil
}

func (f *fakeAssetService) DeleteAsset(ctx context.Context, assetID string) error {
	f.deleted = append(f.deleted, assetID)
	return f.err
}

func newAssetRouter(svc service.AssetService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	hdl := NewHandler(svc)
	v1 := engine.Group("/api/v1")
	v1.POST("/assets", hdl.UploadAsset)
	v1.GET("/assets", hdl.ListAssets)
	v1.GET("/assets/:asset_id", hdl.GetAsset)
	v1.GET("/assets/:asset_id/download-url", hdl.GetDownloadURL)
	v1.GET("/assets/:asset_id/download", hdl.DownloadAsset)
	v1.DELETE("/assets/:asset_id", hdl.DeleteAsset)
	return engine
}

func doMultipart(engine *gin.Engine, path string, fields map[string]string, fileName string, fileBody []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	if fileName != "" {
		fw, _ := mw.CreateFormFile("file", fileName)
		fw.Write(fileBody)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	return envelope
}

func sampleAsset() *asset.Asset {
	now := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	return &asset.Asset{
		ID:          "asset-1",
		Kind:        asset.AssetKindSlide,
		Name:        "cover.png",
		Ext:         "png",
		StorageKey:  "assets/slide/asset-1.png",
		StorageType: "local",
		FileSize:    256,
		ContentType: "image/png",
		MD5:         "d41d8cd98f00b204e9800998ecf8427e",
		Status:      asset.AssetStatusReady,
		UploadedAt:  now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestUploadAssetEndpoint(t *testing.T) {
	Convey("Given the asset routes", t, func() {
		payload := bytes.Repeat([]byte{0x89}, 64)

		Convey("a multipart upload stages the file", func() {
			svc := &fakeAssetService{rec: sampleAsset()}
			engine := newAssetRouter(svc)

			w := doMultipart(engine, "/api/v1/assets", map[string]string{"kind": "slide"}, "cover.png", payload)

			So(w.Code, ShouldEqual, http.StatusCreated)
			envelope := decodeEnvelope(t, w)
			So(envelope["code"], ShouldEqual, 0)
			data := envelope["data"].(map[string]any)
			So(data["asset_id"], ShouldEqual, "asset-1")
			So(data["storage_key"], ShouldEqual, "assets/slide/asset-1.png")

			So(svc.gotUpload.Kind, ShouldEqual, asset.AssetKindSlide)
			So(svc.gotUpload.FileName, ShouldEqual, "cover.png")
			So(svc.gotUpload.Ext, ShouldEqual, "png")
			So(svc.gotData, ShouldResemble, payload)
		})

		Convey("a missing file part is a 400", func() {
			engine := newAssetRouter(&fakeAssetService{})

			w := doMultipart(engine, "/api/v1/assets", map[string]string{"kind": "slide"}, "", nil)

			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeEnvelope(t, w)["code"], ShouldEqual, 40001)
		})

		Convey("an unknown kind is a 400", func() {
			engine := newAssetRouter(&fakeAssetService{})

			w := doMultipart(engine, "/api/v1/assets", map[string]string{"kind": "subtitle"}, "cover.png", payload)

			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeEnvelope(t, w)["code"], ShouldEqual, 40001)
		})

		Convey("an oversized upload is a 413", func() {
			engine := newAssetRouter(&fakeAssetService{err: service.ErrAssetTooLarge})

			w := doMultipart(engine, "/api/v1/assets", map[string]string{"kind": "slide"}, "cover.png", payload)

			So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
			So(decodeEnvelope(t, w)["code"], ShouldEqual, 41301)
		})
	})
}

func TestAssetLookupEndpoints(t *testing.T) {
	Convey("Given the asset routes", t, func() {
		Convey("GET one asset returns its record", func() {
			engine := newAssetRouter(&fakeAssetService{rec: sampleAsset()})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/assets/asset-1", nil)
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusOK)
			data := decodeEnvelope(t, w)["data"].(map[string]any)
			So(data["id"], ShouldEqual, "asset-1")
			So(data["kind"], ShouldEqual, "slide")
			So(data["storage_key"], ShouldEqual, "assets/slide/asset-1.png")
		})

		Convey("an unknown asset is a 404", func() {
			engine := newAssetRouter(&fakeAssetService{err: service.ErrAssetNotFound})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/assets/missing", nil)
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decodeEnvelope(t, w)["code"], ShouldEqual, 40401)
		})

		Convey("the list endpoint passes filter and paging through", func() {
			svc := &fakeAssetService{records: []*asset.Asset{sampleAsset()}}
			engine := newAssetRouter(svc)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/assets?kind=slide&limit=5&offset=10", nil)
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusOK)
			So(svc.gotKind, ShouldEqual, "slide")
			So(svc.gotLimit, ShouldEqual, 5)
			So(svc.gotOffset, ShouldEqual, 10)

			data := decodeEnvelope(t, w)["data"].(map[string]any)
			So(data["total"], ShouldEqual, 1)
		})

		Convey("an unknown kind filter is a 400", func() {
			engine := newAssetRouter(&fakeAssetService{})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/assets?kind=subtitle", nil)
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("the download-url endpoint returns the presigned link", func() {
			link := &service.AssetLink{
				AssetID:     "asset-1",
				StorageKey:  "assets/slide/asset-1.png",
				URL:         "https://storage.example/assets/slide/asset-1.png?sig=abc",
				ExpiresAt:   time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC),
				FileName:    "cover.png",
				SizeBytes:   256,
				ContentType: "image/png",
			}
			engine := newAssetRouter(&fakeAssetService{link: link})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/assets/asset-1/download-url?expires_in=600", nil)
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusOK)
			data := decodeEnvelope(t, w)["data"].(map[string]any)
			So(data["download_url"], ShouldEqual, link.URL)
			So(data["file_name"], ShouldEqual, "cover.png")
		})

		Convey("the download endpoint streams the file", func() {
			body := []byte("slide image bytes")
			rec := sampleAsset()
			rec.FileSize = int64(len(body))
			engine := newAssetRouter(&fakeAssetService{rec: rec, openData: body})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/assets/asset-1/download", nil)
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.Bytes(), ShouldResemble, body)
			So(w.Header().Get("Content-Disposition"), ShouldContainSubstring, "cover.png")
		})

		Convey("DELETE removes the asset", func() {
			svc := &fakeAssetService{}
			engine := newAssetRouter(svc)

			req := httptest.NewRequest(http.MethodDelete, "/api/v1/assets/asset-1", nil)
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusOK)
			So(svc.deleted, ShouldResemble, []string{"asset-1"})
		})
	})
}
