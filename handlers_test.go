package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taller-ocr/pkg/ocr"
)

const documentText = "MOTOR: ABC1234XY MARCA: TOYOTA MODELO: COROLLA 2020 AÑO: 2020 MATRICULA: AB 1234"

type stubRecognizer struct {
	mu    sync.Mutex
	calls int
	text  string
	err   error
	block bool
}

func (s *stubRecognizer) Name() string { return "stub" }

func (s *stubRecognizer) DetectDocumentText(ctx context.Context, _ []byte, _ []string) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.text, s.err
}

func (s *stubRecognizer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testConfig() Config {
	return Config{
		Port:           "0",
		AllowedOrigins: productionOrigins,
		Timeout:        5 * time.Second,
		Parallelism:    4,
		MaxUploadBytes: 6 << 20,
	}
}

func setupTestServer(t *testing.T, cfg Config, rec ocr.Recognizer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := testLogger()
	return newRouter(&server{cfg: cfg, svc: ocr.NewService(rec, log), engine: rec.Name(), log: log})
}

// helper to perform requests with an optional auth token
func performRequest(r http.Handler, req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func samplePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 64, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.White)
		}
	}
	for y := 4; y < 12; y++ {
		for x := 4; x < 20; x++ {
			img.Set(x, y, color.Black)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// uploadRequest builds a multipart request; an empty contentType lets the part default to
// application/octet-stream.
func uploadRequest(t *testing.T, field string, data []byte, contentType string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	var part io.Writer
	var err error
	if contentType == "" {
		part, err = mw.CreateFormFile(field, "doc.png")
	} else {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="doc"`)
		h.Set("Content-Type", contentType)
		part, err = mw.CreatePart(h)
	}
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/detectar-texto", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	r := setupTestServer(t, testConfig(), &stubRecognizer{})
	resp := performRequest(r, httptest.NewRequest(http.MethodGet, "/", nil), "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "OK", resp.Body.String())
}

func TestDetectarTextoSuccess(t *testing.T) {
	rec := &stubRecognizer{text: documentText}
	r := setupTestServer(t, testConfig(), rec)

	resp := performRequest(r, uploadRequest(t, "imagen", samplePNG(t), ""), "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	body := decodeBody(t, resp)
	assert.Equal(t, "ABC1234XY", body["motor"])
	assert.Equal(t, "TOYOTA", body["marca"])
	assert.Equal(t, "COROLLA 2020", body["modelo"])
	assert.Equal(t, "2020", body["anio"])
	assert.Equal(t, "AB 1234", body["matricula"])
	for _, k := range []string{"chasis", "cilindrada", "titulares"} {
		v, ok := body[k]
		assert.True(t, ok, "key %s present", k)
		assert.Nil(t, v, k)
	}
	assert.Equal(t, 4, rec.Calls())
}

func TestDetectarTextoMissingFile(t *testing.T) {
	rec := &stubRecognizer{text: documentText}
	r := setupTestServer(t, testConfig(), rec)

	resp := performRequest(r, uploadRequest(t, "otro", samplePNG(t), ""), "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, msgNoImage, decodeBody(t, resp)["error"])

	req := httptest.NewRequest(http.MethodPost, "/detectar-texto", nil)
	resp = performRequest(r, req, "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Zero(t, rec.Calls())
}

func TestDetectarTextoRejectsPDF(t *testing.T) {
	rec := &stubRecognizer{text: documentText}
	r := setupTestServer(t, testConfig(), rec)

	resp := performRequest(r, uploadRequest(t, "imagen", []byte("%PDF-1.4 fake"), "application/pdf"), "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, msgBadFormat, decodeBody(t, resp)["error"])
	assert.Zero(t, rec.Calls())
}

func TestDetectarTextoTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxUploadBytes = 1 << 10
	rec := &stubRecognizer{text: documentText}
	r := setupTestServer(t, cfg, rec)

	resp := performRequest(r, uploadRequest(t, "imagen", bytes.Repeat([]byte{0xff}, 200<<10), "image/jpeg"), "")
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)
	assert.Equal(t, msgTooLarge, decodeBody(t, resp)["error"])

	resp = performRequest(r, uploadRequest(t, "imagen", bytes.Repeat([]byte{0xff}, 4<<10), "image/jpeg"), "")
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)
	assert.Zero(t, rec.Calls())
}

func TestDetectarTextoNoText(t *testing.T) {
	rec := &stubRecognizer{text: "  \n"}
	r := setupTestServer(t, testConfig(), rec)

	resp := performRequest(r, uploadRequest(t, "imagen", samplePNG(t), "image/png"), "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, map[string]any{"error": msgNoText}, decodeBody(t, resp))
}

func TestDetectarTextoRecognitionFailure(t *testing.T) {
	rec := &stubRecognizer{err: assert.AnError}
	r := setupTestServer(t, testConfig(), rec)

	resp := performRequest(r, uploadRequest(t, "imagen", samplePNG(t), "image/png"), "")
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Equal(t, map[string]any{"error": msgInternal}, decodeBody(t, resp))
	assert.Equal(t, 4, rec.Calls())
}

func TestDetectarTextoCorruptImage(t *testing.T) {
	rec := &stubRecognizer{text: documentText}
	r := setupTestServer(t, testConfig(), rec)

	resp := performRequest(r, uploadRequest(t, "imagen", []byte("not really a png"), "image/png"), "")
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Zero(t, rec.Calls())
}

func TestDetectarTextoTimeout(t *testing.T) {
	rec := &stubRecognizer{block: true}
	r := setupTestServer(t, testConfig(), rec)

	req := uploadRequest(t, "imagen", samplePNG(t), "image/png")
	req.Header.Set("X-Request-Timeout", "0.05")
	resp := performRequest(r, req, "")
	assert.Equal(t, http.StatusGatewayTimeout, resp.Code)
	assert.Equal(t, msgTimeout, decodeBody(t, resp)["error"])
}

func TestJWTGuard(t *testing.T) {
	cfg := testConfig()
	cfg.JWTSecret = "test-secret"
	r := setupTestServer(t, cfg, &stubRecognizer{text: documentText})

	resp := performRequest(r, uploadRequest(t, "imagen", samplePNG(t), "image/png"), "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = performRequest(r, uploadRequest(t, "imagen", samplePNG(t), "image/png"), "garbage")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "front",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(cfg.JWTSecret))
	require.NoError(t, err)
	resp = performRequest(r, uploadRequest(t, "imagen", samplePNG(t), "image/png"), token)
	assert.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	// The liveness probe stays open.
	resp = performRequest(r, httptest.NewRequest(http.MethodGet, "/", nil), "")
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestEscaneosDisabled(t *testing.T) {
	r := setupTestServer(t, testConfig(), &stubRecognizer{})
	resp := performRequest(r, httptest.NewRequest(http.MethodGet, "/escaneos", nil), "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	r := setupTestServer(t, testConfig(), &stubRecognizer{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://tallervidesol.com")
	resp := performRequest(r, req, "")
	assert.Equal(t, "https://tallervidesol.com", resp.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	resp = performRequest(r, req, "")
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestRequestTimeoutHeader(t *testing.T) {
	s := &server{cfg: Config{Timeout: 10 * time.Second}}
	cases := map[string]time.Duration{
		"":    10 * time.Second,
		"2":   2 * time.Second,
		"30":  10 * time.Second,
		"abc": 10 * time.Second,
		"-1":  10 * time.Second,
	}
	for header, want := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodPost, "/detectar-texto", nil)
		if header != "" {
			c.Request.Header.Set("X-Request-Timeout", header)
		}
		assert.Equal(t, want, s.requestTimeout(c), "header %q", header)
	}
}
