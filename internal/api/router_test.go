package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/audioforge/ttsgate/internal/api"
	"github.com/audioforge/ttsgate/internal/auth"
	"github.com/audioforge/ttsgate/internal/config"
)

const testJWTSecret = "router-test-secret"

// newTestServer boots the router against an unreachable redis and no
// database. The mock provider is the default, so synthesis works with no
// engine assets and caching degrades to regenerating every request. An
// empty jwtSecret leaves the API open.
func newTestServer(t *testing.T, jwtSecret string) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			CORSOrigins:    []string{"*"},
			RateLimitRPS:   100,
			RateLimitBurst: 200,
		},
		Redis: config.RedisConfig{Addr: "127.0.0.1:1"},
		Auth:  config.AuthConfig{JWTSecret: jwtSecret},
		TTS: config.TTSConfig{
			DefaultProvider: "mock",
			DefaultVoice:    "af_alloy",
			DefaultLanguage: "en-us",
			MaxTextLength:   5000,
			NormalizeTarget: 0.95,
		},
		Kokoro: config.KokoroConfig{
			ModelPath:  "testdata/nonexistent.onnx",
			VoicesPath: "testdata/nonexistent.bin",
		},
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	t.Cleanup(func() { rdb.Close() })

	srv := httptest.NewServer(api.NewRouter(nil, rdb, cfg, nil).Setup())
	t.Cleanup(srv.Close)
	return srv
}

func mintToken(t *testing.T, role string) string {
	t.Helper()
	claims := &auth.Claims{
		Sub:  "user-1",
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return token
}

func TestRouterHealthz(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, "")

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "ok", body["status"])
}

func TestRouterReadyzReportsDeadRedis(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, "")

	resp, err := http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "unhealthy", body.Status)
	require.Contains(t, body.Checks["redis"], "unhealthy")
	require.NotContains(t, body.Checks, "database")
}

func TestRouterServiceInfo(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, "")

	resp, err := http.Get(srv.URL + "/api/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Service         string   `json:"service"`
		DefaultProvider string   `json:"default_provider"`
		Providers       []string `json:"providers"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "ttsgate", body.Service)
	require.Equal(t, "mock", body.DefaultProvider)
	require.Contains(t, body.Providers, "mock")
}

func TestRouterSynthesizeServesMockDefault(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, "")

	resp, err := http.Post(srv.URL+"/api/v1/tts", "application/json",
		strings.NewReader(`{"text":"Routing check"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "audio/wav", resp.Header.Get("Content-Type"))
	require.Equal(t, "mock", resp.Header.Get("X-TTS-Provider"))
	require.Equal(t, "af_alloy", resp.Header.Get("X-TTS-Voice"))

	audio, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(audio), "RIFF"))
}

func TestRouterSynthesizeValidation(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, "")

	resp, err := http.Post(srv.URL+"/api/v1/tts", "application/json",
		strings.NewReader(`{"text":"hi","speed":9}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouterSynthesizeUnknownProvider(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, "")

	resp, err := http.Post(srv.URL+"/api/v1/tts?provider=bark", "application/json",
		strings.NewReader(`{"text":"hi"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Contains(t, body["error"], "provider not found")
}

func TestRouterFormats(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, "")

	resp, err := http.Get(srv.URL + "/api/v1/tts/formats")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Formats []struct {
			ID       string `json:"id"`
			MimeType string `json:"mime_type"`
		} `json:"formats"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Formats, 2)
	require.Equal(t, "wav", body.Formats[0].ID)
	require.Equal(t, "audio/wav", body.Formats[0].MimeType)
	require.Equal(t, "mp3", body.Formats[1].ID)
}

func TestRouterDocumentSpeak(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "note.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("Read this aloud."))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("voice", "af_alloy"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/v1/tts/document", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "audio/wav", resp.Header.Get("Content-Type"))
	require.Equal(t, "mock", resp.Header.Get("X-TTS-Provider"))

	audio, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(audio), "RIFF"))
}

func TestRouterDocumentAsyncDegradesWithoutRedis(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "note.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("Queue this one."))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("async", "true"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/v1/tts/document", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "failed to create job", body["error"])
}

func TestRouterBearerAuthGuardsAPI(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, testJWTSecret)

	// Liveness stays open.
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The API demands a token.
	resp, err = http.Post(srv.URL+"/api/v1/tts", "application/json",
		strings.NewReader(`{"text":"hi"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/tts",
		strings.NewReader(`{"text":"hi"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+mintToken(t, "user"))

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "mock", resp.Header.Get("X-TTS-Provider"))
}

func TestRouterAdminAuth(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, testJWTSecret)
	usageURL := srv.URL + "/api/v1/admin/usage"

	get := func(token string) *http.Response {
		req, err := http.NewRequest(http.MethodGet, usageURL, nil)
		require.NoError(t, err)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	resp := get("")
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = get("not-a-token")
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = get(mintToken(t, "user"))
	resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	// An admin passes auth; without a database the handler reports the
	// feature unavailable.
	resp = get(mintToken(t, "admin"))
	resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRouterCORSPreflight(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, "")

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/tts", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://player.example.com")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "https://player.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Contains(t, resp.Header.Get("Access-Control-Expose-Headers"), "X-TTS-Provider")
}

func TestRouterJobCreationDegradesWithoutRedis(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, "")

	resp, err := http.Post(srv.URL+"/api/v1/tts/jobs", "application/json",
		strings.NewReader(`{"text":"queued speech"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "failed to create job", body["error"])
}
