package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"mealmail/internal/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const signingKey = "key-3ax6xnjp29jd6fds4gc373sgvjxteol0"

func signedRouter() *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.POST("/webhook", middleware.VerifySignature(signingKey, 5*time.Minute), func(c *gin.Context) {
		c.String(http.StatusOK, c.PostForm("subject"))
	})
	return r
}

func signedForm(ts time.Time, key string) url.Values {
	timestamp := strconv.FormatInt(ts.Unix(), 10)
	token := "b7c2d7a0f1a54c4a8f1e"
	return url.Values{
		"subject":   {"Order Confirmation"},
		"timestamp": {timestamp},
		"token":     {token},
		"signature": {middleware.Sign(key, timestamp, token)},
	}
}

func postForm(r http.Handler, form url.Values) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.ServeHTTP(w, req)
	return w
}

func TestVerifySignature_ValidFormSignature(t *testing.T) {
	w := postForm(signedRouter(), signedForm(time.Now(), signingKey))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Order Confirmation", w.Body.String())
}

func TestVerifySignature_WrongKey(t *testing.T) {
	w := postForm(signedRouter(), signedForm(time.Now(), "other-key"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_SIGNATURE")
}

func TestVerifySignature_StaleTimestamp(t *testing.T) {
	w := postForm(signedRouter(), signedForm(time.Now().Add(-time.Hour), signingKey))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "outside allowed window")
}

func TestVerifySignature_Missing(t *testing.T) {
	w := postForm(signedRouter(), url.Values{"subject": {"x"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVerifySignature_HeadersForJSONBody(t *testing.T) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"subject":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderWebhookTimestamp, timestamp)
	req.Header.Set(middleware.HeaderWebhookToken, "tok")
	req.Header.Set(middleware.HeaderWebhookSignature, middleware.Sign(signingKey, timestamp, "tok"))
	signedRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestVerifySignature_DisabledWithoutKey(t *testing.T) {
	r := gin.New()
	r.POST("/webhook", middleware.VerifySignature("", time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })
	w := postForm(r, url.Values{"subject": {"x"}})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(middleware.ContextKeyRequestID)) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/x", http.NoBody)
	r.ServeHTTP(w, req)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, w.Header().Get("X-Request-ID"), w.Body.String())

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/x", http.NoBody)
	req.Header.Set("X-Request-ID", "abc-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
}

func TestRecovery_ReturnsEnvelope(t *testing.T) {
	r := gin.New()
	r.Use(middleware.Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/boom", http.NoBody)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestCORS_AllowedOrigin(t *testing.T) {
	r := gin.New()
	r.Use(middleware.CORS([]string{"https://app.example.com"}))
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.Header.Set("Origin", "https://app.example.com")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_DisallowedOriginAndPreflight(t *testing.T) {
	r := gin.New()
	r.Use(middleware.CORS([]string{"https://app.example.com"}))
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodOptions, "/test", http.NoBody)
	req.Header.Set("Origin", "https://evil.com")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
