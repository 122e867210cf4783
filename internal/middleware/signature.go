package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Signature headers used when the webhook body is JSON. Form posts carry the
// same values as timestamp, token and signature fields.
const (
	HeaderWebhookTimestamp = "X-Webhook-Timestamp"
	HeaderWebhookToken     = "X-Webhook-Token"
	HeaderWebhookSignature = "X-Webhook-Signature"
)

// Sign returns the hex HMAC-SHA256 of timestamp+token under key.
func Sign(key, timestamp, token string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(timestamp + token))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature rejects webhook calls whose HMAC signature does not match
// signingKey or whose timestamp is older than maxAge. An empty key disables
// the check.
func VerifySignature(signingKey string, maxAge time.Duration) gin.HandlerFunc {
	return verifySignature(signingKey, maxAge, time.Now)
}

func verifySignature(signingKey string, maxAge time.Duration, now func() time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		if signingKey == "" {
			c.Next()
			return
		}

		timestamp := valueOf(c, "timestamp", HeaderWebhookTimestamp)
		token := valueOf(c, "token", HeaderWebhookToken)
		signature := valueOf(c, "signature", HeaderWebhookSignature)

		if timestamp == "" || token == "" || signature == "" {
			abortSignature(c, "missing webhook signature")
			return
		}

		secs, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			abortSignature(c, "invalid webhook timestamp")
			return
		}
		if maxAge > 0 {
			age := now().Sub(time.Unix(secs, 0))
			if math.Abs(float64(age)) > float64(maxAge) {
				abortSignature(c, "webhook timestamp outside allowed window")
				return
			}
		}

		expected := Sign(signingKey, timestamp, token)
		if !hmac.Equal([]byte(expected), []byte(signature)) {
			log.Printf("[%s] middleware.VerifySignature: signature mismatch", c.GetString(ContextKeyRequestID))
			abortSignature(c, "invalid webhook signature")
			return
		}
		c.Next()
	}
}

func valueOf(c *gin.Context, field, header string) string {
	if v := c.GetHeader(header); v != "" {
		return v
	}
	return c.PostForm(field)
}

func abortSignature(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   gin.H{"code": "INVALID_SIGNATURE", "message": msg},
	})
}
