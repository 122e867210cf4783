package handler

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mealmail/internal/domain"
	"mealmail/internal/middleware"
	"mealmail/internal/service"
)

// WebhookHandler receives inbound emails from the mail provider.
type WebhookHandler struct {
	orderService service.OrderService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(orderService service.OrderService) *WebhookHandler {
	return &WebhookHandler{orderService: orderService}
}

// IgnoredResponse is returned for emails that are not order confirmations.
type IgnoredResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// inboundEmail holds the JSON variant of the webhook payload.
type inboundEmail struct {
	Subject   string `json:"subject"`
	Sender    string `json:"sender"`
	From      string `json:"from"`
	BodyHTML  string `json:"body-html"`
	BodyPlain string `json:"body-plain"`
	Body      string `json:"body"`
}

func (e inboundEmail) raw() domain.RawEmail {
	return domain.RawEmail{
		Subject: e.Subject,
		Sender:  firstNonEmpty(e.Sender, e.From),
		Body:    firstNonEmpty(e.BodyHTML, e.BodyPlain, e.Body),
	}
}

// Receive handles POST /webhook/email
func (h *WebhookHandler) Receive(c *gin.Context) {
	var in inboundEmail
	if strings.HasPrefix(c.ContentType(), "application/json") {
		if err := c.ShouldBindJSON(&in); err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
			return
		}
	} else {
		in = inboundEmail{
			Subject:   c.PostForm("subject"),
			Sender:    c.PostForm("sender"),
			From:      c.PostForm("from"),
			BodyHTML:  c.PostForm("body-html"),
			BodyPlain: c.PostForm("body-plain"),
			Body:      c.PostForm("body"),
		}
	}

	email := in.raw()
	if strings.TrimSpace(email.Body) == "" && strings.TrimSpace(email.Subject) == "" {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "email subject and body are empty")
		return
	}

	order, err := h.orderService.ProcessEmail(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, domain.ErrNotOrderConfirmation) {
			RespondOK(c, IgnoredResponse{Status: "ignored", Reason: err.Error()})
			return
		}
		log.Printf("[%s] handler.WebhookHandler: %v", c.GetString(middleware.ContextKeyRequestID), err)
		HandleError(c, err)
		return
	}

	RespondCreated(c, order)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
