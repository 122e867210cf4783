package handler

import (
	"github.com/gin-gonic/gin"

	"mealmail/internal/trace"
)

// TraceHandler exposes the heuristic decision log.
type TraceHandler struct {
	log *trace.Log
}

// NewTraceHandler creates a new TraceHandler.
func NewTraceHandler(log *trace.Log) *TraceHandler {
	return &TraceHandler{log: log}
}

// List handles GET /api/v1/trace?stage=extract
func (h *TraceHandler) List(c *gin.Context) {
	var events []trace.Event
	if stage := c.Query("stage"); stage != "" {
		events = h.log.Filter(trace.Stage(stage))
	} else {
		events = h.log.Events()
	}
	if events == nil {
		events = []trace.Event{}
	}
	RespondOK(c, events)
}

// Reset handles DELETE /api/v1/trace
func (h *TraceHandler) Reset(c *gin.Context) {
	h.log.Reset()
	RespondOK(c, gin.H{"status": "cleared"})
}
