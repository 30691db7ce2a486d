package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/discid/internal/queue"
	"github.com/your-org/discid/internal/storage"
)

// pinger is implemented by blob backends that can report their own health.
// Not every storage.BlobStore needs one: a backend with nothing to ping
// (none exist today) would simply report healthy.
type pinger interface {
	Ping(ctx context.Context) error
}

type SystemHandler struct {
	db       *storage.PostgresStore
	blobs    storage.BlobStore
	producer *queue.Producer
}

func NewSystemHandler(db *storage.PostgresStore, blobs storage.BlobStore, producer *queue.Producer) *SystemHandler {
	return &SystemHandler{db: db, blobs: blobs, producer: producer}
}

func (h *SystemHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *SystemHandler) Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := h.db.Ping(ctx); err != nil {
		checks["postgres"] = err.Error()
		healthy = false
	} else {
		checks["postgres"] = "ok"
	}

	if p, ok := h.blobs.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			checks["storage"] = err.Error()
			healthy = false
		} else {
			checks["storage"] = "ok"
		}
	}

	if err := h.producer.Ping(); err != nil {
		checks["nats"] = err.Error()
		healthy = false
	} else {
		checks["nats"] = "ok"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status": map[bool]string{true: "ready", false: "not ready"}[healthy],
		"checks": checks,
	})
}
