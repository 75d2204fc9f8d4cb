package handler

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/arturoeanton/launchpad-match/internal/port"
	"github.com/arturoeanton/launchpad-match/internal/service"
)

// EmbeddingsHandler starts embedding backfill runs and reports their progress.
type EmbeddingsHandler struct {
	backfill      *service.BackfillService
	logger        *zap.Logger
	streamTimeout time.Duration
}

// NewEmbeddingsHandler creates a new embeddings handler.
func NewEmbeddingsHandler(backfill *service.BackfillService, logger *zap.Logger) *EmbeddingsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmbeddingsHandler{backfill: backfill, logger: logger, streamTimeout: 5 * time.Minute}
}

// Register sets up backfill routes.
func (h *EmbeddingsHandler) Register(api fiber.Router) {
	emb := api.Group("/embeddings")
	emb.Post("/backfill", h.Start)
	emb.Get("/runs/:id", h.GetStatus)
	emb.Get("/runs/:id/stream", h.StreamSSE)
}

// Start launches a backfill run; 409 while one is in progress.
func (h *EmbeddingsHandler) Start(c fiber.Ctx) error {
	runID, err := h.backfill.Start(c.Context(), service.TriggerAPI)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"run_id": runID,
		"status": service.RunRunning,
	})
}

// GetStatus returns the current run status.
func (h *EmbeddingsHandler) GetStatus(c fiber.Ctx) error {
	run, ok := h.backfill.Tracker().Get(c.Params("id"))
	if !ok {
		return respondError(c, fmt.Errorf("%s: %w", c.Params("id"), port.ErrRunNotFound))
	}
	return c.JSON(run)
}

// StreamSSE streams run updates via Server-Sent Events.
func (h *EmbeddingsHandler) StreamSSE(c fiber.Ctx) error {
	id := c.Params("id")
	tracker := h.backfill.Tracker()

	run, ok := tracker.Get(id)
	if !ok {
		return respondError(c, fmt.Errorf("%s: %w", c.Params("id"), port.ErrRunNotFound))
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	// Finished runs get a single final event.
	if run.Done() {
		return c.SendString(sseEvent(eventName(*run), run))
	}

	ch := tracker.Subscribe(id)
	// Re-read after subscribing so a run finishing in between is not missed.
	if latest, ok := tracker.Get(id); ok {
		run = latest
	}
	timeout := h.streamTimeout

	return c.SendStreamWriter(func(w *bufio.Writer) {
		defer tracker.Unsubscribe(id, ch)

		fmt.Fprint(w, sseEvent(eventName(*run), run))
		if err := w.Flush(); err != nil || run.Done() {
			return
		}

		deadline := time.After(timeout)
		for {
			select {
			case update, ok := <-ch:
				if !ok {
					return
				}
				fmt.Fprint(w, sseEvent(eventName(update), update))
				if err := w.Flush(); err != nil {
					// client went away
					return
				}
				if update.Done() {
					return
				}
			case <-deadline:
				h.logger.Warn("SSE timeout", zap.String("run_id", id))
				return
			}
		}
	})
}

func sseEvent(event string, v any) string {
	data, _ := json.Marshal(v)
	return fmt.Sprintf("event: %s\ndata: %s\n\n", event, data)
}

func eventName(run service.RunStatus) string {
	if run.Done() {
		return run.Status
	}
	return "progress"
}
