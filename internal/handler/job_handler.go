package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/launchpad-match/internal/service"
)

// JobHandler handles job postings.
type JobHandler struct {
	svc *service.JobService
}

// NewJobHandler creates a new job handler.
func NewJobHandler(svc *service.JobService) *JobHandler {
	return &JobHandler{svc: svc}
}

// Register sets up job routes.
func (h *JobHandler) Register(api fiber.Router) {
	jobs := api.Group("/jobs")
	jobs.Get("/", h.List)
	jobs.Post("/", h.Create)
	jobs.Get("/available", h.Available)
	jobs.Get("/category/:category", h.ByCategory)
	jobs.Get("/:id", h.Get)
	jobs.Put("/:id", h.Update)
	jobs.Patch("/:id", h.SetEmbedding)
	jobs.Delete("/:id", h.Delete)
}

func (h *JobHandler) List(c fiber.Ctx) error {
	skip, limit := page(c)
	jobs, err := h.svc.List(c.Context(), skip, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(jobs)
}

// Available returns jobs whose application window is still open.
func (h *JobHandler) Available(c fiber.Ctx) error {
	jobs, err := h.svc.Available(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(jobs)
}

func (h *JobHandler) ByCategory(c fiber.Ctx) error {
	jobs, err := h.svc.ByCategory(c.Context(), c.Params("category"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(jobs)
}

func (h *JobHandler) Get(c fiber.Ctx) error {
	job, err := h.svc.Get(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(job)
}

func (h *JobHandler) Create(c fiber.Ctx) error {
	var body service.JobInput
	if err := bindJSON(c, &body); err != nil {
		return err
	}
	created, err := h.svc.Create(c.Context(), body)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *JobHandler) Update(c fiber.Ctx) error {
	var body service.JobPatch
	if err := bindJSON(c, &body); err != nil {
		return err
	}
	updated, err := h.svc.Update(c.Context(), c.Params("id"), body)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(updated)
}

// SetEmbedding stores a precomputed embedding for the job.
func (h *JobHandler) SetEmbedding(c fiber.Ctx) error {
	var body struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := bindJSON(c, &body); err != nil {
		return err
	}
	job, err := h.svc.SetEmbedding(c.Context(), c.Params("id"), body.Embedding)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"id":                job.ID,
		"title":             job.Title,
		"embedding_updated": true,
	})
}

func (h *JobHandler) Delete(c fiber.Ctx) error {
	if err := h.svc.Delete(c.Context(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(true)
}
