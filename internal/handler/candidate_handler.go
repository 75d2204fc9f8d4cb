package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/launchpad-match/internal/service"
)

// CandidateHandler handles candidate CRUD.
type CandidateHandler struct {
	svc *service.CandidateService
}

// NewCandidateHandler creates a new candidate handler.
func NewCandidateHandler(svc *service.CandidateService) *CandidateHandler {
	return &CandidateHandler{svc: svc}
}

// Register sets up candidate routes.
func (h *CandidateHandler) Register(api fiber.Router) {
	candidates := api.Group("/candidates")
	candidates.Get("/", h.List)
	candidates.Post("/", h.Create)
	candidates.Get("/location/:location", h.ByLocation)
	candidates.Get("/:id", h.Get)
	candidates.Put("/:id", h.Update)
	candidates.Delete("/:id", h.Delete)
}

// List returns a page of candidates (?skip=&limit=).
func (h *CandidateHandler) List(c fiber.Ctx) error {
	skip, limit := page(c)
	candidates, err := h.svc.List(c.Context(), skip, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(candidates)
}

func (h *CandidateHandler) Get(c fiber.Ctx) error {
	cand, err := h.svc.Get(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(cand)
}

func (h *CandidateHandler) ByLocation(c fiber.Ctx) error {
	candidates, err := h.svc.FindByLocation(c.Context(), c.Params("location"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(candidates)
}

func (h *CandidateHandler) Create(c fiber.Ctx) error {
	var body service.CandidateInput
	if err := bindJSON(c, &body); err != nil {
		return err
	}
	created, err := h.svc.Create(c.Context(), body)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// Update changes only the fields present in the body.
func (h *CandidateHandler) Update(c fiber.Ctx) error {
	var body service.CandidatePatch
	if err := bindJSON(c, &body); err != nil {
		return err
	}
	updated, err := h.svc.Update(c.Context(), c.Params("id"), body)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(updated)
}

func (h *CandidateHandler) Delete(c fiber.Ctx) error {
	if err := h.svc.Delete(c.Context(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(true)
}

// page reads ?skip= and ?limit=; negative values are treated as zero.
func page(c fiber.Ctx) (skip, limit int) {
	skip = max(fiber.Query[int](c, "skip", 0), 0)
	limit = max(fiber.Query[int](c, "limit", 0), 0)
	return skip, limit
}
