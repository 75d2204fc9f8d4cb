package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/launchpad-match/internal/service"
)

// RequirementHandler handles the questionnaire.
type RequirementHandler struct {
	svc *service.RequirementService
}

func NewRequirementHandler(svc *service.RequirementService) *RequirementHandler {
	return &RequirementHandler{svc: svc}
}

// Register sets up requirement routes.
func (h *RequirementHandler) Register(api fiber.Router) {
	reqs := api.Group("/requirements")
	reqs.Get("/", h.List)
	reqs.Post("/", h.Create)
	reqs.Get("/ordered", h.Ordered)
	reqs.Get("/:id", h.Get)
	reqs.Put("/:id", h.Update)
	reqs.Delete("/:id", h.Delete)
}

func (h *RequirementHandler) List(c fiber.Ctx) error {
	skip, limit := page(c)
	reqs, err := h.svc.List(c.Context(), skip, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(reqs)
}

func (h *RequirementHandler) Ordered(c fiber.Ctx) error {
	reqs, err := h.svc.Ordered(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(reqs)
}

func (h *RequirementHandler) Get(c fiber.Ctx) error {
	r, err := h.svc.Get(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(r)
}

func (h *RequirementHandler) Create(c fiber.Ctx) error {
	var body service.RequirementInput
	if err := bindJSON(c, &body); err != nil {
		return err
	}
	created, err := h.svc.Create(c.Context(), body)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *RequirementHandler) Update(c fiber.Ctx) error {
	var body service.RequirementPatch
	if err := bindJSON(c, &body); err != nil {
		return err
	}
	updated, err := h.svc.Update(c.Context(), c.Params("id"), body)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(updated)
}

func (h *RequirementHandler) Delete(c fiber.Ctx) error {
	if err := h.svc.Delete(c.Context(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(true)
}
