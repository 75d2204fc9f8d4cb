package handler

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/launchpad-match/internal/domain"
	"github.com/arturoeanton/launchpad-match/internal/export"
	"github.com/arturoeanton/launchpad-match/internal/service"
)

// MatchHandler ranks jobs for a candidate.
type MatchHandler struct {
	svc *service.MatchService
}

// NewMatchHandler creates a new match handler.
func NewMatchHandler(svc *service.MatchService) *MatchHandler {
	return &MatchHandler{svc: svc}
}

// Register sets up match routes.
func (h *MatchHandler) Register(api fiber.Router) {
	match := api.Group("/match")
	match.Post("/", h.Match)
	match.Post("/fallback", h.Fallback)
	match.Post("/export", h.Export)
}

type matchRequest struct {
	CandidateID string `json:"candidate_id"`
	Limit       int    `json:"limit"`
	Fallback    bool   `json:"fallback"` // export only
}

type matchResponse struct {
	Matches []domain.MatchResult `json:"matches"`
	Mode    string               `json:"mode"`
}

// Match runs semantic matching.
func (h *MatchHandler) Match(c fiber.Ctx) error {
	req, err := h.parse(c)
	if err != nil {
		return err
	}
	out, err := h.svc.Match(c.Context(), req.CandidateID, req.Limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toResponse(out))
}

// Fallback runs rule-based matching.
func (h *MatchHandler) Fallback(c fiber.Ctx) error {
	req, err := h.parse(c)
	if err != nil {
		return err
	}
	out, err := h.svc.Fallback(c.Context(), req.CandidateID, req.Limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toResponse(out))
}

// Export returns the ranked matches as an Excel workbook.
func (h *MatchHandler) Export(c fiber.Ctx) error {
	req, err := h.parse(c)
	if err != nil {
		return err
	}

	run := h.svc.Match
	if req.Fallback {
		run = h.svc.Fallback
	}
	out, err := run(c.Context(), req.CandidateID, req.Limit)
	if err != nil {
		return respondError(c, err)
	}

	f, err := export.Workbook(out.Candidate, out.Matches, out.Mode)
	if err != nil {
		return respondError(c, err)
	}
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		return respondError(c, err)
	}

	c.Set(fiber.HeaderContentType, export.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="matches-%s.xlsx"`, out.Candidate.ID))
	return c.Send(buf.Bytes())
}

func (h *MatchHandler) parse(c fiber.Ctx) (*matchRequest, error) {
	var req matchRequest
	if err := bindJSON(c, &req); err != nil {
		return nil, err
	}
	req.CandidateID = strings.TrimSpace(req.CandidateID)
	if req.CandidateID == "" {
		return nil, fiber.NewError(fiber.StatusBadRequest, "candidate_id is required")
	}
	if req.Limit < 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "limit must not be negative")
	}
	return &req, nil
}

func toResponse(out *service.MatchOutcome) matchResponse {
	matches := out.Matches
	if matches == nil {
		matches = []domain.MatchResult{}
	}
	return matchResponse{Matches: matches, Mode: out.Mode}
}
