package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/press141-netizen/reflex/dto"
)

type AnalyzeHandler struct {
	figmaSvc FigmaServiceInterface
}

func NewAnalyzeHandler(figmaSvc FigmaServiceInterface) *AnalyzeHandler {
	return &AnalyzeHandler{
		figmaSvc: figmaSvc,
	}
}

// @Summary Analyze screenshot
// @Description Generates Figma-plugin JavaScript recreating the uploaded UI screenshot
// @Tags analyze
// @Accept json
// @Produce json
// @Param analyzeRequest body dto.AnalyzeRequest true "Screenshot and target metadata"
// @Success 200 {object} dto.AnalyzeResponse
// @Router /analyze [post]
func (h *AnalyzeHandler) Analyze(c *fiber.Ctx) error {
	var req dto.AnalyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.CreateValidationErrorResponse(err))
	}

	req.Normalize()

	code, err := h.figmaSvc.Generate(c.Context(), req)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(dto.AnalyzeResponse{
		Success:   true,
		FigmaCode: code,
	})
}
