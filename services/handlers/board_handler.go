package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/press141-netizen/reflex/dto"
)

type BoardHandler struct {
	boardSvc BoardServiceInterface
}

func NewBoardHandler(boardSvc BoardServiceInterface) *BoardHandler {
	return &BoardHandler{
		boardSvc: boardSvc,
	}
}

// @Summary Get board
// @Description Returns the full board document: references (most recent first) and custom categories
// @Tags boards
// @Produce json
// @Param boardId query string false "Board ID" default(public)
// @Success 200 {object} dto.BoardResponse
// @Router /boards [get]
func (h *BoardHandler) GetBoard(c *fiber.Ctx) error {
	board, err := h.boardSvc.LoadBoard(c.Context(), c.Query("boardId"))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(board)
}

// @Summary Add reference
// @Description Appends a new reference to the board; the server assigns its id
// @Tags boards
// @Accept json
// @Produce json
// @Param boardId query string false "Board ID" default(public)
// @Param addReferenceRequest body dto.AddReferenceRequest true "Reference payload"
// @Success 201 {object} dto.ReferenceResponse
// @Router /boards [post]
func (h *BoardHandler) AddReference(c *fiber.Ctx) error {
	var req dto.AddReferenceRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.CreateValidationErrorResponse(err))
	}

	reference, err := h.boardSvc.AddReference(c.Context(), c.Query("boardId"), req.Reference)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(dto.ReferenceResponse{
		Success:   true,
		Reference: reference,
	})
}

// @Summary Update reference
// @Description Replaces the stored reference matching the payload id
// @Tags boards
// @Accept json
// @Produce json
// @Param boardId query string false "Board ID" default(public)
// @Param updateReferenceRequest body dto.UpdateReferenceRequest true "Full reference with id"
// @Success 200 {object} dto.ReferenceResponse
// @Router /boards [put]
func (h *BoardHandler) UpdateReference(c *fiber.Ctx) error {
	var req dto.UpdateReferenceRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.CreateValidationErrorResponse(err))
	}

	if err := h.boardSvc.UpdateReference(c.Context(), c.Query("boardId"), req.Reference); err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(dto.ReferenceResponse{
		Success:   true,
		Reference: req.Reference,
	})
}

// @Summary Remove reference
// @Description Removes the reference with the given id; removing an absent id succeeds
// @Tags boards
// @Accept json
// @Produce json
// @Param boardId query string false "Board ID" default(public)
// @Param removeReferenceRequest body dto.RemoveReferenceRequest true "Reference id"
// @Success 200 {object} dto.SuccessResponse
// @Router /boards [delete]
func (h *BoardHandler) RemoveReference(c *fiber.Ctx) error {
	var req dto.RemoveReferenceRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.CreateValidationErrorResponse(err))
	}

	if err := h.boardSvc.RemoveReference(c.Context(), c.Query("boardId"), req.ReferenceID); err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(dto.SuccessResponse{Success: true})
}

// @Summary Set categories
// @Description Replaces the board's custom categories map wholesale
// @Tags boards
// @Accept json
// @Produce json
// @Param boardId query string false "Board ID" default(public)
// @Param setCategoriesRequest body dto.SetCategoriesRequest true "Categories map"
// @Success 200 {object} dto.SuccessResponse
// @Router /categories [post]
func (h *BoardHandler) SetCategories(c *fiber.Ctx) error {
	var req dto.SetCategoriesRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.CreateValidationErrorResponse(err))
	}

	if err := h.boardSvc.SetCategories(c.Context(), c.Query("boardId"), req.CustomCategories); err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(dto.SuccessResponse{Success: true})
}
