package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/press141-netizen/reflex/dto"
)

type UploadHandler struct {
	uploadSvc UploadServiceInterface
}

func NewUploadHandler(uploadSvc UploadServiceInterface) *UploadHandler {
	return &UploadHandler{
		uploadSvc: uploadSvc,
	}
}

// @Summary Upload image
// @Description Relays a base64 image to blob storage; falls back to returning the original data on any storage failure
// @Tags upload
// @Accept json
// @Produce json
// @Param uploadRequest body dto.UploadRequest true "Base64 image and content type"
// @Success 200 {object} dto.UploadResponse
// @Router /upload [post]
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	var req dto.UploadRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.CreateValidationErrorResponse(err))
	}

	result, err := h.uploadSvc.Store(c.Context(), req.Image, req.ContentType)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(dto.UploadResponse{
		Success:  true,
		URL:      result.URL,
		Fallback: result.Fallback,
	})
}
