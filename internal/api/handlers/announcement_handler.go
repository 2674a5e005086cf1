package handlers

import (
	"time"

	"proofchest/internal/dto"
	"proofchest/internal/models"
	"proofchest/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AnnouncementHandler struct {
	announcementService *service.AnnouncementService
	logger              *zap.Logger
}

func NewAnnouncementHandler(announcementService *service.AnnouncementService, logger *zap.Logger) *AnnouncementHandler {
	return &AnnouncementHandler{
		announcementService: announcementService,
		logger:              logger,
	}
}

// ListPublished godoc
// @Summary Announcement feed
// @Tags announcements
// @Produce json
// @Security Bearer
// @Success 200 {array} dto.AnnouncementResponse
// @Failure 401 {object} map[string]string
// @Router /api/v1/announcements [get]
func (h *AnnouncementHandler) ListPublished(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return respondError(c, h.logger, "Unauthorized", err)
	}
	items, err := h.announcementService.ListPublished(c.UserContext(), identity)
	if err != nil {
		return respondError(c, h.logger, "Failed to list announcements", err)
	}
	return c.JSON(announcementResponses(items))
}

// List godoc
// @Summary List announcements (admin)
// @Tags admin
// @Produce json
// @Security Bearer
// @Success 200 {array} dto.AnnouncementResponse
// @Failure 403 {object} map[string]string
// @Router /api/v1/admin/announcements [get]
func (h *AnnouncementHandler) List(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return respondError(c, h.logger, "Unauthorized", err)
	}
	items, err := h.announcementService.List(c.UserContext(), identity)
	if err != nil {
		return respondError(c, h.logger, "Failed to list announcements", err)
	}
	return c.JSON(announcementResponses(items))
}

// Create godoc
// @Summary Create an announcement
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param description formData string false "Description"
// @Param image formData file false "Image"
// @Security Bearer
// @Success 201 {object} dto.AnnouncementResponse
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /api/v1/admin/announcements [post]
func (h *AnnouncementHandler) Create(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return respondError(c, h.logger, "Unauthorized", err)
	}
	in, err := announcementInput(c)
	if err != nil {
		return respondError(c, h.logger, "Failed to read image", err)
	}
	created, err := h.announcementService.Create(c.UserContext(), identity, in)
	if err != nil {
		return respondError(c, h.logger, "Failed to create announcement", err)
	}
	return c.Status(fiber.StatusCreated).JSON(announcementResponse(created))
}

// Update godoc
// @Summary Update an announcement
// @Description Without an image the current one is kept.
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Announcement ID"
// @Param title formData string true "Title"
// @Param description formData string false "Description"
// @Param image formData file false "Image"
// @Security Bearer
// @Success 200 {object} dto.AnnouncementResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/admin/announcements/{id} [put]
func (h *AnnouncementHandler) Update(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return respondError(c, h.logger, "Unauthorized", err)
	}
	in, err := announcementInput(c)
	if err != nil {
		return respondError(c, h.logger, "Failed to read image", err)
	}
	updated, err := h.announcementService.Update(c.UserContext(), identity, c.Params("id"), in)
	if err != nil {
		return respondError(c, h.logger, "Failed to update announcement", err)
	}
	return c.JSON(announcementResponse(updated))
}

// Delete godoc
// @Summary Delete an announcement
// @Tags admin
// @Param id path string true "Announcement ID"
// @Security Bearer
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /api/v1/admin/announcements/{id} [delete]
func (h *AnnouncementHandler) Delete(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return respondError(c, h.logger, "Unauthorized", err)
	}
	if err := h.announcementService.Delete(c.UserContext(), identity, c.Params("id")); err != nil {
		return respondError(c, h.logger, "Failed to delete announcement", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func announcementInput(c *fiber.Ctx) (service.AnnouncementInput, error) {
	in := service.AnnouncementInput{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
	}
	if fh, err := c.FormFile("image"); err == nil {
		sel, err := service.SelectFile(fh)
		if err != nil {
			return in, err
		}
		in.Image = sel
	}
	return in, nil
}

func announcementResponses(items []*models.Announcement) []dto.AnnouncementResponse {
	resp := make([]dto.AnnouncementResponse, 0, len(items))
	for _, a := range items {
		resp = append(resp, announcementResponse(a))
	}
	return resp
}

func announcementResponse(a *models.Announcement) dto.AnnouncementResponse {
	return dto.AnnouncementResponse{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		ImageURL:    a.ImageReference,
		CreatedAt:   a.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
