package handlers

import (
	"time"

	"proofchest/internal/dto"
	"proofchest/internal/models"
	"proofchest/internal/ocr"
	"proofchest/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type DocumentHandler struct {
	docService *service.DocumentService
	logger     *zap.Logger
}

func NewDocumentHandler(docService *service.DocumentService, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		docService: docService,
		logger:     logger,
	}
}

// PreviewDocument godoc
// @Summary Preview a file
// @Description Reads the chosen file and returns it as a data URL for display before upload
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document image"
// @Security Bearer
// @Success 200 {object} dto.PreviewResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/documents/preview [post]
func (h *DocumentHandler) PreviewDocument(c *fiber.Ctx) error {
	if _, err := currentIdentity(c); err != nil {
		return respondError(c, h.logger, "Unauthorized", err)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "File is required",
		})
	}
	sel, err := service.SelectFile(fh)
	if err != nil {
		return respondError(c, h.logger, "Failed to read file", err)
	}
	return c.JSON(dto.PreviewResponse{
		FileName:    sel.FileName,
		ContentType: sel.ContentType,
		Size:        len(sel.Data),
		Preview:     sel.Preview,
	})
}

// UploadDocument godoc
// @Summary Upload a document
// @Description Stores the image, extracts its text and records it under a category. OCR failures are reported as a warning.
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document image"
// @Param category formData string true "APC, ACE or RECIBO"
// @Security Bearer
// @Success 201 {object} dto.IngestResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /api/v1/documents [post]
func (h *DocumentHandler) UploadDocument(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return respondError(c, h.logger, "Unauthorized", err)
	}

	var sel *service.Selection
	if fh, err := c.FormFile("file"); err == nil {
		if sel, err = service.SelectFile(fh); err != nil {
			return respondError(c, h.logger, "Failed to read file", err)
		}
	}

	res, err := h.docService.Ingest(c.UserContext(), identity, sel, c.FormValue("category"), service.IngestOptions{
		OnProgress: func(p ocr.Progress) {
			h.logger.Debug("OCR progress", zap.String("status", p.Status), zap.Float64("fraction", p.Fraction))
		},
	})
	if err != nil {
		return respondError(c, h.logger, "Failed to upload document", err)
	}

	resp := dto.IngestResponse{Document: h.documentResponse(res.Document)}
	if res.Warning != nil {
		resp.Warning = res.Warning.Error()
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// ListDocuments godoc
// @Summary List documents in a category
// @Description Newest first. The category may be given as APC, ACE, RECIBO or a bucket name such as recibos.
// @Tags documents
// @Produce json
// @Param category path string true "Category"
// @Security Bearer
// @Success 200 {array} dto.DocumentResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/documents/{category} [get]
func (h *DocumentHandler) ListDocuments(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return respondError(c, h.logger, "Unauthorized", err)
	}

	docs, err := h.docService.ListDocuments(c.UserContext(), identity, c.Params("category"))
	if err != nil {
		return respondError(c, h.logger, "Failed to list documents", err)
	}

	resp := make([]dto.DocumentResponse, 0, len(docs))
	for _, d := range docs {
		resp = append(resp, h.documentResponse(d))
	}
	return c.JSON(resp)
}

// DeleteDocument godoc
// @Summary Delete a document
// @Tags documents
// @Param id path string true "Document ID"
// @Security Bearer
// @Success 204
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/documents/{id} [delete]
func (h *DocumentHandler) DeleteDocument(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return respondError(c, h.logger, "Unauthorized", err)
	}
	if err := h.docService.DeleteDocument(c.UserContext(), identity, c.Params("id")); err != nil {
		return respondError(c, h.logger, "Failed to delete document", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *DocumentHandler) documentResponse(d *models.Document) dto.DocumentResponse {
	return dto.DocumentResponse{
		ID:            d.ID,
		Category:      string(d.Category),
		Bucket:        d.Category.Bucket(),
		ImageURL:      h.docService.ResolveImageURL(d.ImageReference),
		ExtractedText: d.ExtractedText,
		CreatedAt:     d.CreatedAt.UTC().Format(time.RFC3339),
	}
}
