package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pdfscan/pdfscan/internal/document"
	"github.com/pdfscan/pdfscan/internal/document/service"
)

// multipart framing allowance on top of the file limit
const multipartOverhead = 1 << 20

type Handler struct {
	svc *service.Service
}

// RegisterDocumentRoutes mounts the document API on r. guard runs before
// every document route (auth, rate limiting).
func RegisterDocumentRoutes(r gin.IRouter, svc *service.Service, guard ...gin.HandlerFunc) {
	h := &Handler{svc: svc}

	for _, prefix := range []string{"", "/api"} {
		g := r.Group(prefix, guard...)
		g.POST("/upload", h.Upload)
		g.POST("/extract", h.Extract)
		g.GET("/documents/:id/status", h.Status)
	}

	api := r.Group("/api/documents", guard...)
	api.GET("", h.List)
	api.GET("/:id", h.Get)
	api.DELETE("/:id", h.Delete)
	api.GET("/:id/download", h.Download)
}

type uploadedDocument struct {
	ID               string          `json:"id"`
	Filename         string          `json:"filename"`
	OriginalName     string          `json:"originalName"`
	UploadDate       time.Time       `json:"uploadDate"`
	ExtractionStatus document.Status `json:"extractionStatus"`
}

func (h *Handler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.svc.MaxUploadBytes()+multipartOverhead)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
			abortWithError(c, service.ErrTooLarge, "Upload failed")
			return
		}
		abortWithError(c, service.ErrNoFile, "Upload failed")
		return
	}
	f, err := fh.Open()
	if err != nil {
		abortWithError(c, err, "Upload failed")
		return
	}
	defer f.Close()

	d, err := h.svc.Upload(c.Request.Context(), service.UploadInput{
		OriginalName: fh.Filename,
		ContentType:  fh.Header.Get("Content-Type"),
		Size:         fh.Size,
		Body:         f,
	})
	if err != nil {
		abortWithError(c, err, "Upload failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"document": uploadedDocument{
			ID:               d.ID,
			Filename:         d.Filename,
			OriginalName:     d.OriginalName,
			UploadDate:       d.UploadDate,
			ExtractionStatus: d.ExtractionStatus,
		},
	})
}

type extractRequest struct {
	DocumentID string `json:"documentId"`
}

func (h *Handler) Extract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.DocumentID == "" {
		abortWithError(c, service.ErrInvalidInput, "Extraction failed")
		return
	}

	res, err := h.svc.Extract(c.Request.Context(), req.DocumentID)
	if err != nil {
		abortWithError(c, err, "Extraction failed")
		return
	}

	d := res.Document
	body := gin.H{
		"success":          true,
		"documentId":       d.ID,
		"extractionStatus": d.ExtractionStatus,
		"extractedText":    d.ExtractedText,
		"patientData":      patientOrEmpty(d),
	}
	if res.AlreadyExtracted {
		body["message"] = "Document already extracted"
	}
	c.JSON(http.StatusOK, body)
}

type statusResponse struct {
	ID               string                `json:"id"`
	Filename         string                `json:"filename"`
	ExtractionStatus document.Status       `json:"extractionStatus"`
	ExtractedText    string                `json:"extractedText,omitempty"`
	PatientData      *document.PatientData `json:"patientData,omitempty"`
	Error            string                `json:"error,omitempty"`
	UpdatedAt        time.Time             `json:"updatedAt"`
}

func (h *Handler) Status(c *gin.Context) {
	d, err := h.svc.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err, "Failed to read status")
		return
	}
	c.JSON(http.StatusOK, statusResponse{
		ID:               d.ID,
		Filename:         d.OriginalName,
		ExtractionStatus: d.ExtractionStatus,
		ExtractedText:    d.ExtractedText,
		PatientData:      d.PatientData,
		Error:            d.Error,
		UpdatedAt:        d.UpdatedAt,
	})
}

func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		abortWithError(c, err, "Failed to list documents")
		return
	}
	out := make([]gin.H, 0, len(list))
	for _, d := range list {
		out = append(out, gin.H{
			"id":               d.ID,
			"originalName":     d.OriginalName,
			"extractionStatus": d.ExtractionStatus,
			"uploadDate":       d.UploadDate,
			"updatedAt":        d.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"documents": out})
}

func (h *Handler) Get(c *gin.Context) {
	d, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err, "Failed to load document")
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, err, "Failed to delete document")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Download(c *gin.Context) {
	u, ttl, err := h.svc.DownloadURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err, "Failed to create download link")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": u, "expiresIn": int(ttl.Seconds())})
}

func patientOrEmpty(d *document.Document) document.PatientData {
	if d.PatientData == nil {
		return document.PatientData{}
	}
	return *d.PatientData
}
