package handlers

import (
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/juanesgit/validadorPagos/internal/models"
	"github.com/juanesgit/validadorPagos/internal/services"
)

// ReviewHandler expone la interfaz del revisor: bandeja, evidencias y las dos
// transiciones de estado.
type ReviewHandler struct {
	Review      *services.ReviewService
	EvidenceDir string
}

func NewReviewHandler(review *services.ReviewService, evidenceDir string) *ReviewHandler {
	return &ReviewHandler{Review: review, EvidenceDir: evidenceDir}
}

func (h *ReviewHandler) ListPayments(c *gin.Context) {
	estado := models.Estado(c.Query("estado"))
	switch estado {
	case "", models.EstadoPendiente, models.EstadoAprobado, models.EstadoRechazado:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "estado inválido"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	payments, err := h.Review.List(c.Request.Context(), estado, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudo listar"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

func (h *ReviewHandler) Approve(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id inválido"})
		return
	}
	p, err := h.Review.Approve(c.Request.Context(), id)
	if err != nil {
		h.decideError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ReviewHandler) Reject(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id inválido"})
		return
	}
	var req struct {
		Motivo string `json:"motivo"`
	}
	_ = c.ShouldBindJSON(&req) // motivo opcional, hay uno por defecto

	p, err := h.Review.Reject(c.Request.Context(), id, req.Motivo)
	if err != nil {
		h.decideError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ReviewHandler) EvidenceFile(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id inválido"})
		return
	}
	ev, err := h.Review.GetEvidence(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudo leer la evidencia"})
		return
	}
	if ev == nil || ev.Filename == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "evidencia no encontrada"})
		return
	}
	c.File(filepath.Join(h.EvidenceDir, filepath.Base(ev.Filename)))
}

func (h *ReviewHandler) decideError(c *gin.Context, err error) {
	switch err {
	case services.ErrPaymentNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "solicitud no encontrada"})
	case services.ErrAlreadyDecided:
		c.JSON(http.StatusConflict, gin.H{"error": "la solicitud ya fue decidida"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no se pudo aplicar la decisión"})
	}
}
