package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/examsim-api/internal/handler/dto"
	apperrors "github.com/yourusername/examsim-api/internal/pkg/errors"
	"github.com/yourusername/examsim-api/internal/service"
)

// AdaptiveHandler обрабатывает запросы адаптивных сессий
type AdaptiveHandler struct {
	adaptiveService *service.AdaptiveService
}

// NewAdaptiveHandler создает новый обработчик адаптивных сессий
func NewAdaptiveHandler(adaptiveService *service.AdaptiveService) *AdaptiveHandler {
	return &AdaptiveHandler{adaptiveService: adaptiveService}
}

// Start начинает адаптивную сессию и возвращает первый вопрос
// POST /api/adaptive
func (h *AdaptiveHandler) Start(c *gin.Context) {
	var req dto.StartAdaptiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	step, err := h.adaptiveService.Start(c.Request.Context(), req.ToService())
	if err != nil {
		handleServiceError(c, "AdaptiveHandler", err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewAdaptiveStepResponse(step))
}

// Answer принимает ответ на текущий вопрос и возвращает следующий шаг.
// Для завершённой сессии возвращает 410 с итогом.
// POST /api/adaptive/:id/answer
func (h *AdaptiveHandler) Answer(c *gin.Context) {
	var req dto.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	step, err := h.adaptiveService.Answer(c.Request.Context(), c.MustGet("sessionID").(string), req.Selected)
	if err != nil {
		if errors.Is(err, apperrors.ErrExhausted) && step != nil {
			c.JSON(http.StatusGone, gin.H{
				"error": err.Error(),
				"step":  dto.NewAdaptiveStepResponse(step),
			})
			return
		}
		handleServiceError(c, "AdaptiveHandler", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAdaptiveStepResponse(step))
}
