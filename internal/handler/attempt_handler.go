package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/attempt-runtime/internal/domain/entity"
	"github.com/yourusername/attempt-runtime/internal/handler/dto"
	apperrors "github.com/yourusername/attempt-runtime/internal/pkg/errors"
	"github.com/yourusername/attempt-runtime/internal/service/attemptruntime"
)

// AttemptHandler обрабатывает запросы, связанные с прохождением попытки
type AttemptHandler struct {
	manager *attemptruntime.Manager
}

// NewAttemptHandler создает новый обработчик попыток
func NewAttemptHandler(manager *attemptruntime.Manager) *AttemptHandler {
	return &AttemptHandler{manager: manager}
}

// EnterRequest представляет запрос на вход в попытку
type EnterRequest struct {
	AttemptID    string `json:"attempt_id" binding:"required,max=64"`
	QuizID       string `json:"quiz_id" binding:"required,max=64"`
	CourseID     string `json:"course_id" binding:"required,max=64"`
	EnrollmentID string `json:"enrollment_id" binding:"required,max=64"`
}

// Enter обрабатывает вход ученика в попытку: запускает рантайм
// (или возвращает уже живой) и отдает снимок состояния
func (h *AttemptHandler) Enter(c *gin.Context) {
	var req EnterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.MustGet("user_id").(string)
	ref := entity.AttemptRef{
		AttemptID:    req.AttemptID,
		QuizID:       req.QuizID,
		CourseID:     req.CourseID,
		EnrollmentID: req.EnrollmentID,
		UserID:       userID,
	}

	rt, err := h.manager.Enter(c.Request.Context(), ref)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	snapshot, err := rt.State()
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAttemptStateResponse(snapshot))
}

// GetState возвращает снимок состояния живой попытки
func (h *AttemptHandler) GetState(c *gin.Context) {
	rt, ok := h.activeRuntime(c)
	if !ok {
		return
	}

	snapshot, err := rt.State()
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAttemptStateResponse(snapshot))
}

// GoToRequest представляет запрос на переход к вопросу
type GoToRequest struct {
	Index int `json:"index" binding:"min=0"`
}

// GoTo переходит к вопросу по глобальному индексу
func (h *AttemptHandler) GoTo(c *gin.Context) {
	rt, ok := h.activeRuntime(c)
	if !ok {
		return
	}

	var req GoToRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	position, err := rt.GoTo(c.Request.Context(), req.Index)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewPositionResponse(position))
}

// Next переходит к следующему вопросу
func (h *AttemptHandler) Next(c *gin.Context) {
	rt, ok := h.activeRuntime(c)
	if !ok {
		return
	}

	position, err := rt.Next(c.Request.Context())
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewPositionResponse(position))
}

// Previous переходит к предыдущему вопросу
func (h *AttemptHandler) Previous(c *gin.Context) {
	rt, ok := h.activeRuntime(c)
	if !ok {
		return
	}

	position, err := rt.Previous(c.Request.Context())
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewPositionResponse(position))
}

// GetPage отдает страницу вопросов по номеру, не смещая позицию ученика.
// Используется для предзагрузки соседних страниц на клиенте.
func (h *AttemptHandler) GetPage(c *gin.Context) {
	rt, ok := h.activeRuntime(c)
	if !ok {
		return
	}

	page, err := strconv.Atoi(c.Param("n"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page number must be a positive integer"})
		return
	}

	questions, pagination, err := rt.Page(c.Request.Context(), page)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewPageResponse(questions, pagination))
}

// AnswerRequest представляет запрос на запись ответа
type AnswerRequest struct {
	ChoiceID string `json:"choice_id" binding:"omitempty,max=64"`
	Text     string `json:"text" binding:"omitempty,max=10000"`
}

// Answer записывает ответ на вопрос
func (h *AttemptHandler) Answer(c *gin.Context) {
	rt, ok := h.activeRuntime(c)
	if !ok {
		return
	}
	questionID := c.MustGet("questionID").(string)

	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := rt.Answer(questionID, req.ChoiceID, req.Text); err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"question_id": questionID, "saved": true})
}

// Submit отправляет попытку на грейдинг
func (h *AttemptHandler) Submit(c *gin.Context) {
	rt, ok := h.activeRuntime(c)
	if !ok {
		return
	}

	if err := rt.Submit(c.Request.Context(), "user"); err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"submitted": true})
}

// Close завершает рантайм без отправки (уход со страницы).
// Остаток времени сохраняется, при повторном входе отсчет продолжится.
func (h *AttemptHandler) Close(c *gin.Context) {
	rt, ok := h.activeRuntime(c)
	if !ok {
		return
	}

	rt.Close()
	c.JSON(http.StatusOK, gin.H{"closed": true})
}

// activeRuntime достает живой рантайм попытки из менеджера.
// Отвечает 404, если попытка не активна в этом процессе.
func (h *AttemptHandler) activeRuntime(c *gin.Context) (*attemptruntime.Runtime, bool) {
	attemptID := c.MustGet("attemptID").(string)

	rt, ok := h.manager.Get(attemptID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "attempt is not active, enter it first"})
		return nil, false
	}

	// Чужая попытка недоступна даже при валидном токене
	userID := c.MustGet("user_id").(string)
	if rt.Ref().UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "attempt belongs to another user"})
		return nil, false
	}

	return rt, true
}

// handleAttemptError преобразует ошибки сервисного слоя в HTTP-ответы
func (h *AttemptHandler) handleAttemptError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrAlreadySubmitted) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrAttemptLocked) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrExpired) {
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrUnauthorized) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrUpstream) {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in AttemptHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
