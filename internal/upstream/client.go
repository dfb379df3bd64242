package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/yourusername/attempt-runtime/internal/domain/entity"
	apperrors "github.com/yourusername/attempt-runtime/internal/pkg/errors"
)

// Client реализует repository.QuizGateway поверх HTTP API платформы обучения.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создает клиент вышестоящего API
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// pageEnvelope — формат ответа эндпоинта страницы вопросов
type pageEnvelope struct {
	Quiz struct {
		Title      string            `json:"title"`
		Duration   int               `json:"duration"`
		Questions  []entity.Question `json:"questions"`
		Pagination entity.Pagination `json:"pagination"`
	} `json:"quiz"`
}

// FetchAttemptPage загружает одну страницу вопросов попытки
func (c *Client) FetchAttemptPage(ctx context.Context, ref entity.AttemptRef, page int) (*entity.AttemptPage, error) {
	if page < 1 {
		return nil, fmt.Errorf("%w: page must be >= 1, got %d", apperrors.ErrValidation, page)
	}

	endpoint := fmt.Sprintf("%s/api/quizzes/%s/attempt", c.baseURL, url.PathEscape(ref.QuizID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build page request: %w", err)
	}

	q := req.URL.Query()
	q.Set("attempt_id", ref.AttemptID)
	q.Set("course_id", ref.CourseID)
	q.Set("enrollment_id", ref.EnrollmentID)
	q.Set("user_id", ref.UserID)
	q.Set("page", fmt.Sprintf("%d", page))
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch page %d for attempt %s: %v", apperrors.ErrUpstream, page, ref.AttemptID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: attempt %s", apperrors.ErrNotFound, ref.AttemptID)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Printf("[UpstreamClient] Эндпоинт страницы вернул %d для попытки %s: %s", resp.StatusCode, ref.AttemptID, string(body))
		return nil, fmt.Errorf("%w: page endpoint returned status %d", apperrors.ErrUpstream, resp.StatusCode)
	}

	var envelope pageEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: decode page response: %v", apperrors.ErrUpstream, err)
	}

	return &entity.AttemptPage{
		Meta: entity.AttemptMeta{
			Title:       envelope.Quiz.Title,
			DurationMin: envelope.Quiz.Duration,
		},
		Questions:  envelope.Quiz.Questions,
		Pagination: envelope.Quiz.Pagination,
	}, nil
}

// SubmitAttempt отправляет накопленные ответы на грейдинг-эндпоинт.
// Любой 2xx считается подтверждением; тело ответа логируется, но не трактуется.
func (c *Client) SubmitAttempt(ctx context.Context, ref entity.AttemptRef, submission *entity.SubmissionRequest) error {
	endpoint := fmt.Sprintf("%s/api/quizzes/%s/attempt/%s/submit",
		c.baseURL, url.PathEscape(ref.QuizID), url.PathEscape(ref.AttemptID))

	payload, err := json.Marshal(submission)
	if err != nil {
		return fmt.Errorf("failed to marshal submission for attempt %s: %w", ref.AttemptID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: submit attempt %s: %v", apperrors.ErrUpstream, ref.AttemptID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Printf("[UpstreamClient] Грейдинг-эндпоинт вернул %d для попытки %s: %s", resp.StatusCode, ref.AttemptID, string(body))
		return fmt.Errorf("%w: submit endpoint returned status %d", apperrors.ErrUpstream, resp.StatusCode)
	}

	// Наличие тела ответа сигнализирует об успехе; структура не специфицирована
	ack, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	log.Printf("[UpstreamClient] Попытка %s подтверждена грейдинг-эндпоинтом (%d байт ответа)", ref.AttemptID, len(ack))
	return nil
}
