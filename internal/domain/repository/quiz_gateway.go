package repository

import (
	"context"

	"github.com/yourusername/attempt-runtime/internal/domain/entity"
)

// QuizGateway определяет интерфейс к вышестоящему API платформы обучения.
// Рантайм попытки только читает страницы вопросов и отправляет итоговые
// ответы; создание попытки и грейдинг остаются на стороне платформы.
type QuizGateway interface {
	// FetchAttemptPage загружает одну страницу вопросов попытки (page с 1)
	FetchAttemptPage(ctx context.Context, ref entity.AttemptRef, page int) (*entity.AttemptPage, error)

	// SubmitAttempt отправляет накопленные ответы на грейдинг-эндпоинт.
	// Любой 2xx-ответ считается подтверждением.
	SubmitAttempt(ctx context.Context, ref entity.AttemptRef, req *entity.SubmissionRequest) error
}
