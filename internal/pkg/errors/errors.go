package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется для ошибок авторизации (неверный токен, нет прав).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется для конфликтов состояния (например, повторный вход в уже активную попытку).
	ErrConflict = errors.New("resource state conflict")

	// ErrAlreadySubmitted используется, когда попытка уже была отправлена на проверку.
	// Повторный вход и повторная отправка блокируются.
	ErrAlreadySubmitted = errors.New("attempt already submitted")

	// ErrAttemptLocked используется, когда попытка занята другим владельцем (другая вкладка/устройство).
	ErrAttemptLocked = errors.New("attempt is locked by another session")

	// ErrUpstream используется для ошибок вышестоящего API платформы (загрузка страницы, отправка).
	// Такие ошибки восстановимы: пользователь может повторить действие вручную.
	ErrUpstream = errors.New("upstream request failed")

	// ErrExpired используется, когда время попытки истекло и действие больше недоступно.
	ErrExpired = errors.New("attempt time expired")
)
