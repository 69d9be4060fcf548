package database

import "errors"

var (
	// ErrDuplicateUsername нарушение уникальности имени пользователя
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrNotFound запрошенная запись отсутствует
	ErrNotFound = errors.New("record not found")
)
