package models

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound        = errors.New("заказ не найден")
	ErrSubmissionInProgress = errors.New("сохранение уже выполняется")
	ErrNoOrders             = errors.New("нет заказов")
)

// ValidationError - ошибка ввода. Field указывает поле, на которое
// интерфейс должен вернуть фокус.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// PersistenceError - сбой записи в хранилище
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("Ошибка сохранения (%s): %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ImportFormatError - данные буфера обмена не похожи на снимок
type ImportFormatError struct {
	Message string
	Err     error
}

func (e *ImportFormatError) Error() string {
	return e.Message
}

func (e *ImportFormatError) Unwrap() error {
	return e.Err
}
