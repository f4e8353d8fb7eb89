package models

import (
	"errors"
	"fmt"
	"net/http"
)

// Виды ошибок движка. Проверяются через errors.Is.
var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidItem       = errors.New("invalid item")
	ErrEmptyItemList     = errors.New("empty item list")
	ErrInvalidRange      = errors.New("invalid range")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("concurrent modification")
)

// ErrorResponse описывает ошибку с кодом и сообщением.
type ErrorResponse struct {
	StatusCode int    `json:"-"`
	Message    string `json:"reason"`
	Kind       error  `json:"-"`
}

// NewErrorResponse создает новую ошибку с кодом и сообщением.
func NewErrorResponse(statusCode int, message string) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: statusCode,
		Message:    message}
}

// Реализация метода Error() для удовлетворения интерфейса error.
func (e *ErrorResponse) Error() string {
	return e.Message
}

// Unwrap возвращает вид ошибки.
func (e *ErrorResponse) Unwrap() error {
	return e.Kind
}

func newKindError(kind error, statusCode int, message string) *ErrorResponse {
	return &ErrorResponse{StatusCode: statusCode, Message: message, Kind: kind}
}

// NewInvalidTransition сообщает о недопустимой операции для текущего статуса.
func NewInvalidTransition(current ProposalStatus, op ProposalOperation) *ErrorResponse {
	return newKindError(ErrInvalidTransition, http.StatusConflict,
		fmt.Sprintf("cannot %s proposal in status %s", op, current))
}

// NewInvalidItem сообщает о некорректной позиции.
func NewInvalidItem(message string) *ErrorResponse {
	return newKindError(ErrInvalidItem, http.StatusBadRequest, message)
}

// NewEmptyItemList сообщает о попытке отправить предложение без позиций.
func NewEmptyItemList(proposalId string) *ErrorResponse {
	return newKindError(ErrEmptyItemList, http.StatusBadRequest,
		fmt.Sprintf("proposal %s has no items", proposalId))
}

// NewInvalidRange сообщает о некорректном окне аналитики.
func NewInvalidRange(message string) *ErrorResponse {
	return newKindError(ErrInvalidRange, http.StatusBadRequest, message)
}

// NewNotFound сообщает об отсутствии предложения.
func NewNotFound(proposalId string) *ErrorResponse {
	return newKindError(ErrNotFound, http.StatusNotFound,
		fmt.Sprintf("proposal %s not found", proposalId))
}

// NewConflict сообщает о проигранной гонке за версию предложения.
func NewConflict(proposalId string) *ErrorResponse {
	return newKindError(ErrConflict, http.StatusConflict,
		fmt.Sprintf("proposal %s was modified concurrently, retry", proposalId))
}
