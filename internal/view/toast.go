// Package view builds the page models the server renders: each page composes stores,
// turns remote failures into toasts and never lets an error escape to the caller.
package view

import (
	"errors"

	"github.com/pillow12360/eureka-ssul/internal/models"
)

type ToastKind string

const (
	ToastError   ToastKind = "error"
	ToastSuccess ToastKind = "success"
	ToastInfo    ToastKind = "info"
)

// Toast is a transient notification shown to the user.
type Toast struct {
	Kind    ToastKind `json:"kind"`
	Title   string    `json:"title,omitempty"`
	Message string    `json:"message"`
}

func errorToast(title string, err error) Toast {
	msg := err.Error()
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	return Toast{Kind: ToastError, Title: title, Message: msg}
}

func successToast(title, msg string) Toast {
	return Toast{Kind: ToastSuccess, Title: title, Message: msg}
}

// fieldErrors returns the per-field messages of a validation error.
func fieldErrors(err error) map[string]string {
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code == models.CodeValidation {
		return appErr.Fields
	}
	return nil
}
