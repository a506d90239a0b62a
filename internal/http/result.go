package httpapi

import (
	"errors"
	"net/http"

	"github.com/iamyinka/reliefproj/internal/domain"

	"go.uber.org/zap"
)

// Result is the response envelope shared by every JSON endpoint.
// Failures always carry success=false and a message; validation failures add errors.
type Result[T any] struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    T                   `json:"data,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

func Ok[T any](message string, data T) Result[T] {
	return Result[T]{Success: true, Message: message, Data: data}
}

func Fail(message string) Result[any] {
	return Result[any]{Success: false, Message: message}
}

// blockedData accompanies an eligibility rejection.
type blockedData struct {
	ReferenceNumber string `json:"reference_number,omitempty"`
	DaysRemaining   int    `json:"days_remaining"`
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var verr *domain.ValidationError
	var blocked *domain.EligibilityBlockedError
	switch {
	case errors.As(err, &verr), errors.As(err, &blocked):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidPhoneFormat),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrExpired),
		errors.Is(err, domain.ErrAlreadyCompleted),
		errors.Is(err, domain.ErrCancelled):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrCodeCollision):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError writes the failure envelope for err. Unexpected errors are
// logged and their text is not exposed.
func writeError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	status := statusFor(err)

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, status, Result[any]{Success: false, Message: "Please correct the errors below.", Errors: verr.Fields})
		return
	}
	var blocked *domain.EligibilityBlockedError
	if errors.As(err, &blocked) {
		data := blockedData{DaysRemaining: blocked.DaysRemaining}
		if blocked.Blocking != nil {
			data.ReferenceNumber = blocked.Blocking.ReferenceNumber
		}
		writeJSON(w, status, Result[blockedData]{Success: false, Message: blocked.Error(), Data: data})
		return
	}

	switch status {
	case http.StatusInternalServerError:
		logger.Error(op+" failed", zap.Error(err))
		writeJSON(w, status, Fail("Something went wrong. Please try again."))
	case http.StatusNotFound:
		writeJSON(w, status, Fail(notFoundMessage(op)))
	default:
		logger.Info(op+" refused", zap.Error(err))
		writeJSON(w, status, Fail(userMessage(err)))
	}
}

func notFoundMessage(op string) string {
	switch op {
	case "VerifyPickup", "CompletePickup", "ConfirmPickup", "PickupStatus", "PickupImage", "OverridePickup":
		return "Pickup not found."
	case "RestockPackage", "AllocatePackage", "GetPackage", "UpdatePackage":
		return "Package not found."
	}
	return "Application not found."
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrAlreadyCompleted):
		return "This package has already been collected."
	case errors.Is(err, domain.ErrCancelled):
		return "This pickup has been cancelled."
	case errors.Is(err, domain.ErrExpired):
		return "This QR code has expired. " + err.Error()
	case errors.Is(err, domain.ErrInvalidPhoneFormat):
		return "Enter a valid Nigerian phone number."
	case errors.Is(err, domain.ErrCodeCollision):
		return "Could not allocate a unique code. Please retry."
	}
	return err.Error()
}
