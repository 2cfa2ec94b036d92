package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"ticket-booking/internal/apperror"
)

type Response struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Action  string `json:"action,omitempty"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

// ResponseJSON writes JSON response with custom status code
func ResponseJSON(w http.ResponseWriter, code int, response Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(response)
}

// ------------- Success responses -------------

// returns 200 OK
func ResponseSuccess(w http.ResponseWriter, message string, data any) {
	ResponseJSON(w, http.StatusOK, Response{Status: true, Message: message, Data: data})
}

// returns 201 Created
func ResponseCreated(w http.ResponseWriter, message string, data any) {
	ResponseJSON(w, http.StatusCreated, Response{Status: true, Message: message, Data: data})
}

// ------------- Error responses -------------

// returns 400 Bad Request
func ResponseBadRequest(w http.ResponseWriter, message string, errors any) {
	ResponseJSON(w, http.StatusBadRequest, Response{
		Message: message,
		Code:    apperror.ErrInvalidRequest.Code,
		Action:  string(apperror.ActionFixInput),
		Errors:  errors,
	})
}

// returns 401 Unauthorized
func ResponseUnauthorized(w http.ResponseWriter, message string) {
	ResponseJSON(w, http.StatusUnauthorized, Response{Message: message, Code: "UNAUTHORIZED"})
}

// returns 403 Forbidden
func ResponseForbidden(w http.ResponseWriter, message string) {
	ResponseJSON(w, http.StatusForbidden, Response{Message: message, Code: "FORBIDDEN"})
}

// returns 500 Internal Server Error
func ResponseInternalError(w http.ResponseWriter, message string) {
	ResponseJSON(w, http.StatusInternalServerError, Response{
		Message: message,
		Code:    apperror.ErrInternal.Code,
		Action:  string(apperror.ActionRetry),
	})
}

// ResponseError maps an apperror to its status code. Anything unclassified
// is a 500 and its detail stays in the logs.
func ResponseError(w http.ResponseWriter, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		ResponseInternalError(w, "Internal server error")
		return
	}

	ResponseJSON(w, StatusForKind(appErr.Kind), Response{
		Message: appErr.Message,
		Code:    appErr.Code,
		Action:  string(appErr.Action()),
	})
}

func StatusForKind(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindForbidden:
		return http.StatusForbidden
	case apperror.KindContention, apperror.KindConflict:
		return http.StatusConflict
	case apperror.KindReconciliation:
		return http.StatusUnprocessableEntity
	case apperror.KindExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
