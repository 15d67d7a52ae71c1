package response

import (
	"encoding/json"
	"net/http"

	"campus-maintenance-system/pkg/apperror"
)

// ShowErrorDetails controls whether the underlying cause is echoed back
// to clients. Services switch it off in production.
var ShowErrorDetails = true

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Count   *int        `json:"count,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type uploadErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func JSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func Success(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	JSON(w, statusCode, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// List is Success with a count, used by collection endpoints.
func List(w http.ResponseWriter, message string, data interface{}, count int) {
	JSON(w, http.StatusOK, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
		Count:   &count,
	})
}

func Error(w http.ResponseWriter, statusCode int, message string, errDetail string) {
	resp := APIResponse{
		Success: false,
		Message: message,
	}
	if ShowErrorDetails {
		resp.Error = errDetail
	}
	JSON(w, statusCode, resp)
}

// Fail renders any error, mapping domain errors to their status code.
func Fail(w http.ResponseWriter, err error) {
	appErr := apperror.As(err)
	detail := ""
	if appErr.Err != nil {
		detail = appErr.Err.Error()
	}
	Error(w, appErr.Status(), appErr.Message, detail)
}

// UploadError uses the upload envelope ({status, message}) that file
// handling has always returned.
func UploadError(w http.ResponseWriter, statusCode int, message string) {
	JSON(w, statusCode, uploadErrorResponse{Status: "error", Message: message})
}
