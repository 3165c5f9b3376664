package api

import (
	"encoding/json"
	"net/http"

	"github.com/example/ec-cart/internal/apperr"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, ErrorResponse{Code: status, Message: message})
}

// respondError maps an *apperr.Error to its status and message. Anything
// else is logged and reported as an internal error.
func respondError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	appErr := apperr.As(err)
	if appErr.Kind == apperr.KindInternal {
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	respondJSONError(w, appErr.Message, appErr.HTTPStatus())
}
