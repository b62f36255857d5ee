package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/flixfinder/flixfinder/internal/search"
)

type HandlerWithErr func(w http.ResponseWriter, r *http.Request) error

type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message + " code=" + strconv.FormatInt(int64(e.Status), 10)
}

type errorResponse struct {
	Error string `json:"error"`
	Alert string `json:"alert,omitempty"`
}

func Adapt(h HandlerWithErr) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}

		var verr *search.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, &errorResponse{Error: verr.Message, Alert: verr.Message})
			return
		}
		if errors.Is(err, search.ErrSuperseded) {
			writeJSON(w, http.StatusConflict, &errorResponse{Error: err.Error()})
			return
		}
		var statusErr *Error
		if errors.As(err, &statusErr) {
			writeJSON(w, statusErr.Status, &errorResponse{Error: statusErr.Message})
			return
		}
		writeJSON(w, http.StatusInternalServerError, &errorResponse{Error: err.Error()})
	})
}
