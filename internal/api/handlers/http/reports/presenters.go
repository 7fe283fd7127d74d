package reports

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mythic3011/AED-Api/pkg/e"
	"github.com/mythic3011/AED-Api/pkg/validator"
)

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	l := h.log(r)

	var ve *validator.ValidationError
	if errors.As(err, &ve) {
		l.Warn("parameter rejected",
			slog.String("param", ve.Param),
			slog.String("reason", string(ve.Reason)),
		)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": ve.Error()})
		return
	}

	l.Error("handler error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)

	status := http.StatusInternalServerError
	switch e.Classify(err) {
	case e.KindNotFound:
		status = http.StatusNotFound
	case e.KindValidation, e.KindInjection:
		status = http.StatusBadRequest
	case e.KindConnection:
		status = http.StatusServiceUnavailable
	}

	h.writeJSON(w, status, map[string]string{"error": e.UserMessage(err)})
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
