package api

import (
	"errors"
	"net/http"

	"github.com/MikeSquared-Agency/Atlas/internal/engine"
)

// writeEngineError maps the engine's error taxonomy onto HTTP statuses:
// bad input and data-quality rejections are the caller's problem,
// numerical failures are reported as unprocessable.
func writeEngineError(w http.ResponseWriter, err error) {
	var ee *engine.Error
	if errors.As(err, &ee) {
		status := http.StatusBadRequest
		if ee.Kind == engine.KindNumerical {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, map[string]string{
			"error": ee.Error(),
			"code":  ee.Code,
		})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
