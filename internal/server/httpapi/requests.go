package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/authkeeper/internal/server/envelope"
	"github.com/dmitrijs2005/authkeeper/internal/server/validation"
)

const maxBodyBytes = 1 << 20

// decode reads the body into req and runs its validation. On failure the
// 400 envelope is already written and false is returned.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, req validation.Request) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(req); err != nil {
		h.log.Debug(r.Context(), "bad request body", "error", err)
		h.write(w, r, envelope.Invalid(validation.MsgInvalidBody))
		return false
	}
	// Trailing data after the object.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		h.write(w, r, envelope.Invalid(validation.MsgInvalidBody))
		return false
	}

	if msg := req.Validate(h.policy); msg != "" {
		h.write(w, r, envelope.Invalid(msg))
		return false
	}
	return true
}
