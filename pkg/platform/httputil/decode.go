package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "inclusao/pkg/domain-errors"
	"inclusao/pkg/requestcontext"
)

// DecodeJSON reads a single JSON object from the body into T. Unknown
// fields and trailing data are rejected. On failure it has already
// written a 400 and returns nil, false.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	var req T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(&req)
	if err == nil && dec.More() {
		err = errTrailingData
	}
	if err != nil {
		ctx := r.Context()
		logger.WarnContext(ctx, "failed to decode request body",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "corpo da requisição inválido"))
		return nil, false
	}
	return &req, true
}

var errTrailingData = dErrors.New(dErrors.CodeBadRequest, "dados após o objeto JSON")
