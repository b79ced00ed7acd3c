package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"kyat/internal/core"
)

type errorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind"`
	Overage int64  `json:"overage,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP statuses: validation 400,
// unauthenticated 401, insufficient balance 422, store failures 502.
func writeError(w http.ResponseWriter, err error) {
	var ve *core.ValidationError
	var ibe *core.InsufficientBalanceError
	var se *core.StoreError

	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Message, Kind: "validation"})
	case errors.Is(err, core.ErrNotAuthenticated):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error(), Kind: "unauthenticated"})
	case errors.As(err, &ibe):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:   ibe.Error(),
			Kind:    "insufficient_balance",
			Overage: ibe.Overage(),
		})
	case errors.As(err, &se):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: se.Error(), Kind: "store"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), Kind: "internal"})
	}
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &core.ValidationError{Message: "invalid request body: " + err.Error()}
	}
	return nil
}

// amountField accepts either a numeric amount or a formatted text one
// ("12,345"). Exactly one must be present.
type amountField struct {
	Amount     int64  `json:"amount"`
	AmountText string `json:"amountText"`
}

func (f amountField) value() (int64, error) {
	if strings.TrimSpace(f.AmountText) != "" {
		return core.ParseAmount(f.AmountText)
	}
	return f.Amount, nil
}
