package http

import (
	"net/http"
	"time"

	"kyat/internal/catalog"
	"kyat/internal/core"
	"kyat/internal/log"
)

type entryPayload struct {
	ID        string    `json:"id"`
	Amount    int64     `json:"amount"`
	Formatted string    `json:"formatted"`
	Note      string    `json:"note,omitempty"`
	Category  string    `json:"category"`
	PayMethod string    `json:"payMethod"`
	Type      string    `json:"type,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Pending   bool      `json:"pending,omitempty"`
}

func toEntryPayload(e core.Entry) entryPayload {
	return entryPayload{
		ID:        e.ID,
		Amount:    e.Amount,
		Formatted: core.FormatAmount(e.Amount),
		Note:      e.Note,
		Category:  e.Category,
		PayMethod: e.PayMethod,
		Type:      string(e.Type),
		CreatedAt: e.CreatedAt,
		Pending:   e.Pending,
	}
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UID         string `json:"uid"`
		DisplayName string `json:"displayName"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.UID == "" {
		writeError(w, &core.ValidationError{Message: "uid is required"})
		return
	}

	s.provider.SignIn(req.UID, req.DisplayName)
	s.logger.InfoContext(r.Context(), "user signed in", log.FieldUserID, req.UID)
	writeJSON(w, http.StatusOK, map[string]any{"uid": req.UID, "displayName": req.DisplayName})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.provider.SignOut()
	s.logger.InfoContext(r.Context(), "user signed out")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	user := s.session.User()
	if user == nil {
		writeJSON(w, http.StatusOK, map[string]any{"signedIn": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"signedIn":    true,
		"uid":         user.UID,
		"displayName": user.DisplayName,
	})
}

func (s *Server) handleGetIncome(w http.ResponseWriter, _ *http.Request) {
	if err := s.session.Income.Err(); err != nil {
		writeError(w, err)
		return
	}
	total := s.session.Income.Total()
	resp := map[string]any{
		"amount":    total,
		"formatted": core.FormatAmount(total),
		"hasIncome": s.session.Income.HasIncomeSet(),
		"state":     s.session.Income.State().String(),
	}
	if t := s.session.Income.LastUpdated(); !t.IsZero() {
		resp["lastUpdated"] = t
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetIncome(w http.ResponseWriter, r *http.Request) {
	var req amountField
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	amount, err := req.value()
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.session.Income.SetInitial(r.Context(), amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"amount":    amount,
		"formatted": core.FormatAmount(amount),
	})
}

func (s *Server) handleReplaceIncome(w http.ResponseWriter, r *http.Request) {
	var req amountField
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	amount, err := req.value()
	if err != nil {
		writeError(w, err)
		return
	}
	change, err := s.session.Income.Replace(r.Context(), amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"old":        change.Old,
		"new":        change.New,
		"difference": change.Difference,
	})
}

func (s *Server) handleAddIncome(w http.ResponseWriter, r *http.Request) {
	var req amountField
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	amount, err := req.value()
	if err != nil {
		writeError(w, err)
		return
	}
	total, err := s.session.Income.AddDelta(r.Context(), amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"added":     amount,
		"total":     total,
		"formatted": core.FormatAmount(total),
	})
}

type createEntryRequest struct {
	Amount     int64  `json:"amount"`
	AmountText string `json:"amountText"`
	Note       string `json:"note"`
	Category   string `json:"category"`
	PayMethod  string `json:"payMethod"`
}

func (req createEntryRequest) amount() (int64, error) {
	return amountField{Amount: req.Amount, AmountText: req.AmountText}.value()
}

func (s *Server) handleListExpenses(w http.ResponseWriter, _ *http.Request) {
	s.writeLedger(w, s.session.Expenses.Err(), s.session.Expenses.Entries(), s.session.Expenses.Total())
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	amount, err := req.amount()
	if err != nil {
		writeError(w, err)
		return
	}
	echo, err := s.session.AddExpense(r.Context(), amount, req.Note, req.Category, req.PayMethod)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryPayload(echo))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Expenses.Remove(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, _ *http.Request) {
	s.writeLedger(w, s.session.Transactions.Err(), s.session.Transactions.Entries(), s.session.Transactions.Total())
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	amount, err := req.amount()
	if err != nil {
		writeError(w, err)
		return
	}
	echo, err := s.session.AddTransaction(r.Context(), amount, req.Note, req.Category, req.PayMethod)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryPayload(echo))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Transactions.Remove(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeLedger(w http.ResponseWriter, err error, entries []core.Entry, total int64) {
	if err != nil {
		writeError(w, err)
		return
	}
	payload := make([]entryPayload, len(entries))
	for i, e := range entries {
		payload[i] = toEntryPayload(e)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries":   payload,
		"count":     len(payload),
		"total":     total,
		"formatted": core.FormatAmount(total),
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, _ *http.Request) {
	balance := s.session.Balance()
	status := s.session.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"balance":   balance,
		"formatted": core.FormatAmount(balance),
		"income":    s.session.Income.Total(),
		"expenses":  s.session.Expenses.Total(),
		"percent":   s.session.ExpensePercentage(),
		"status": map[string]any{
			"kind":    status.Kind,
			"label":   status.Label,
			"icon":    status.Icon,
			"class":   status.Class,
			"message": status.Message,
		},
	})
}

func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"categories":     catalog.Categories(),
		"paymentMethods": catalog.PaymentMethods(),
	})
}
