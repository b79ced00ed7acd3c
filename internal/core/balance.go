package core

// StatusKind classifies the derived balance.
type StatusKind string

const (
	StatusHealthy    StatusKind = "healthy"
	StatusLowBalance StatusKind = "low_balance"
	StatusOverBudget StatusKind = "over_budget"
)

// BalanceStatus is the display-facing classification of a balance.
type BalanceStatus struct {
	Kind    StatusKind
	Label   string
	Icon    string
	Class   string
	Message string
}

// Balance derives the spendable amount. Pure; no independent state.
func Balance(totalIncome, totalExpense int64) int64 {
	return totalIncome - totalExpense
}

// Status classifies a balance against total income:
// negative is over budget, under 20% of income is low, otherwise healthy.
func Status(balance, totalIncome int64) BalanceStatus {
	switch {
	case balance < 0:
		return BalanceStatus{
			Kind:    StatusOverBudget,
			Label:   "Over Budget",
			Icon:    "💸",
			Class:   "negative",
			Message: "No funds available for expenses",
		}
	case float64(balance) < LowBalanceRatio*float64(totalIncome):
		return BalanceStatus{
			Kind:    StatusLowBalance,
			Label:   "Low Balance",
			Icon:    "⚠️",
			Class:   "warning",
			Message: "Balance is getting low",
		}
	default:
		return BalanceStatus{
			Kind:    StatusHealthy,
			Label:   "Healthy",
			Icon:    "✅",
			Class:   "positive",
			Message: "You can spend up to " + FormatAmount(balance),
		}
	}
}
