// Package catalog holds the static category and payment-method
// enumerations used by validation and formatting. The catalog is
// process-wide, immutable and never persisted.
package catalog

// Category describes an expense category.
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
	Color string `json:"color"`
}

// PaymentMethod describes how an expense was paid.
type PaymentMethod struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
}

// DefaultCategory and DefaultPayMethod back the default-on-miss policy:
// an unrecognized id always resolves to the "other" entry, never an error.
const (
	DefaultCategory  = "other"
	DefaultPayMethod = "cash"
)

var categories = []Category{
	{ID: "food", Name: "Food & Dining", Emoji: "🍔", Color: "#10B981"},
	{ID: "transport", Name: "Transport", Emoji: "🚗", Color: "#3B82F6"},
	{ID: "shopping", Name: "Shopping", Emoji: "🛍️", Color: "#8B5CF6"},
	{ID: "entertainment", Name: "Entertainment", Emoji: "🎬", Color: "#EC4899"},
	{ID: "bills", Name: "Bills", Emoji: "📄", Color: "#6366F1"},
	{ID: "health", Name: "Health", Emoji: "🏥", Color: "#EF4444"},
	{ID: "education", Name: "Education", Emoji: "📚", Color: "#F59E0B"},
	{ID: "other", Name: "Other", Emoji: "📦", Color: "#6B7280"},
}

var paymentMethods = []PaymentMethod{
	{ID: "cash", Name: "Cash", Emoji: "💵"},
	{ID: "kbz_pay", Name: "KBZ Pay", Emoji: "📱"},
	{ID: "wave_money", Name: "Wave Money", Emoji: "📱"},
	{ID: "bank", Name: "Bank", Emoji: "🏦"},
	{ID: "card", Name: "Card", Emoji: "💳"},
	{ID: "other", Name: "Other", Emoji: "📦"},
}

// Categories returns the full category catalog in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// PaymentMethods returns the full payment-method catalog in display order.
func PaymentMethods() []PaymentMethod {
	out := make([]PaymentMethod, len(paymentMethods))
	copy(out, paymentMethods)
	return out
}

// CategoryByID resolves a category id, falling back to "other".
func CategoryByID(id string) Category {
	for _, c := range categories {
		if c.ID == id {
			return c
		}
	}
	return CategoryByID(DefaultCategory)
}

// PaymentMethodByID resolves a payment-method id, falling back to "other".
func PaymentMethodByID(id string) PaymentMethod {
	for _, m := range paymentMethods {
		if m.ID == id {
			return m
		}
	}
	return PaymentMethodByID("other")
}

// KnownCategory reports whether id names a catalog category.
func KnownCategory(id string) bool {
	for _, c := range categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

// KnownPayMethod reports whether id names a catalog payment method.
func KnownPayMethod(id string) bool {
	for _, m := range paymentMethods {
		if m.ID == id {
			return true
		}
	}
	return false
}

// NormalizeCategory maps a missing id to the default category. Unknown
// ids are stored as-is and render through the default-on-miss lookup.
func NormalizeCategory(id string) string {
	if id == "" {
		return DefaultCategory
	}
	return id
}

// NormalizePayMethod maps a missing id to the default method. Unknown
// ids are stored as-is and render through the default-on-miss lookup.
func NormalizePayMethod(id string) string {
	if id == "" {
		return DefaultPayMethod
	}
	return id
}
