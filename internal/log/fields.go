package log

// Common field names for structured logging.
const (
	FieldComponent  = "component"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldUserID     = "user_id"
	FieldCollection = "collection"
	FieldDocID      = "doc_id"
	FieldAmount     = "amount"
	FieldBalance    = "balance"
	FieldOverage    = "overage"
	FieldBackend    = "backend"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldClientIP   = "client_ip"
)

// Standard component names.
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentStore   = "store"
	ComponentIncome  = "income"
	ComponentLedger  = "ledger"
	ComponentSession = "session"
	ComponentRelay   = "relay"
	ComponentExport  = "export"
	ComponentWorker  = "worker"
)
