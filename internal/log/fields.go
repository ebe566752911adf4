package log

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Field names shared by every component
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldUserAgent     = "user_agent"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldOwner         = "owner"
	FieldAccountID     = "account_id"
	FieldTransactionID = "transaction_id"
	FieldKind          = "kind"
	FieldAmount        = "amount"
	FieldCategory      = "category"
	FieldMonth         = "month"
	FieldPersonID      = "person_id"
	FieldDebtID        = "debt_id"
	FieldBudgetID      = "budget_id"
	FieldCount         = "count"
	FieldRejected      = "rejected"
	FieldEvent         = "event"
	FieldBackend       = "backend"
)

// Component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentLedger   = "ledger"
	ComponentDebt     = "debt"
	ComponentBudget   = "budget"
	ComponentImport   = "import"
	ComponentExport   = "export"
	ComponentWorker   = "worker"
	ComponentCache    = "cache"
	ComponentSecurity = "security"
	ComponentTrace    = "trace"
	ComponentBackend  = "backend"
)

// Operation names
const (
	OpUpdate = "update"
	OpDelete = "delete"
	OpImport = "import"
)

// LogFields collects attributes for one record.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError records err's message; a nil err adds nothing.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithOwner(owner string) LogFields {
	f[FieldOwner] = owner
	return f
}

// WithTransaction adds the identifying fields of a transaction. The amount is
// rendered with two decimals.
func (f LogFields) WithTransaction(id, accountID, kind string, amount decimal.Decimal, category string) LogFields {
	f[FieldTransactionID] = id
	f[FieldAccountID] = accountID
	f[FieldKind] = kind
	f[FieldAmount] = amount.StringFixed(2)
	f[FieldCategory] = category
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if query != "" {
		f[FieldQuery] = query
	}
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice flattens the fields into slog key/value pairs in key order.
func (f LogFields) ToSlice() []any {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	slice := make([]any, 0, len(f)*2)
	for _, k := range keys {
		slice = append(slice, k, f[k])
	}
	return slice
}
