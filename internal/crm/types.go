package crm

// Attio returns records whose field values are each a history slice; the
// current value is always index 0. Only the fields the tools consume are
// modelled here — unknown fields decode into the same generic shape.

// Record is a single CRM record (a deal) as returned by the records-query
// endpoint.
type Record struct {
	ID     RecordID                `json:"id"`
	Values map[string][]FieldValue `json:"values"`
}

// RecordID carries the record's opaque identifier.
type RecordID struct {
	RecordID string `json:"record_id"`
}

// FieldValue is one entry of a field's value slice.
type FieldValue struct {
	// Value holds plain field values (e.g. the deal name).
	Value any `json:"value,omitempty"`

	// CurrencyValue holds monetary amounts.
	CurrencyValue float64 `json:"currency_value,omitempty"`

	// Status holds pipeline-stage values.
	Status *Status `json:"status,omitempty"`
}

// Status is a pipeline-stage field value.
type Status struct {
	Title string   `json:"title"`
	ID    StatusID `json:"id"`
}

// StatusID carries the stage's opaque identifier.
type StatusID struct {
	StatusID string `json:"status_id"`
}

// unknownLabel is the sentinel bucket for records missing a stage or name.
const unknownLabel = "Unknown"

// Stage returns the record's current pipeline stage, or nil when the record
// has no stage field or an empty value slice.
func (r Record) Stage() *Status {
	vs := r.Values["stage"]
	if len(vs) == 0 {
		return nil
	}
	return vs[0].Status
}

// Name returns the record's deal name, or "Unknown" when absent.
func (r Record) Name() string {
	vs := r.Values["name"]
	if len(vs) == 0 {
		return unknownLabel
	}
	if s, ok := vs[0].Value.(string); ok && s != "" {
		return s
	}
	return unknownLabel
}

// Amount returns the record's primary monetary value, or 0 when absent.
func (r Record) Amount() float64 {
	vs := r.Values["value"]
	if len(vs) == 0 {
		return 0
	}
	return vs[0].CurrencyValue
}
