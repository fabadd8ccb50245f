package types

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Compile-time interface assertions. Scan is on the pointer receiver,
// Value on the value receiver; this catches signature drift at compile time.
var (
	_ sql.Scanner   = (*PurchasePayload)(nil)
	_ driver.Valuer = PurchasePayload(nil)
)

// PurchasePayload is the raw purchase record delivered by the billing
// provider. The service treats it as opaque and stores it verbatim as
// JSONB; the only key it interprets is "expirationDate".
type PurchasePayload map[string]any

// purchaseExpirationKey is the one provider field the reconciliation logic
// reads. The provider formats it as an RFC 3339 / ISO-8601 timestamp.
const purchaseExpirationKey = "expirationDate"

// ExpirationDate extracts and parses the payload's expiration timestamp.
// Returns false when the key is absent, not a string, or unparseable; a
// purchase without a readable expiration never outranks one with a date.
func (p PurchasePayload) ExpirationDate() (time.Time, bool) {
	raw, ok := p[purchaseExpirationKey].(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// Scan implements sql.Scanner for reading JSONB from the database.
// A nil column value leaves the payload nil (no purchase stored).
func (p *PurchasePayload) Scan(value interface{}) error {
	if value == nil {
		*p = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("jsonb: unsupported scan type %T", value)
	}
	return json.Unmarshal(data, p)
}

// Value implements driver.Valuer for writing JSONB to the database.
// A nil payload is stored as SQL NULL, not as the JSON literal "null".
func (p PurchasePayload) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}
