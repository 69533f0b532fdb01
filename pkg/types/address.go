package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Address is the JSONB shipping-address snapshot stored on orders.
// It is copied from the customer's address book at order time and
// never tracks later edits to the source address.
type Address struct {
	Street  string   `json:"street"`
	City    string   `json:"city"`
	State   string   `json:"state"`
	Zip     string   `json:"zip"`
	Country string   `json:"country"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

// Validate reports the first missing required field.
func (a Address) Validate() error {
	switch {
	case strings.TrimSpace(a.Street) == "":
		return fmt.Errorf("address: missing street")
	case strings.TrimSpace(a.City) == "":
		return fmt.Errorf("address: missing city")
	case strings.TrimSpace(a.Zip) == "":
		return fmt.Errorf("address: missing zip")
	case strings.TrimSpace(a.Country) == "":
		return fmt.Errorf("address: missing country")
	}
	return nil
}

// Value marshals Address into JSONB.
func (a Address) Value() (driver.Value, error) {
	buf, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(buf), nil
}

// Scan decodes JSONB into the Address.
func (a *Address) Scan(value interface{}) error {
	if value == nil {
		*a = Address{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("address: unsupported scan type %T", value)
	}

	return json.Unmarshal(raw, a)
}
