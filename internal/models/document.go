package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Document is a free-form JSON metadata payload stored in a json column.
// Operations treat it as opaque pass-through data and never interpret keys.
type Document map[string]interface{}

// Value marshals the document for storage. A nil document stores SQL NULL.
func (d Document) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("models: marshal document: %w", err)
	}
	return string(data), nil
}

// Scan unmarshals a json column value into the document.
func (d *Document) Scan(src interface{}) error {
	if src == nil {
		*d = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("models: scan document: unsupported type %T", src)
	}
	if len(data) == 0 {
		*d = nil
		return nil
	}
	if err := json.Unmarshal(data, d); err != nil {
		return fmt.Errorf("models: scan document: %w", err)
	}
	return nil
}
