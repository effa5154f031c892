package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Payload is a key-value blob used for job configuration, trigger parameters
// and record input/result data. It round-trips through the database as JSON.
type Payload map[string]interface{}

// NewPayload creates a new empty Payload.
func NewPayload() Payload {
	return make(Payload)
}

// Value implements the `driver.Valuer` interface, converting the Payload to a
// JSON string.
func (p Payload) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements the `sql.Scanner` interface, converting a JSON string to a
// Payload.
func (p *Payload) Scan(value interface{}) error {
	if value == nil {
		*p = make(Payload)
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported Scan type for Payload: %T", value)
	}

	if len(b) == 0 {
		*p = make(Payload)
		return nil
	}

	if err := json.Unmarshal(b, p); err != nil {
		return fmt.Errorf("failed to unmarshal Payload JSON: %w", err)
	}
	return nil
}

// Put sets a value in the Payload with the specified key.
func (p Payload) Put(key string, value interface{}) {
	p[key] = value
}

// Get retrieves the value for the specified key. Returns nil and false if the
// value does not exist.
func (p Payload) Get(key string) (interface{}, bool) {
	val, ok := p[key]
	return val, ok
}

// GetString retrieves the value for the specified key as a string.
func (p Payload) GetString(key string) (string, bool) {
	val, ok := p[key]
	if !ok {
		return "", false
	}
	str, ok := val.(string)
	return str, ok
}

// GetInt retrieves the value for the specified key as an int.
// Numbers unmarshaled from JSON arrive as float64 and are converted.
func (p Payload) GetInt(key string) (int, bool) {
	val, ok := p[key]
	if !ok {
		return 0, false
	}
	if i, ok := val.(int); ok {
		return i, true
	}
	if f, ok := val.(float64); ok {
		return int(f), true
	}
	return 0, false
}

// GetBool retrieves the value for the specified key as a bool.
func (p Payload) GetBool(key string) (bool, bool) {
	val, ok := p[key]
	if !ok {
		return false, false
	}
	b, ok := val.(bool)
	return b, ok
}

// Copy creates a shallow copy of the Payload. A nil payload stays nil.
func (p Payload) Copy() Payload {
	if p == nil {
		return nil
	}
	cp := make(Payload, len(p))
	for k, v := range p {
		cp[k] = v
	}
	return cp
}

// NewID generates a new UUID string used as a synthetic identifier for all
// persisted entities.
func NewID() string {
	return uuid.New().String()
}
