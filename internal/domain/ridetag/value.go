package ridetag

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ptetdev/ptet/internal/domain/tag"
)

// ValueType discriminates the typed value carried by a ride-tag link.
// The wire names match the adjacently tagged JSON representation:
// {"type": "Integer", "value": 42}.
type ValueType string

const (
	ValueInteger    ValueType = "Integer"
	ValueFloat      ValueType = "Float"
	ValueString     ValueType = "String"
	ValueDateTime   ValueType = "DateTime"
	ValueEnumOption ValueType = "EnumOption"
)

// Value is the typed payload of a link. Exactly one of the payload fields
// is meaningful, selected by Type.
type Value struct {
	Type       ValueType
	Integer    int64
	Float      float64
	String     string
	DateTime   time.Time
	EnumOption int64
}

// valueJSON is the adjacently tagged wire form of Value.
type valueJSON struct {
	Type  ValueType       `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	var payload any
	switch v.Type {
	case ValueInteger:
		payload = v.Integer
	case ValueFloat:
		payload = v.Float
	case ValueString:
		payload = v.String
	case ValueDateTime:
		payload = v.DateTime.UTC().Format(time.RFC3339)
	case ValueEnumOption:
		payload = v.EnumOption
	default:
		return nil, fmt.Errorf("invalid value type %q", v.Type)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(valueJSON{Type: v.Type, Value: raw})
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var wire valueJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	out := Value{Type: wire.Type}
	switch wire.Type {
	case ValueInteger:
		if err := json.Unmarshal(wire.Value, &out.Integer); err != nil {
			return fmt.Errorf("integer value: %w", err)
		}
	case ValueFloat:
		if err := json.Unmarshal(wire.Value, &out.Float); err != nil {
			return fmt.Errorf("float value: %w", err)
		}
	case ValueString:
		if err := json.Unmarshal(wire.Value, &out.String); err != nil {
			return fmt.Errorf("string value: %w", err)
		}
	case ValueDateTime:
		var s string
		if err := json.Unmarshal(wire.Value, &s); err != nil {
			return fmt.Errorf("date/time value: %w", err)
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("date/time value: %w", err)
		}
		out.DateTime = t.UTC()
	case ValueEnumOption:
		if err := json.Unmarshal(wire.Value, &out.EnumOption); err != nil {
			return fmt.Errorf("enum option value: %w", err)
		}
	default:
		return fmt.Errorf("invalid value type %q", wire.Type)
	}
	*v = out
	return nil
}

// Validate checks the value against the descriptor it is attached to: the
// payload kind must match the tag type, and an enum option must be one of
// the tag's own options.
func (v Value) Validate(t *tag.Tag) error {
	switch v.Type {
	case ValueInteger:
		if t.Type != tag.TypeInteger {
			return fmt.Errorf("tag %q expects %s, got integer", t.Key, t.Type)
		}
	case ValueFloat:
		if t.Type != tag.TypeFloat {
			return fmt.Errorf("tag %q expects %s, got float", t.Key, t.Type)
		}
	case ValueString:
		if t.Type != tag.TypeString {
			return fmt.Errorf("tag %q expects %s, got string", t.Key, t.Type)
		}
	case ValueDateTime:
		if t.Type != tag.TypeDateTime {
			return fmt.Errorf("tag %q expects %s, got date/time", t.Key, t.Type)
		}
	case ValueEnumOption:
		if t.Type != tag.TypeEnum {
			return fmt.Errorf("tag %q expects %s, got enum option", t.Key, t.Type)
		}
		if !t.HasOption(v.EnumOption) {
			return fmt.Errorf("option %d does not belong to tag %q", v.EnumOption, t.Key)
		}
	default:
		return fmt.Errorf("invalid value type %q", v.Type)
	}
	return nil
}
