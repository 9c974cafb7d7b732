package ridetag_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptetdev/ptet/internal/domain/ridetag"
	"github.com/ptetdev/ptet/internal/domain/tag"
)

func TestValueWireFormat(t *testing.T) {
	v := ridetag.Value{Type: ridetag.ValueFloat, Float: 19.9}
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Float","value":19.9}`, string(raw))

	var back ridetag.Value
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, v, back)
}

func TestValueDateTimeNormalizedToUTC(t *testing.T) {
	var v ridetag.Value
	err := json.Unmarshal([]byte(`{"type":"DateTime","value":"2026-03-14T09:30:00+01:00"}`), &v)
	require.NoError(t, err)

	assert.Equal(t, ridetag.ValueDateTime, v.Type)
	assert.Equal(t, time.Date(2026, 3, 14, 8, 30, 0, 0, time.UTC), v.DateTime)

	raw, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"DateTime","value":"2026-03-14T08:30:00Z"}`, string(raw))
}

func TestValueRejectsUnknownType(t *testing.T) {
	var v ridetag.Value
	err := json.Unmarshal([]byte(`{"type":"Boolean","value":true}`), &v)
	assert.Error(t, err)

	_, err = json.Marshal(ridetag.Value{Type: "Boolean"})
	assert.Error(t, err)
}

func TestValueRejectsPayloadMismatch(t *testing.T) {
	var v ridetag.Value
	err := json.Unmarshal([]byte(`{"type":"Integer","value":"five"}`), &v)
	assert.Error(t, err)
}

func TestValidateMatchesTagType(t *testing.T) {
	intTag := &tag.Tag{Key: "delay", Type: tag.TypeInteger}

	require.NoError(t, ridetag.Value{Type: ridetag.ValueInteger, Integer: 5}.Validate(intTag))
	assert.Error(t, ridetag.Value{Type: ridetag.ValueString, String: "late"}.Validate(intTag))
	assert.Error(t, ridetag.Value{Type: ridetag.ValueFloat, Float: 5}.Validate(intTag))
}

func TestValidateEnumOptionMembership(t *testing.T) {
	enumTag := &tag.Tag{
		Key:  "ticket",
		Type: tag.TypeEnum,
		Options: []tag.Option{
			{ID: 11, Value: "single"},
			{ID: 12, Value: "day_pass"},
		},
	}

	require.NoError(t, ridetag.Value{Type: ridetag.ValueEnumOption, EnumOption: 12}.Validate(enumTag))
	assert.Error(t, ridetag.Value{Type: ridetag.ValueEnumOption, EnumOption: 99}.Validate(enumTag))
	assert.Error(t, ridetag.Value{Type: ridetag.ValueInteger, Integer: 11}.Validate(enumTag))
}
