package models

import (
	"encoding/json"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserIDFromInt64(t *testing.T) {
	id := UserIDFromInt64(42)
	assert.Equal(t, "42", id.String())
	assert.False(t, id.IsZero())

	n, err := id.Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
}

func TestNewUserIDIsNotLocal(t *testing.T) {
	id := NewUserID()
	assert.False(t, id.IsZero())

	// Remote-born identities are UUIDs and must not parse as row keys.
	_, err := id.Int64()
	assert.Error(t, err)
}

func TestParseUserIDEmpty(t *testing.T) {
	_, err := ParseUserID("")
	assert.Error(t, err)
}

func TestUserIDJSONRoundTrip(t *testing.T) {
	id := UserIDFromInt64(7)
	data, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"7"`, string(data))

	var decoded UserID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, id, decoded)
}

func TestUserIDCBORRoundTrip(t *testing.T) {
	id := UserIDFromInt64(7)
	data, err := id.MarshalCBOR()
	require.NoError(t, err)

	var decoded UserID
	require.NoError(t, decoded.UnmarshalCBOR(data))
	assert.Equal(t, id, decoded)
}

func TestUserIDCBORBareString(t *testing.T) {
	data, err := cbor.Marshal("legacy-id")
	require.NoError(t, err)

	var decoded UserID
	require.NoError(t, decoded.UnmarshalCBOR(data))
	assert.Equal(t, "legacy-id", decoded.String())
}

func TestUserIDCBORWrongTable(t *testing.T) {
	data, err := cbor.Marshal(cbor.Tag{Number: 8, Content: []any{"doctors", "1"}})
	require.NoError(t, err)

	var decoded UserID
	assert.Error(t, decoded.UnmarshalCBOR(data))
}

func TestRecordIDTables(t *testing.T) {
	assert.Equal(t, "users", UserIDFromInt64(1).RecordID().Table)
	assert.Equal(t, "doctors", DoctorIDFromInt64(1).RecordID().Table)
	assert.Equal(t, "appointments", AppointmentIDFromInt64(1).RecordID().Table)
	assert.Equal(t, "ratings", RatingIDFromInt64(1).RecordID().Table)
	assert.Equal(t, "notifications", NotificationIDFromInt64(1).RecordID().Table)
}

func TestAppointmentIDCBORIntegerID(t *testing.T) {
	// Records written server-side may carry integer ids.
	data, err := cbor.Marshal(cbor.Tag{Number: 8, Content: []any{"appointments", uint64(12)}})
	require.NoError(t, err)

	var decoded AppointmentID
	require.NoError(t, decoded.UnmarshalCBOR(data))
	assert.Equal(t, "12", decoded.String())
}
