package models

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	surrealdb_models "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Typed IDs wrap the entity identity as an opaque string. Rows in the local
// relational store carry auto-incrementing int64 keys; their typed-ID form is
// the decimal text of that integer, which is also the document id the record
// keeps when it is migrated to the remote store. Entities created directly
// against the remote store get client-generated UUID strings instead.
//
// The two forms never collide (a UUID is not a decimal integer), so a single
// identity space covers both sources and cross-references survive migration
// unchanged.

// UserID is a typed ID for users.
type UserID struct {
	id string
}

// NewUserID generates a remote-native user identity.
func NewUserID() UserID {
	return UserID{id: uuid.NewString()}
}

// UserIDFromInt64 converts a local row key into its typed-ID form.
func UserIDFromInt64(n int64) UserID {
	return UserID{id: strconv.FormatInt(n, 10)}
}

func ParseUserID(s string) (UserID, error) {
	if s == "" {
		return UserID{}, fmt.Errorf("empty user ID")
	}
	return UserID{id: s}, nil
}

func (u UserID) String() string { return u.id }
func (u UserID) IsZero() bool   { return u.id == "" }

// Int64 returns the local row key, or an error when the identity is not a
// decimal integer (i.e. the record was born remotely).
func (u UserID) Int64() (int64, error) {
	n, err := strconv.ParseInt(u.id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("user ID %q is not a local row key: %w", u.id, err)
	}
	return n, nil
}

func (u UserID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{Table: "users", ID: u.id}
}

func (u UserID) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.id)
}

func (u *UserID) UnmarshalJSON(data []byte) error {
	return unmarshalJSONID(data, &u.id)
}

func (u UserID) MarshalCBOR() ([]byte, error) {
	return marshalCBORID("users", u.id)
}

func (u *UserID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, "users", &u.id)
}

// DoctorID is a typed ID for doctors.
type DoctorID struct {
	id string
}

func NewDoctorID() DoctorID {
	return DoctorID{id: uuid.NewString()}
}

func DoctorIDFromInt64(n int64) DoctorID {
	return DoctorID{id: strconv.FormatInt(n, 10)}
}

func ParseDoctorID(s string) (DoctorID, error) {
	if s == "" {
		return DoctorID{}, fmt.Errorf("empty doctor ID")
	}
	return DoctorID{id: s}, nil
}

func (d DoctorID) String() string { return d.id }
func (d DoctorID) IsZero() bool   { return d.id == "" }

func (d DoctorID) Int64() (int64, error) {
	n, err := strconv.ParseInt(d.id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("doctor ID %q is not a local row key: %w", d.id, err)
	}
	return n, nil
}

func (d DoctorID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{Table: "doctors", ID: d.id}
}

func (d DoctorID) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.id)
}

func (d *DoctorID) UnmarshalJSON(data []byte) error {
	return unmarshalJSONID(data, &d.id)
}

func (d DoctorID) MarshalCBOR() ([]byte, error) {
	return marshalCBORID("doctors", d.id)
}

func (d *DoctorID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, "doctors", &d.id)
}

// AppointmentID is a typed ID for appointments.
type AppointmentID struct {
	id string
}

func NewAppointmentID() AppointmentID {
	return AppointmentID{id: uuid.NewString()}
}

func AppointmentIDFromInt64(n int64) AppointmentID {
	return AppointmentID{id: strconv.FormatInt(n, 10)}
}

func ParseAppointmentID(s string) (AppointmentID, error) {
	if s == "" {
		return AppointmentID{}, fmt.Errorf("empty appointment ID")
	}
	return AppointmentID{id: s}, nil
}

func (a AppointmentID) String() string { return a.id }
func (a AppointmentID) IsZero() bool   { return a.id == "" }

func (a AppointmentID) Int64() (int64, error) {
	n, err := strconv.ParseInt(a.id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("appointment ID %q is not a local row key: %w", a.id, err)
	}
	return n, nil
}

func (a AppointmentID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{Table: "appointments", ID: a.id}
}

func (a AppointmentID) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.id)
}

func (a *AppointmentID) UnmarshalJSON(data []byte) error {
	return unmarshalJSONID(data, &a.id)
}

func (a AppointmentID) MarshalCBOR() ([]byte, error) {
	return marshalCBORID("appointments", a.id)
}

func (a *AppointmentID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, "appointments", &a.id)
}

// RatingID is a typed ID for ratings.
type RatingID struct {
	id string
}

func NewRatingID() RatingID {
	return RatingID{id: uuid.NewString()}
}

func RatingIDFromInt64(n int64) RatingID {
	return RatingID{id: strconv.FormatInt(n, 10)}
}

func ParseRatingID(s string) (RatingID, error) {
	if s == "" {
		return RatingID{}, fmt.Errorf("empty rating ID")
	}
	return RatingID{id: s}, nil
}

func (r RatingID) String() string { return r.id }
func (r RatingID) IsZero() bool   { return r.id == "" }

func (r RatingID) Int64() (int64, error) {
	n, err := strconv.ParseInt(r.id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("rating ID %q is not a local row key: %w", r.id, err)
	}
	return n, nil
}

func (r RatingID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{Table: "ratings", ID: r.id}
}

func (r RatingID) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.id)
}

func (r *RatingID) UnmarshalJSON(data []byte) error {
	return unmarshalJSONID(data, &r.id)
}

func (r RatingID) MarshalCBOR() ([]byte, error) {
	return marshalCBORID("ratings", r.id)
}

func (r *RatingID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, "ratings", &r.id)
}

// NotificationID is a typed ID for notifications.
type NotificationID struct {
	id string
}

func NewNotificationID() NotificationID {
	return NotificationID{id: uuid.NewString()}
}

func NotificationIDFromInt64(n int64) NotificationID {
	return NotificationID{id: strconv.FormatInt(n, 10)}
}

func ParseNotificationID(s string) (NotificationID, error) {
	if s == "" {
		return NotificationID{}, fmt.Errorf("empty notification ID")
	}
	return NotificationID{id: s}, nil
}

func (n NotificationID) String() string { return n.id }
func (n NotificationID) IsZero() bool   { return n.id == "" }

func (n NotificationID) Int64() (int64, error) {
	v, err := strconv.ParseInt(n.id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("notification ID %q is not a local row key: %w", n.id, err)
	}
	return v, nil
}

func (n NotificationID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{Table: "notifications", ID: n.id}
}

func (n NotificationID) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.id)
}

func (n *NotificationID) UnmarshalJSON(data []byte) error {
	return unmarshalJSONID(data, &n.id)
}

func (n NotificationID) MarshalCBOR() ([]byte, error) {
	return marshalCBORID("notifications", n.id)
}

func (n *NotificationID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, "notifications", &n.id)
}

// Helper functions

func unmarshalJSONID(data []byte, target *string) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*target = s
	return nil
}

// marshalCBORID encodes an identity as a SurrealDB RecordID. SurrealDB uses
// CBOR tag 8 with [table, id] content for record ids in its binary protocol.
func marshalCBORID(table, id string) ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  8,
		Content: []any{table, id},
	})
}

// unmarshalCBORID decodes a SurrealDB RecordID back into the identity string.
// Accepts either the tagged [table, id] form or a bare string for data that
// predates record-id references.
func unmarshalCBORID(data []byte, expectedTable string, target *string) error {
	if len(data) == 0 {
		return fmt.Errorf("empty CBOR data")
	}

	// Major type 6 is a CBOR tag; everything else is treated as a bare id.
	if data[0]>>5 != 6 {
		var s string
		if err := cbor.Unmarshal(data, &s); err != nil {
			return err
		}
		*target = s
		return nil
	}

	var tag cbor.Tag
	if err := cbor.Unmarshal(data, &tag); err != nil {
		return fmt.Errorf("failed to unmarshal CBOR tag: %w", err)
	}
	if tag.Number != 8 {
		return fmt.Errorf("expected RecordID tag (8), got %d", tag.Number)
	}

	arr, ok := tag.Content.([]any)
	if !ok || len(arr) != 2 {
		return fmt.Errorf("invalid RecordID format: expected [table, id] array")
	}

	table, ok := arr[0].(string)
	if !ok {
		return fmt.Errorf("invalid RecordID format: table name must be string")
	}
	if table != expectedTable {
		return fmt.Errorf("expected table %s, got %s", expectedTable, table)
	}

	switch id := arr[1].(type) {
	case string:
		*target = id
	case int64:
		*target = strconv.FormatInt(id, 10)
	case uint64:
		*target = strconv.FormatUint(id, 10)
	default:
		return fmt.Errorf("invalid RecordID format: unsupported id type %T", arr[1])
	}
	return nil
}
