package persistence

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Typed accessors for Row values. pgx surfaces uuid columns as [16]byte and
// timestamptz as time.Time; these helpers absorb that plus the string forms
// seen with text-mode results.

// RowUUID reads a uuid column.
func RowUUID(row Row, column string) (uuid.UUID, error) {
	switch v := row[column].(type) {
	case [16]byte:
		return uuid.UUID(v), nil
	case string:
		return uuid.Parse(v)
	case nil:
		return uuid.Nil, fmt.Errorf("persistence: column %q is null", column)
	default:
		return uuid.Nil, fmt.Errorf("persistence: column %q is not a uuid (%T)", column, v)
	}
}

// RowString reads a text column.
func RowString(row Row, column string) (string, error) {
	v, ok := row[column].(string)
	if !ok {
		return "", fmt.Errorf("persistence: column %q is not text (%T)", column, row[column])
	}
	return v, nil
}

// RowUUIDPtr reads a nullable uuid column; nil when NULL.
func RowUUIDPtr(row Row, column string) (*uuid.UUID, error) {
	if row[column] == nil {
		return nil, nil
	}
	v, err := RowUUID(row, column)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// RowStringPtr reads a nullable text column; nil when NULL.
func RowStringPtr(row Row, column string) (*string, error) {
	if row[column] == nil {
		return nil, nil
	}
	v, err := RowString(row, column)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// RowTime reads a non-null timestamp column.
func RowTime(row Row, column string) (time.Time, error) {
	v, ok := row[column].(time.Time)
	if !ok {
		return time.Time{}, fmt.Errorf("persistence: column %q is not a timestamp (%T)", column, row[column])
	}
	return v, nil
}

// RowTimePtr reads a nullable timestamp column; nil when NULL.
func RowTimePtr(row Row, column string) (*time.Time, error) {
	if row[column] == nil {
		return nil, nil
	}
	v, err := RowTime(row, column)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
