// Package mapping converts between database null types and domain values.
package mapping

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

func ValueToSQLNullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func ValueToSQLNullTime(value time.Time) sql.NullTime {
	return sql.NullTime{Time: value, Valid: !value.IsZero()}
}

func UUIDToSQLNullString(id uuid.UUID) sql.NullString {
	if id == uuid.Nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}

func SQLNullStringToUUID(value sql.NullString) uuid.UUID {
	if !value.Valid {
		return uuid.Nil
	}
	id, err := uuid.Parse(value.String)
	if err != nil {
		return uuid.Nil
	}
	return id
}
