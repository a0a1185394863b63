package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Actor is the resolved identity of the authenticated caller, copied from the
// session by the handler layer. Services trust it only as far as the session
// binding goes; nothing identity-related is taken from request bodies.
type Actor struct {
	ID          uuid.UUID
	DisplayName string
	Role        string
	Department  string
}

// nextCode produces a per-day sequential human-readable code like
// REQ-20250115-00042. On Postgres an advisory transaction lock keyed on the
// prefix prevents two concurrent callers from drawing the same sequence
// number; the sqlite test database serializes writers on its own.
func nextCode(tx *gorm.DB, kind string, countByPrefix func(prefix string) (int64, error)) (string, error) {
	today := time.Now().Format("20060102")
	prefix := kind + "-" + today + "-"

	if tx.Dialector.Name() == "postgres" {
		tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", prefix)
	}

	count, err := countByPrefix(prefix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}
