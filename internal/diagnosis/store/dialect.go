package store

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect names the SQL flavour a SQLStore speaks.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) validate() error {
	switch d {
	case DialectSQLite, DialectPostgres:
		return nil
	default:
		return fmt.Errorf("unsupported sql dialect %q", string(d))
	}
}

// rebind rewrites '?' placeholders into the dialect's positional form.
func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// forUpdate adds a row lock to a select issued inside a transaction. SQLite
// needs none: its single connection serializes whole transactions.
func (d Dialect) forUpdate(query string) string {
	if d != DialectPostgres {
		return query
	}
	return query + ` FOR UPDATE`
}

func (d Dialect) schema() []string {
	switch d {
	case DialectPostgres:
		return []string{
			`CREATE TABLE IF NOT EXISTS diagnoses (
				id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
				verification_code TEXT NOT NULL DEFAULT '',
				created_at_ms BIGINT,
				shared_status TEXT NOT NULL DEFAULT '',
				long_term_token TEXT NOT NULL DEFAULT '',
				certificate TEXT NOT NULL DEFAULT '',
				revision_token TEXT NOT NULL DEFAULT '',
				onset_date TEXT,
				has_symptoms TEXT NOT NULL DEFAULT '',
				test_result TEXT NOT NULL DEFAULT '',
				travel_status TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE INDEX IF NOT EXISTS idx_diagnoses_verification_code ON diagnoses (verification_code)`,
		}
	default:
		return []string{
			`CREATE TABLE IF NOT EXISTS diagnoses (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				verification_code TEXT NOT NULL DEFAULT '',
				created_at_ms INTEGER,
				shared_status TEXT NOT NULL DEFAULT '',
				long_term_token TEXT NOT NULL DEFAULT '',
				certificate TEXT NOT NULL DEFAULT '',
				revision_token TEXT NOT NULL DEFAULT '',
				onset_date TEXT,
				has_symptoms TEXT NOT NULL DEFAULT '',
				test_result TEXT NOT NULL DEFAULT '',
				travel_status TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE INDEX IF NOT EXISTS idx_diagnoses_verification_code ON diagnoses (verification_code)`,
		}
	}
}
