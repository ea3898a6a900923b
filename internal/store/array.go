package store

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// sqlStringArray adapts a Go []string to Postgres text[] literals for use
// with the database/sql interface, since the pgx stdlib driver speaks
// database/sql's narrower Scanner/Valuer contract rather than pgx's own
// richer type system.
type sqlStringArray []string

// Value renders the slice as a Postgres array literal, e.g. {a,b,c}.
func (a sqlStringArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	quoted := make([]string, len(a))
	for i, s := range a {
		quoted[i] = `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return "{" + strings.Join(quoted, ",") + "}", nil
}

// Scan parses a Postgres array literal back into a []string.
func (a *sqlStringArray) Scan(src interface{}) error {
	if src == nil {
		*a = nil
		return nil
	}

	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("unsupported type for sqlStringArray: %T", src)
	}

	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "{")
	raw = strings.TrimSuffix(raw, "}")
	if raw == "" {
		*a = sqlStringArray{}
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.TrimPrefix(p, `"`)
		p = strings.TrimSuffix(p, `"`)
		out[i] = strings.ReplaceAll(p, `\"`, `"`)
	}
	*a = sqlStringArray(out)
	return nil
}
