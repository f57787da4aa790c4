package cli

import (
	"fmt"
	"strings"

	"github.com/evoflow/pnmlcore/store"
)

// openAuditStore builds a store.AuditStore from a "--audit-db" flag
// value of the form "sqlite:<path>" or "mysql:<dsn>". Returns (nil, nil)
// for an empty spec, meaning no audit trail is kept.
func openAuditStore(spec string) (store.AuditStore, error) {
	if spec == "" {
		return nil, nil
	}
	scheme, rest, ok := strings.Cut(spec, ":")
	if !ok {
		return nil, fmt.Errorf("--audit-db %q: expected \"sqlite:<path>\" or \"mysql:<dsn>\"", spec)
	}
	switch scheme {
	case "sqlite":
		s, err := store.NewSQLiteAuditStore(rest)
		if err != nil {
			return nil, fmt.Errorf("open sqlite audit store: %w", err)
		}
		return s, nil
	case "mysql":
		s, err := store.NewMySQLAuditStore(rest)
		if err != nil {
			return nil, fmt.Errorf("open mysql audit store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("--audit-db %q: unknown backend %q (want \"sqlite\" or \"mysql\")", spec, scheme)
	}
}
