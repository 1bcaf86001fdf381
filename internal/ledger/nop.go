package ledger

import (
	"context"
	"fmt"

	"github.com/tiered-billing-engine/internal/domain"
)

// NopStore discards every entry. It backs the "none" ledger driver.
type NopStore struct{}

func (NopStore) Record(context.Context, *Entry) error { return nil }

func (NopStore) Get(_ context.Context, id string) (*Entry, error) {
	return nil, fmt.Errorf("ledger entry %s: %w", id, domain.ErrNotFound)
}

func (NopStore) List(context.Context, Kind, int, int) ([]*Entry, error) { return nil, nil }

func (NopStore) Count(context.Context, Kind) (int64, error) { return 0, nil }

func (NopStore) Delete(context.Context, string) error { return nil }

func (NopStore) Close() error { return nil }

// Open selects a store by driver name: "sqlite", "postgres" or "none".
func Open(cfg domain.LedgerConfig, postgresURL string) (Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath)
	case "postgres":
		url := cfg.URL
		if url == "" {
			url = postgresURL
		}
		return NewPostgresStoreFromURL(url)
	case "none", "":
		return NopStore{}, nil
	default:
		return nil, fmt.Errorf("unknown ledger driver: %s", cfg.Driver)
	}
}
