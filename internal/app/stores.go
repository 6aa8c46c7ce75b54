package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-kpi/internal/kpi"
	kpidb "github.com/odyssey-erp/odyssey-kpi/internal/kpi/db"
	kpidynamo "github.com/odyssey-erp/odyssey-kpi/internal/kpi/dynamo"
	"github.com/odyssey-erp/odyssey-kpi/internal/platform/db"
	"github.com/odyssey-erp/odyssey-kpi/jobs"
)

// Records bundles the configured record backend.
type Records struct {
	Store   kpi.RecordStore
	Tenants jobs.TenantLister
	pool    *pgxpool.Pool
}

// Close releases backend connections.
func (r *Records) Close() {
	if r != nil && r.pool != nil {
		r.pool.Close()
	}
}

// OpenRecords connects the backend selected by RECORD_BACKEND.
func OpenRecords(ctx context.Context, cfg *Config, logger *slog.Logger) (*Records, error) {
	switch cfg.RecordBackend {
	case BackendDynamoDB:
		client, err := kpidynamo.NewClient(ctx, kpidynamo.ClientConfig{
			Region:    cfg.AWSRegion,
			Endpoint:  cfg.DynamoDBEndpoint,
			AccessKey: cfg.AWSAccessKeyID,
			SecretKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("app: dynamodb client: %w", err)
		}
		logger.Info("record backend ready", slog.String("backend", BackendDynamoDB),
			slog.String("quotes_table", cfg.QuotesTable), slog.String("products_table", cfg.ProductsTable))
		return &Records{
			Store:   kpidynamo.NewStore(client, kpidynamo.Tables{Quotes: cfg.QuotesTable, Products: cfg.ProductsTable}),
			Tenants: staticTenants(cfg.DigestTenants),
		}, nil
	case BackendPostgres:
		pool, err := db.New(ctx, cfg.PGDSN, db.PoolConfig{MaxConns: cfg.PGMaxConns})
		if err != nil {
			return nil, err
		}
		logger.Info("record backend ready", slog.String("backend", BackendPostgres))
		var tenants jobs.TenantLister = jobs.QuoteOwnerTenants{Queries: kpidb.New(pool)}
		if len(cfg.DigestTenants) > 0 {
			tenants = staticTenants(cfg.DigestTenants)
		}
		return &Records{
			Store:   kpi.NewTxRepositoryStore(readTxRunner(pool)),
			Tenants: tenants,
			pool:    pool,
		}, nil
	default:
		return nil, fmt.Errorf("app: unsupported record backend %q", cfg.RecordBackend)
	}
}

// readTxRunner binds the generated queries to a read-only snapshot.
func readTxRunner(pool *pgxpool.Pool) kpi.TxRunner {
	return func(ctx context.Context, fn func(kpi.Repository) error) error {
		return db.WithReadTx(ctx, pool, func(tx pgx.Tx) error {
			return fn(kpidb.New(tx))
		})
	}
}

func staticTenants(raw []string) jobs.StaticTenants {
	out := make(jobs.StaticTenants, 0, len(raw))
	for _, id := range raw {
		if parsed, err := uuid.Parse(strings.TrimSpace(id)); err == nil {
			out = append(out, parsed)
		}
	}
	return out
}
