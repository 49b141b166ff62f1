package database

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/zatekoja/servicemarket/internal/infrastructure/clients/postgres"
)

//go:embed schema.sql
var schema string

// Migrate applies the idempotent schema
func Migrate(ctx context.Context, client *postgres.Client) error {
	if _, err := client.DB().ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
