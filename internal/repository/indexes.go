package repository

import (
	"context"
	"fmt"

	"github.com/go-kivik/kivik/v4"
)

type mangoIndex struct {
	name   string
	fields []string
}

// List queries filter on doc_type or username. Without these indexes
// CouchDB falls back to a full scan and warns on each request.
var mangoIndexes = []mangoIndex{
	{name: "secret-owner", fields: []string{"doc_type", "owner_id", "scope"}},
	{name: "secret-group", fields: []string{"doc_type", "group_token"}},
	{name: "user-username", fields: []string{"username"}},
	{name: "team-code", fields: []string{"doc_type", "code"}},
}

// EnsureIndexes creates the Mango indexes the repositories query
// through. CouchDB treats an existing identical index as a no-op.
func EnsureIndexes(ctx context.Context, client *kivik.Client, dbName string) error {
	db := client.DB(dbName)

	for _, idx := range mangoIndexes {
		index := map[string]interface{}{"fields": idx.fields}
		if err := db.CreateIndex(ctx, "passy-indexes", idx.name, index); err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}
	return nil
}
