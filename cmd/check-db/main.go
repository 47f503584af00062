// Package main is a diagnostic tool for database connectivity. It connects with the server's
// configuration, prints the schema version and a row count per table, and exits non-zero on
// any failure so it can gate a deployment step.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/Ecaloota/open-csip-aus-listing-api/internal/config"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/db"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/db/repositories"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	database, err := db.Connect(ctx, cfg.Database.GetDSN(), db.PoolConfig{MaxOpen: 2, MaxIdle: 1})
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer database.Close()

	version, dirty, err := db.GetMigrationVersion(database.DB)
	if err != nil {
		log.Fatalf("Failed to read migration version: %v", err)
	}
	fmt.Printf("Schema version: %d (dirty: %v)\n\n", version, dirty)

	if err := report(ctx, os.Stdout, repositories.NewCatalog(repositories.NewStore(database))); err != nil {
		log.Fatalf("Query failed: %v", err)
	}
}

// report prints one row count per entity kind, in dependency order.
func report(ctx context.Context, w io.Writer, catalog *repositories.Catalog) error {
	counts := []struct {
		name  string
		count func() (int, error)
	}{
		{"access_keys", func() (int, error) { return rowCount(ctx, catalog.AccessKeys) }},
		{"entity_types", func() (int, error) { return rowCount(ctx, catalog.EntityTypes) }},
		{"device_classes", func() (int, error) { return rowCount(ctx, catalog.DeviceClasses) }},
		{"device_class_attributes", func() (int, error) { return rowCount(ctx, catalog.DeviceClassAttributes) }},
		{"listings", func() (int, error) { return rowCount(ctx, catalog.Listings) }},
		{"listing_device_classes", func() (int, error) { return rowCount(ctx, catalog.ListingDeviceClasses) }},
		{"listing_device_class_attributes", func() (int, error) { return rowCount(ctx, catalog.ListingDeviceClassAttributes) }},
		{"certificates", func() (int, error) { return rowCount(ctx, catalog.Certificates) }},
	}

	empty := true
	for _, c := range counts {
		n, err := c.count()
		if err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}
		if n > 0 {
			empty = false
		}
		fmt.Fprintf(w, "%-32s %d\n", c.name, n)
	}
	if empty {
		fmt.Fprintln(w, "\nDatabase is empty. Run `server seed` to load the example catalogue.")
	}
	return nil
}

func rowCount[T any](ctx context.Context, repo *repositories.Repository[T]) (int, error) {
	rows, err := repo.List(ctx, nil)
	return len(rows), err
}
