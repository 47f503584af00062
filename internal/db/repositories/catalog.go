package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/huandu/go-sqlbuilder"

	"github.com/Ecaloota/open-csip-aus-listing-api/internal/db/models"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/schema"
)

// Catalog bundles one repository per entity kind plus the listing graph loader.
type Catalog struct {
	Store                        *Store
	AccessKeys                   *Repository[models.AccessKey]
	EntityTypes                  *Repository[models.EntityType]
	DeviceClasses                *Repository[models.DeviceClass]
	DeviceClassAttributes        *Repository[models.DeviceClassAttribute]
	Listings                     *Repository[models.Listing]
	ListingDeviceClasses         *Repository[models.ListingDeviceClass]
	ListingDeviceClassAttributes *Repository[models.ListingDeviceClassAttribute]
	Certificates                 *Repository[models.Certificate]
	ListingGraph                 *ListingGraphLoader
}

// NewCatalog builds every repository over store.
func NewCatalog(store *Store) *Catalog {
	return &Catalog{
		Store:                        store,
		AccessKeys:                   New[models.AccessKey](store, schema.KindAccessKey),
		EntityTypes:                  New[models.EntityType](store, schema.KindEntityType),
		DeviceClasses:                New[models.DeviceClass](store, schema.KindDeviceClass),
		DeviceClassAttributes:        New[models.DeviceClassAttribute](store, schema.KindDeviceClassAttribute),
		Listings:                     New[models.Listing](store, schema.KindListing),
		ListingDeviceClasses:         New[models.ListingDeviceClass](store, schema.KindListingDeviceClass),
		ListingDeviceClassAttributes: New[models.ListingDeviceClassAttribute](store, schema.KindListingDeviceClassAttribute),
		Certificates:                 New[models.Certificate](store, schema.KindCertificate),
		ListingGraph:                 NewListingGraphLoader(store),
	}
}

// KeyHashes returns every stored access key hash. The access gate scans them linearly.
func (c *Catalog) KeyHashes(ctx context.Context) ([]string, error) {
	keys, err := c.AccessKeys.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	hashes := make([]string, len(keys))
	for i, k := range keys {
		hashes[i] = k.Value
	}
	return hashes, nil
}

// EntityTypeID resolves an entity type name to its id. ok is false when no such type exists.
func (c *Catalog) EntityTypeID(ctx context.Context, name string) (id int64, ok bool, err error) {
	types, err := c.EntityTypes.List(ctx, map[string]string{"name": name})
	if err != nil || len(types) == 0 {
		return 0, false, err
	}
	return types[0].ID, true, nil
}

// SetCertificateDocument records the archive key and checksum of a certificate's document and
// returns the key it replaced, if any. found is false when the certificate does not exist.
func (c *Catalog) SetCertificateDocument(ctx context.Context, id int64, key, checksum string) (previous *string, found bool, err error) {
	sel := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sel.Select("document_key").From("certificates").Where(sel.Equal("id", id)).ForUpdate()
	selQuery, selArgs := sel.Build()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("certificates").
		Set(ub.Assign("document_key", key), ub.Assign("document_checksum", checksum)).
		Where(ub.Equal("id", id))
	updQuery, updArgs := ub.Build()

	err = c.Store.run(ctx, false, func(q Querier) error {
		var prev sql.NullString
		err := q.GetContext(ctx, &prev, selQuery, selArgs...)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		if prev.Valid {
			previous = &prev.String
		}
		_, err = q.ExecContext(ctx, updQuery, updArgs...)
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to set document of certificate %d: %w", id, err)
	}
	return previous, found, nil
}
