package repositories

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"

	"github.com/Ecaloota/open-csip-aus-listing-api/internal/db/models"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/filter"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/schema"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/telemetry"
)

// ListingGraphFilters are the listing columns the graph loader accepts filters on. All of them
// are compared with equality.
var ListingGraphFilters = []string{"entity_type_id", "manufacturer", "model", "status"}

// ListingGraphLoader hydrates listings with their entity type, device classes (each with its
// attribute schema), attribute values and certificates. It issues at most five statements
// however many listings and children match: one for the listings, then one batch per child
// collection keyed by the listing (or device class) ids.
type ListingGraphLoader struct {
	store *Store
}

// NewListingGraphLoader builds a loader over store.
func NewListingGraphLoader(store *Store) *ListingGraphLoader {
	return &ListingGraphLoader{store: store}
}

type listingRow struct {
	models.Listing
	EntityTypeName        string  `db:"entity_type_name"`
	EntityTypeDescription *string `db:"entity_type_description"`
}

type deviceClassLinkRow struct {
	models.DeviceClass
	LinkID    int64 `db:"link_id"`
	ListingID int64 `db:"listing_id"`
	IsPrimary bool  `db:"is_primary"`
}

// Load returns the listing graphs matching q, with the same id / list / not-found contract as
// Repository.Get.
func (l *ListingGraphLoader) Load(ctx context.Context, q Query) (Result[models.ListingDetail], error) {
	listingEntity := schema.MustLookup(schema.KindListing)

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(
		"l.id", "l.entity_type_id", "l.manufacturer", "l.model", "l.status", "l.created_at", "l.updated_at",
		"et.name AS entity_type_name", "et.description AS entity_type_description",
	)
	sb.From("listings l")
	sb.Join("entity_types et", "et.id = l.entity_type_id")
	if q.ID != nil {
		sb.Where(sb.Equal("l.id", *q.ID))
	} else {
		conds, err := filter.Conditions(sb, listingEntity, q.Filters,
			filter.Qualify("l"), filter.ExactMatch(ListingGraphFilters...))
		if err != nil {
			return Result[models.ListingDetail]{}, err
		}
		if len(conds) > 0 {
			sb.Where(conds...)
		}
	}
	sb.OrderBy("l.id")
	listingQuery, listingArgs := sb.Build()

	var (
		details    []models.ListingDetail
		statements int
	)
	err := l.store.run(ctx, true, func(tx Querier) error {
		var rows []listingRow
		statements++
		if err := tx.SelectContext(ctx, &rows, listingQuery, listingArgs...); err != nil {
			return fmt.Errorf("failed to load listings: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}

		details = make([]models.ListingDetail, len(rows))
		index := make(map[int64]*models.ListingDetail, len(rows))
		listingIDs := make([]int64, len(rows))
		for i, row := range rows {
			details[i] = models.ListingDetail{
				Listing: row.Listing,
				EntityType: models.EntityType{
					ID:          row.EntityTypeID,
					Name:        row.EntityTypeName,
					Description: row.EntityTypeDescription,
				},
				DeviceClasses: []models.ListingDeviceClassDetail{},
				Attributes:    []models.ListingDeviceClassAttribute{},
				Certificates:  []models.Certificate{},
			}
			index[row.ID] = &details[i]
			listingIDs[i] = row.ID
		}

		var links []deviceClassLinkRow
		statements++
		if err := selectByIDs(ctx, tx, &links,
			[]string{
				"ldc.id AS link_id", "ldc.listing_id", "ldc.is_primary",
				"dc.id", "dc.name", "dc.description", "dc.requires_inverter", "dc.created_at",
			},
			"listing_device_classes ldc JOIN device_classes dc ON dc.id = ldc.device_class_id",
			"ldc.listing_id", "ldc.id", listingIDs); err != nil {
			return fmt.Errorf("failed to load listing device classes: %w", err)
		}

		schemas := map[int64][]models.DeviceClassAttribute{}
		if len(links) > 0 {
			classIDs := uniqueClassIDs(links)
			var attrs []models.DeviceClassAttribute
			statements++
			if err := selectByIDs(ctx, tx, &attrs,
				schema.MustLookup(schema.KindDeviceClassAttribute).Columns(),
				"device_class_attributes", "device_class_id", "id", classIDs); err != nil {
				return fmt.Errorf("failed to load device class attributes: %w", err)
			}
			for _, a := range attrs {
				schemas[a.DeviceClassID] = append(schemas[a.DeviceClassID], a)
			}
		}
		for _, link := range links {
			attrs := schemas[link.DeviceClass.ID]
			if attrs == nil {
				attrs = []models.DeviceClassAttribute{}
			}
			d := index[link.ListingID]
			d.DeviceClasses = append(d.DeviceClasses, models.ListingDeviceClassDetail{
				ListingDeviceClassID: link.LinkID,
				IsPrimary:            link.IsPrimary,
				DeviceClass:          models.DeviceClassDetail{DeviceClass: link.DeviceClass, Attributes: attrs},
			})
		}

		var values []models.ListingDeviceClassAttribute
		statements++
		if err := selectByIDs(ctx, tx, &values,
			schema.MustLookup(schema.KindListingDeviceClassAttribute).Columns(),
			"listing_device_class_attributes", "listing_id", "id", listingIDs); err != nil {
			return fmt.Errorf("failed to load listing attribute values: %w", err)
		}
		for _, v := range values {
			d := index[v.ListingID]
			d.Attributes = append(d.Attributes, v)
		}

		var certs []models.Certificate
		statements++
		if err := selectByIDs(ctx, tx, &certs,
			schema.MustLookup(schema.KindCertificate).Columns(),
			"certificates", "listing_id", "id", listingIDs); err != nil {
			return fmt.Errorf("failed to load certificates: %w", err)
		}
		for _, c := range certs {
			d := index[c.ListingID]
			d.Certificates = append(d.Certificates, c)
		}
		return nil
	})
	telemetry.ListingGraphQueries.Observe(float64(statements))
	if err != nil {
		slog.ErrorContext(ctx, "listing graph load failed", "error", err)
		return Result[models.ListingDetail]{}, err
	}

	if q.ID != nil {
		res := Result[models.ListingDetail]{ByID: true}
		if len(details) > 0 {
			res.Item = &details[0]
		}
		return res, nil
	}
	if details == nil {
		details = []models.ListingDetail{}
	}
	return Result[models.ListingDetail]{Items: details}, nil
}

// selectByIDs runs SELECT cols FROM from WHERE key = ANY($1) ORDER BY order.
func selectByIDs(ctx context.Context, tx Querier, dest any, cols []string, from, key, order string, ids []int64) error {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(cols...).From(from)
	sb.Where(key + " = ANY(" + sb.Var(pq.Array(ids)) + ")")
	sb.OrderBy(order)
	query, args := sb.Build()
	return tx.SelectContext(ctx, dest, query, args...)
}

func uniqueClassIDs(links []deviceClassLinkRow) []int64 {
	seen := make(map[int64]bool, len(links))
	ids := make([]int64, 0, len(links))
	for _, link := range links {
		if !seen[link.DeviceClass.ID] {
			seen[link.DeviceClass.ID] = true
			ids = append(ids, link.DeviceClass.ID)
		}
	}
	return ids
}
