// Package seed loads the example catalogue: two entity types, the bess and inverter device
// classes with their attribute schemas, seven listings with their attribute values, and three
// certificates.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Ecaloota/open-csip-aus-listing-api/internal/db/repositories"
)

type attribute struct {
	name        string
	typ         string
	description string
}

type deviceClass struct {
	name        string
	description string
	attributes  []attribute
}

type value struct {
	class string
	name  string
	value string
}

type listing struct {
	entityType   string
	manufacturer string
	model        string
	classes      []string
	values       []value
}

type certificate struct {
	listing        int
	expiry         string
	certified      string
	certifyingBody string
	testProfiles   []string
}

var entityTypes = []struct{ name, description string }{
	{"client", "Client-side devices and systems"},
	{"server", "Server-side devices and systems"},
}

var deviceClasses = []deviceClass{
	{
		name:        "bess",
		description: "Battery Energy Storage System",
		attributes: []attribute{
			{"max_power", "number", "Maximum power output in kW"},
			{"capacity", "number", "Energy storage capacity in kWh"},
			{"chemistry", "enum", "Battery chemistry type (LiFePO4, NMC, etc.)"},
			{"round_trip_efficiency", "number", "Round trip efficiency as percentage"},
			{"cycle_life", "number", "Expected number of charge/discharge cycles"},
		},
	},
	{
		name:        "inverter",
		description: "Power inverter for DC to AC conversion",
		attributes: []attribute{
			{"max_power", "number", "Maximum power output in kW"},
			{"efficiency", "number", "Power conversion efficiency as percentage"},
			{"input_voltage_range", "string", "DC input voltage range (e.g., '200-800V')"},
			{"output_voltage", "string", "AC output voltage (e.g., '240V', '480V')"},
			{"topology", "enum", "Inverter topology (string, central, micro, power optimizer)"},
			{"grid_tie", "boolean", "Whether the inverter can connect to the grid"},
		},
	},
}

func bess(maxPower, capacity, chemistry, efficiency, cycles string) []value {
	return []value{
		{"bess", "max_power", maxPower},
		{"bess", "capacity", capacity},
		{"bess", "chemistry", chemistry},
		{"bess", "round_trip_efficiency", efficiency},
		{"bess", "cycle_life", cycles},
	}
}

func inverter(maxPower, efficiency, input, output, topology string) []value {
	return []value{
		{"inverter", "max_power", maxPower},
		{"inverter", "efficiency", efficiency},
		{"inverter", "input_voltage_range", input},
		{"inverter", "output_voltage", output},
		{"inverter", "topology", topology},
		{"inverter", "grid_tie", "true"},
	}
}

var listings = []listing{
	{"client", "Tesla", "Powerwall 2", []string{"bess"}, bess("5.0", "13.5", "NMC", "90", "5000")},
	{"server", "LG Chem", "RESU 10H", []string{"bess"}, bess("5.0", "9.8", "NMC", "95", "6000")},
	{"client", "Sonnen", "ecoLinx", []string{"bess"}, bess("12.0", "20.0", "LiFePO4", "93", "10000")},
	{"client", "SolarEdge", "SE7600H-US", []string{"inverter"}, inverter("7.6", "97.6", "200-1000V", "240V", "power optimizer")},
	{"server", "Enphase", "IQ7PLUS-72-2-US", []string{"inverter"}, inverter("0.295", "97.0", "16-48V", "240V", "micro")},
	{"client", "Fronius", "Primo 8.2-1", []string{"inverter"}, inverter("8.2", "98.0", "150-1000V", "240V", "string")},
	{
		"client", "Enphase", "IQ Battery 5P", []string{"bess", "inverter"},
		append(bess("5.0", "5.0", "LiFePO4", "89", "6000"), inverter("5.0", "96.0", "200-480V", "240V", "micro")...),
	},
}

var certificates = []certificate{
	{0, "2025-12-31", "2023-01-15", "UL", []string{"UL1973", "UL9540", "IEEE1547"}},
	{3, "2026-06-30", "2023-03-20", "UL", []string{"UL1741", "IEEE1547", "FCC Part 15"}},
	{1, "2025-09-15", "2022-12-10", "IEC", []string{"IEC62619", "IEC61000"}},
}

// Summary counts the rows written by Run.
type Summary struct {
	AccessKeys            int
	EntityTypes           int
	DeviceClasses         int
	DeviceClassAttributes int
	Listings              int
	Links                 int
	AttributeValues       int
	Certificates          int
}

// Run writes the example catalogue through the catalog's repositories in one transaction.
// When bootstrapKeyHash is not empty it is stored as an access key as well. Running it against
// a seeded database fails on the first unique constraint and writes nothing.
func Run(ctx context.Context, catalog *repositories.Catalog, bootstrapKeyHash string) (Summary, error) {
	var sum Summary
	err := catalog.Store.InTx(ctx, func(ctx context.Context) error {
		sum = Summary{}
		return seed(ctx, catalog, bootstrapKeyHash, &sum)
	})
	if err != nil {
		return Summary{}, fmt.Errorf("failed to seed catalogue: %w", err)
	}

	slog.InfoContext(ctx, "catalogue seeded",
		"access_keys", sum.AccessKeys,
		"entity_types", sum.EntityTypes,
		"device_classes", sum.DeviceClasses,
		"device_class_attributes", sum.DeviceClassAttributes,
		"listings", sum.Listings,
		"listing_device_classes", sum.Links,
		"listing_device_class_attributes", sum.AttributeValues,
		"certificates", sum.Certificates,
	)
	return sum, nil
}

func seed(ctx context.Context, catalog *repositories.Catalog, bootstrapKeyHash string, sum *Summary) error {
	if bootstrapKeyHash != "" {
		if _, err := catalog.AccessKeys.Create(ctx, map[string]any{
			"value":       bootstrapKeyHash,
			"description": "bootstrap key",
		}); err != nil {
			return err
		}
		sum.AccessKeys++
	}

	entityTypeIDs := make(map[string]int64, len(entityTypes))
	for _, et := range entityTypes {
		row, err := catalog.EntityTypes.Create(ctx, map[string]any{
			"name":        et.name,
			"description": et.description,
		})
		if err != nil {
			return err
		}
		entityTypeIDs[et.name] = row.ID
		sum.EntityTypes++
	}

	classIDs := make(map[string]int64, len(deviceClasses))
	for _, dc := range deviceClasses {
		row, err := catalog.DeviceClasses.Create(ctx, map[string]any{
			"name":        dc.name,
			"description": dc.description,
		})
		if err != nil {
			return err
		}
		classIDs[dc.name] = row.ID
		sum.DeviceClasses++

		for _, attr := range dc.attributes {
			if _, err := catalog.DeviceClassAttributes.Create(ctx, map[string]any{
				"device_class_id": row.ID,
				"attribute_name":  attr.name,
				"attribute_type":  attr.typ,
				"description":     attr.description,
			}); err != nil {
				return err
			}
			sum.DeviceClassAttributes++
		}
	}

	listingIDs := make([]int64, len(listings))
	for i, l := range listings {
		row, err := catalog.Listings.Create(ctx, map[string]any{
			"entity_type_id": entityTypeIDs[l.entityType],
			"manufacturer":   l.manufacturer,
			"model":          l.model,
			"status":         "active",
		})
		if err != nil {
			return err
		}
		listingIDs[i] = row.ID
		sum.Listings++

		for j, class := range l.classes {
			if _, err := catalog.ListingDeviceClasses.Create(ctx, map[string]any{
				"listing_id":      row.ID,
				"device_class_id": classIDs[class],
				"is_primary":      j == 0,
			}); err != nil {
				return err
			}
			sum.Links++
		}

		for _, v := range l.values {
			if _, err := catalog.ListingDeviceClassAttributes.Create(ctx, map[string]any{
				"listing_id":      row.ID,
				"device_class_id": classIDs[v.class],
				"attribute_name":  v.name,
				"attribute_value": v.value,
			}); err != nil {
				return err
			}
			sum.AttributeValues++
		}
	}

	for _, c := range certificates {
		if _, err := catalog.Certificates.Create(ctx, map[string]any{
			"listing_id":         listingIDs[c.listing],
			"expiry":             c.expiry,
			"certification_date": c.certified,
			"certifying_body":    c.certifyingBody,
			"test_profiles":      c.testProfiles,
		}); err != nil {
			return err
		}
		sum.Certificates++
	}
	return nil
}
