package extract_test

import (
	"context"
	"testing"

	"github.com/acrewise/acrewise/internal/classify"
	"github.com/acrewise/acrewise/internal/extract"
)

const leaseText = `SOLAR LEASE AGREEMENT

This Lease Agreement is entered into between the parties identified below.
Lessor: Johnson Family Trust (the "Lessor")
Lessee: Meridian Solar LLC (the "Lessee")

The leased premises consist of approximately 320.5 acres situated in the
County of Guadalupe, Texas.
Parcel No: GU-4417-A
Parcel No: GU-4417-B

Annual Rent of $48,000 payable in advance, subject to an escalation rate of
2.5% per year, plus a signing bonus of $15,000 due upon execution. The lease
shall have an initial term of 30 years.`

func TestLeaseExtraction(t *testing.T) {
	registry := extract.NewRegistry()

	fields, err := registry.Extract(context.Background(), classify.CategoryLease, leaseText)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if got := fields["lessor"]; got != "Johnson Family Trust" {
		t.Errorf("lessor = %v, want Johnson Family Trust", got)
	}
	if got := fields["lessee"]; got != "Meridian Solar LLC" {
		t.Errorf("lessee = %v, want Meridian Solar LLC", got)
	}
	if got := fields["totalAcres"]; got != 320.5 {
		t.Errorf("totalAcres = %v, want 320.5", got)
	}
	if got := fields["county"]; got != "Guadalupe" {
		t.Errorf("county = %v, want Guadalupe", got)
	}
	if got := fields["termYears"]; got != float64(30) {
		t.Errorf("termYears = %v, want 30", got)
	}

	rent, ok := fields["rent"].(extract.FieldMap)
	if !ok {
		t.Fatalf("rent = %T, want FieldMap", fields["rent"])
	}
	if got := rent["annualAmount"]; got != float64(48000) {
		t.Errorf("rent.annualAmount = %v, want 48000", got)
	}
	if got := rent["signingBonus"]; got != float64(15000) {
		t.Errorf("rent.signingBonus = %v, want 15000", got)
	}

	parcels, ok := fields["parcelNumbers"].([]string)
	if !ok || len(parcels) != 2 {
		t.Fatalf("parcelNumbers = %v, want two entries", fields["parcelNumbers"])
	}
}

func TestLeaseExtractionCarriesFullSchema(t *testing.T) {
	registry := extract.NewRegistry()

	fields, err := registry.Extract(context.Background(), classify.CategoryLease, "Lease Agreement covering 500 acres")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if got := fields["totalAcres"]; got != float64(500) {
		t.Errorf("totalAcres = %v, want 500", got)
	}

	for _, key := range []string{"lessor", "lessee", "termYears", "county", "parcelNumbers"} {
		v, ok := fields[key]
		if !ok {
			t.Errorf("field %q missing, want explicit nil", key)
			continue
		}
		if v != nil {
			t.Errorf("field %q = %v, want nil", key, v)
		}
	}

	rent, ok := fields["rent"].(extract.FieldMap)
	if !ok {
		t.Fatalf("rent = %T, want FieldMap", fields["rent"])
	}
	for _, key := range []string{"annualAmount", "signingBonus", "escalatorPercent"} {
		v, ok := rent[key]
		if !ok {
			t.Errorf("rent.%s missing, want explicit nil", key)
			continue
		}
		if v != nil {
			t.Errorf("rent.%s = %v, want nil", key, v)
		}
	}
}

func TestPPAExtraction(t *testing.T) {
	registry := extract.NewRegistry()

	text := `POWER PURCHASE AGREEMENT
Seller: Meridian Solar LLC (the "Seller")
Buyer: Lone Star Utility Cooperative (the "Buyer")
The facility shall have a nameplate capacity of 150 MW.
Energy shall be sold at $32.50 per MWh for a term of 20 years.
Commercial Operation Date: June 1, 2028`

	fields, err := registry.Extract(context.Background(), classify.CategoryPPA, text)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if got := fields["seller"]; got != "Meridian Solar LLC" {
		t.Errorf("seller = %v, want Meridian Solar LLC", got)
	}
	if got := fields["buyer"]; got != "Lone Star Utility Cooperative" {
		t.Errorf("buyer = %v, want Lone Star Utility Cooperative", got)
	}
	if got := fields["capacityMW"]; got != float64(150) {
		t.Errorf("capacityMW = %v, want 150", got)
	}
	if got := fields["pricePerMWh"]; got != 32.5 {
		t.Errorf("pricePerMWh = %v, want 32.5", got)
	}
}

func TestGenericFallback(t *testing.T) {
	registry := extract.NewRegistry()

	text := `MEMORANDUM OF UNDERSTANDING
This memorandum, dated March 14, 2026, is made between Acme Development Corp and
Riverside Holdings LLC, concerning consideration of $5,000 and $12,500.`

	fields, err := registry.Extract(context.Background(), classify.CategoryUnknown, text)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	parties, ok := fields["parties"].([]string)
	if !ok || len(parties) != 2 {
		t.Fatalf("parties = %v, want two entries", fields["parties"])
	}
	if parties[0] != "Acme Development Corp" {
		t.Errorf("parties[0] = %q, want Acme Development Corp", parties[0])
	}

	amounts, ok := fields["amounts"].([]float64)
	if !ok || len(amounts) != 2 {
		t.Fatalf("amounts = %v, want two entries", fields["amounts"])
	}
	if amounts[1] != 12500 {
		t.Errorf("amounts[1] = %v, want 12500", amounts[1])
	}
}

func TestExtractCancelledContext(t *testing.T) {
	registry := extract.NewRegistry()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := registry.Extract(ctx, classify.CategoryLease, leaseText); err == nil {
		t.Error("Extract() with cancelled context should fail")
	}
}

func TestScore(t *testing.T) {
	critical := []string{"lessor", "lessee", "totalAcres", "rent"}

	tests := []struct {
		name string
		data extract.FieldMap
		want float64
	}{
		{
			name: "all critical fields present",
			data: extract.FieldMap{
				"lessor":     "Johnson Family Trust",
				"lessee":     "Meridian Solar LLC",
				"totalAcres": 320.5,
				"rent":       extract.FieldMap{"annualAmount": 48000.0},
			},
			want: 1,
		},
		{
			name: "half present",
			data: extract.FieldMap{
				"lessor": "Johnson Family Trust",
				"lessee": "Meridian Solar LLC",
			},
			want: 0.5,
		},
		{
			name: "empty nested map does not count",
			data: extract.FieldMap{
				"lessor": "Johnson Family Trust",
				"rent":   extract.FieldMap{},
			},
			want: 0.25,
		},
		{
			name: "nil fields do not count",
			data: extract.FieldMap{
				"lessor":     nil,
				"lessee":     "Meridian Solar LLC",
				"totalAcres": nil,
				"rent":       extract.FieldMap{"annualAmount": nil, "signingBonus": nil},
			},
			want: 0.25,
		},
		{
			name: "empty string does not count",
			data: extract.FieldMap{
				"lessor": "",
				"lessee": "Meridian Solar LLC",
			},
			want: 0.25,
		},
		{
			name: "no fields",
			data: extract.FieldMap{},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extract.Score(tt.data, critical); got != tt.want {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScoreNoCriticalFields(t *testing.T) {
	if got := extract.Score(extract.FieldMap{}, nil); got != 1 {
		t.Errorf("Score() with no critical fields = %v, want 1", got)
	}
}

func TestRegistryCriticalFields(t *testing.T) {
	registry := extract.NewRegistry()

	lease := registry.CriticalFields(classify.CategoryLease)
	if len(lease) != 4 {
		t.Errorf("lease critical fields = %v, want 4 entries", lease)
	}

	fallback := registry.CriticalFields(classify.CategorySurvey)
	if len(fallback) == 0 {
		t.Error("fallback critical fields should not be empty")
	}
}
