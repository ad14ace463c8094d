package models

import (
	"reflect"
	"testing"
)

func TestMissing_ExactSet(t *testing.T) {
	rec := PropertyRecord{
		Price:       0,
		Bedrooms:    3,
		Bathrooms:   2,
		Description: "",
		Address:     "123 Main St",
	}

	got := rec.Missing(DefaultRequiredFields)
	want := []string{"price", "description"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Missing = %v, want %v", got, want)
	}
}

func TestMissing_AddressComponentsCount(t *testing.T) {
	rec := PropertyRecord{
		AddressLine1: "123 Main St",
		Price:        1,
		Bedrooms:     1,
		Bathrooms:    1,
		Description:  "x",
	}
	if got := rec.Missing(DefaultRequiredFields); len(got) != 0 {
		t.Fatalf("expected no missing fields, got %v", got)
	}
}

func TestMissing_EmptyRecord(t *testing.T) {
	var rec PropertyRecord
	got := rec.Missing(DefaultRequiredFields)
	if !reflect.DeepEqual(got, DefaultRequiredFields) {
		t.Fatalf("expected all required missing, got %v", got)
	}
}

func TestMissing_ConfigurablePolicy(t *testing.T) {
	rec := PropertyRecord{Address: "1 Elm", Price: 1, Bedrooms: 2, Bathrooms: 1}

	loose := []string{"address", "price", "bedrooms", "bathrooms"}
	if got := rec.Missing(loose); len(got) != 0 {
		t.Fatalf("expected no missing under loose policy, got %v", got)
	}
	if got := rec.Missing(DefaultRequiredFields); !reflect.DeepEqual(got, []string{"description"}) {
		t.Fatalf("expected description missing under default policy, got %v", got)
	}
}

func TestErrorResponse_Shape(t *testing.T) {
	resp := ErrorResponse("https://x.test", SourceNavigationError, "timed out", DefaultRequiredFields)
	if resp.Success || resp.Partial {
		t.Fatalf("hard errors must not claim success or partial")
	}
	if resp.Source != SourceNavigationError {
		t.Fatalf("unexpected source %q", resp.Source)
	}
	if resp.Error != "timed out" {
		t.Fatalf("unexpected error %q", resp.Error)
	}
	if len(resp.Missing) != len(DefaultRequiredFields) {
		t.Fatalf("expected all required fields listed, got %v", resp.Missing)
	}
}
