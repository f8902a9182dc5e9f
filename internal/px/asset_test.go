package px_test

import (
	"encoding/json"
	"testing"
	"time"

	"px-go/internal/px"
)

func TestAsset_Validate(t *testing.T) {
	t.Run("accepts complete asset", func(t *testing.T) {
		a := &px.Asset{UUID: "ABC-123", Filename: "photo.jpg"}
		if err := a.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})

	t.Run("rejects missing uuid", func(t *testing.T) {
		a := &px.Asset{Filename: "photo.jpg"}
		if err := a.Validate(); err == nil {
			t.Error("Validate() expected error for missing uuid")
		}
	})

	t.Run("rejects missing filename", func(t *testing.T) {
		a := &px.Asset{UUID: "ABC-123"}
		if err := a.Validate(); err == nil {
			t.Error("Validate() expected error for missing filename")
		}
	})
}

func TestAsset_JSON(t *testing.T) {
	t.Run("includes location and modified date when set", func(t *testing.T) {
		a := &px.Asset{
			UUID:         "ABC-123",
			Filename:     "photo.jpg",
			DateCreated:  time.Date(2023, 6, 10, 14, 22, 5, 0, time.UTC),
			DateModified: time.Date(2023, 7, 1, 9, 0, 0, 0, time.UTC),
			Location:     &px.Location{Latitude: 41.89, Longitude: 12.49},
		}

		var doc map[string]any
		if err := json.Unmarshal([]byte(a.JSON()), &doc); err != nil {
			t.Fatalf("JSON() produced invalid JSON: %v", err)
		}
		if doc["uuid"] != "ABC-123" {
			t.Errorf("uuid = %v, want ABC-123", doc["uuid"])
		}
		if doc["date_modified"] != "2023-07-01T09:00:00Z" {
			t.Errorf("date_modified = %v, want 2023-07-01T09:00:00Z", doc["date_modified"])
		}
		if doc["latitude"] != 41.89 {
			t.Errorf("latitude = %v, want 41.89", doc["latitude"])
		}
	})

	t.Run("omits unset modified date and location", func(t *testing.T) {
		a := &px.Asset{UUID: "ABC-123", Filename: "photo.jpg"}

		var doc map[string]any
		if err := json.Unmarshal([]byte(a.JSON()), &doc); err != nil {
			t.Fatalf("JSON() produced invalid JSON: %v", err)
		}
		if _, ok := doc["date_modified"]; ok {
			t.Error("date_modified present, want omitted")
		}
		if _, ok := doc["latitude"]; ok {
			t.Error("latitude present, want omitted")
		}
	})
}

func TestAssetsFromJSON(t *testing.T) {
	t.Run("decodes a valid manifest", func(t *testing.T) {
		manifest := `[
			{"uuid": "A-1", "filename": "one.jpg", "date_created": "2023-06-10T14:22:05Z"},
			{"uuid": "A-2", "filename": "two.heic", "date_created": "2023-06-11T08:00:00Z", "keywords": ["travel"]}
		]`

		assets, err := px.AssetsFromJSON([]byte(manifest))
		if err != nil {
			t.Fatalf("AssetsFromJSON() error = %v", err)
		}
		if len(assets) != 2 {
			t.Fatalf("len(assets) = %d, want 2", len(assets))
		}
		if assets[0].UUID != "A-1" {
			t.Errorf("UUID = %q, want A-1", assets[0].UUID)
		}
		if len(assets[1].Keywords) != 1 || assets[1].Keywords[0] != "travel" {
			t.Errorf("Keywords = %v, want [travel]", assets[1].Keywords)
		}
	})

	t.Run("rejects asset without uuid", func(t *testing.T) {
		manifest := `[{"filename": "one.jpg", "date_created": "2023-06-10T14:22:05Z"}]`
		if _, err := px.AssetsFromJSON([]byte(manifest)); err == nil {
			t.Error("AssetsFromJSON() expected error for missing uuid")
		}
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		if _, err := px.AssetsFromJSON([]byte("{not json")); err == nil {
			t.Error("AssetsFromJSON() expected error for malformed JSON")
		}
	})
}
