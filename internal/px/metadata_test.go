package px_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"px-go/internal/px"
	"px-go/internal/testutil"
	"px-go/internal/tmpl"
)

func newTestSynthesizer() *px.Synthesizer {
	return px.NewSynthesizer(tmpl.NewRenderer(), px.NewNopLogger())
}

func metadataAsset() *px.Asset {
	return &px.Asset{
		UUID:        "A-1",
		Filename:    "photo.jpg",
		Title:       "Sunset",
		Description: "Evening at the beach",
		Keywords:    []string{"k2", "k1"},
		Persons:     []string{"Bob", px.UnknownPerson, "Alice"},
		Albums:      []string{"Vacation"},
		DateCreated: time.Date(2023, 6, 10, 14, 22, 5, 0, time.UTC),
	}
}

// sidecarDoc renders a JSON sidecar and returns its single tag document.
func sidecarDoc(t *testing.T, s *px.Synthesizer, asset *px.Asset, opts px.Options) map[string]any {
	t.Helper()

	content, err := s.JSONSidecar(asset, opts)
	if err != nil {
		t.Fatalf("JSONSidecar() error = %v", err)
	}
	var docs []map[string]any
	if err := json.Unmarshal([]byte(content), &docs); err != nil {
		t.Fatalf("sidecar is invalid JSON: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("sidecar has %d documents, want 1", len(docs))
	}
	return docs[0]
}

func stringsOf(t *testing.T, v any) []string {
	t.Helper()

	list, ok := v.([]any)
	if !ok {
		t.Fatalf("value = %T, want list", v)
	}
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = e.(string)
	}
	return out
}

func TestSynthesizer_JSONSidecar(t *testing.T) {
	t.Run("renders sorted keywords and filtered persons", func(t *testing.T) {
		s := newTestSynthesizer()
		doc := sidecarDoc(t, s, metadataAsset(), px.Options{})

		keywords := stringsOf(t, doc["IPTC:Keywords"])
		if want := []string{"k1", "k2"}; !equalStrings(keywords, want) {
			t.Errorf("IPTC:Keywords = %v, want %v", keywords, want)
		}

		persons := stringsOf(t, doc["XMP:PersonInImage"])
		if want := []string{"Alice", "Bob"}; !equalStrings(persons, want) {
			t.Errorf("XMP:PersonInImage = %v, want %v", persons, want)
		}

		subject := stringsOf(t, doc["XMP:Subject"])
		if want := []string{"Alice", "Bob", "k1", "k2"}; !equalStrings(subject, want) {
			t.Errorf("XMP:Subject = %v, want %v", subject, want)
		}

		if doc["XMP:Title"] != "Sunset" {
			t.Errorf("XMP:Title = %v, want Sunset", doc["XMP:Title"])
		}
		if doc["EXIF:ImageDescription"] != "Evening at the beach" {
			t.Errorf("EXIF:ImageDescription = %v", doc["EXIF:ImageDescription"])
		}
		if doc["EXIF:DateTimeOriginal"] != "2023:06:10 14:22:05" {
			t.Errorf("EXIF:DateTimeOriginal = %v, want 2023:06:10 14:22:05", doc["EXIF:DateTimeOriginal"])
		}
	})

	t.Run("merges persons and albums into keywords when asked", func(t *testing.T) {
		s := newTestSynthesizer()
		doc := sidecarDoc(t, s, metadataAsset(), px.Options{
			UsePersonsAsKeywords: true,
			UseAlbumsAsKeywords:  true,
		})

		keywords := stringsOf(t, doc["IPTC:Keywords"])
		if want := []string{"Alice", "Bob", "Vacation", "k1", "k2"}; !equalStrings(keywords, want) {
			t.Errorf("IPTC:Keywords = %v, want %v", keywords, want)
		}

		// Merged keywords must not leak into Subject.
		subject := stringsOf(t, doc["XMP:Subject"])
		if want := []string{"Alice", "Bob", "k1", "k2"}; !equalStrings(subject, want) {
			t.Errorf("XMP:Subject = %v, want %v", subject, want)
		}
	})

	t.Run("renders keyword templates and drops empty tokens", func(t *testing.T) {
		s := newTestSynthesizer()
		asset := metadataAsset()
		asset.Title = "" // {title} renders to nothing and must be dropped

		doc := sidecarDoc(t, s, asset, px.Options{
			KeywordTemplates: []string{"{created.year}/{album}", "{title}"},
		})

		keywords := stringsOf(t, doc["IPTC:Keywords"])
		if want := []string{"2023/Vacation", "k1", "k2"}; !equalStrings(keywords, want) {
			t.Errorf("IPTC:Keywords = %v, want %v", keywords, want)
		}
	})

	t.Run("keeps keywords beyond the IPTC length limit", func(t *testing.T) {
		s := newTestSynthesizer()
		asset := metadataAsset()
		asset.Title = strings.Repeat("long title ", 8) // 88 chars, over the 64 limit

		doc := sidecarDoc(t, s, asset, px.Options{
			KeywordTemplates: []string{"{title}"},
		})

		keywords := stringsOf(t, doc["IPTC:Keywords"])
		found := false
		for _, kw := range keywords {
			if kw == asset.Title {
				found = true
			}
		}
		if !found {
			t.Errorf("IPTC:Keywords = %v, want the over-length keyword included", keywords)
		}
	})

	t.Run("renders GPS coordinates in DMS form", func(t *testing.T) {
		s := newTestSynthesizer()
		asset := metadataAsset()
		asset.Location = &px.Location{Latitude: 41.89, Longitude: -12.49}

		doc := sidecarDoc(t, s, asset, px.Options{})
		if doc["EXIF:GPSLatitude"] != `41 deg 53' 24.00" N` {
			t.Errorf("EXIF:GPSLatitude = %v", doc["EXIF:GPSLatitude"])
		}
		if doc["EXIF:GPSLongitude"] != `12 deg 29' 24.00" W` {
			t.Errorf("EXIF:GPSLongitude = %v", doc["EXIF:GPSLongitude"])
		}
		if doc["EXIF:GPSLatitudeRef"] != "North" {
			t.Errorf("EXIF:GPSLatitudeRef = %v, want North", doc["EXIF:GPSLatitudeRef"])
		}
		if doc["EXIF:GPSLongitudeRef"] != "West" {
			t.Errorf("EXIF:GPSLongitudeRef = %v, want West", doc["EXIF:GPSLongitudeRef"])
		}
	})

	t.Run("omits empty fields", func(t *testing.T) {
		s := newTestSynthesizer()
		asset := &px.Asset{
			UUID:        "A-2",
			Filename:    "bare.jpg",
			DateCreated: time.Date(2023, 6, 10, 14, 22, 5, 0, time.UTC),
		}

		doc := sidecarDoc(t, s, asset, px.Options{})
		for _, tag := range []string{"XMP:Title", "EXIF:ImageDescription", "IPTC:Keywords", "XMP:PersonInImage", "XMP:Subject", "EXIF:ModifyDate"} {
			if _, ok := doc[tag]; ok {
				t.Errorf("%s present, want omitted", tag)
			}
		}
	})
}

func TestSidecarsEqual(t *testing.T) {
	t.Run("equal regardless of key order", func(t *testing.T) {
		a := `[{"XMP:Title":"Sunset","IPTC:Keywords":["k1","k2"]}]`
		b := `[{"IPTC:Keywords":["k1","k2"],"XMP:Title":"Sunset"}]`
		if !px.SidecarsEqual(a, b) {
			t.Error("SidecarsEqual() = false for reordered keys")
		}
	})

	t.Run("unequal on differing values", func(t *testing.T) {
		a := `[{"XMP:Title":"Sunset"}]`
		b := `[{"XMP:Title":"Sunrise"}]`
		if px.SidecarsEqual(a, b) {
			t.Error("SidecarsEqual() = true for differing values")
		}
	})

	t.Run("unequal on malformed input", func(t *testing.T) {
		if px.SidecarsEqual("{not json", "{not json") {
			t.Error("SidecarsEqual() = true for malformed input")
		}
	})
}

func TestSynthesizer_XMPSidecar(t *testing.T) {
	t.Run("renders escaped fields", func(t *testing.T) {
		s := newTestSynthesizer()
		asset := metadataAsset()
		asset.Title = "Sand & Sea"

		content, err := s.XMPSidecar(asset, px.Options{})
		if err != nil {
			t.Fatalf("XMPSidecar() error = %v", err)
		}

		if !strings.Contains(content, "Sand &amp; Sea") {
			t.Error("title not HTML-escaped")
		}
		if !strings.Contains(content, "<Iptc4xmpExt:PersonInImage>") {
			t.Error("person block missing")
		}
		if strings.Contains(content, px.UnknownPerson) {
			t.Error("unknown-person sentinel leaked into sidecar")
		}
		if !strings.Contains(content, "<photoshop:DateCreated>2023-06-10T14:22:05+00:00</photoshop:DateCreated>") {
			t.Error("date created missing or misformatted")
		}
		for _, line := range strings.Split(content, "\n") {
			if strings.TrimSpace(line) == "" {
				t.Error("sidecar contains blank lines")
				break
			}
		}
	})

	t.Run("omits blocks for empty fields", func(t *testing.T) {
		s := newTestSynthesizer()
		asset := &px.Asset{
			UUID:        "A-2",
			Filename:    "bare.jpg",
			DateCreated: time.Date(2023, 6, 10, 14, 22, 5, 0, time.UTC),
		}

		content, err := s.XMPSidecar(asset, px.Options{})
		if err != nil {
			t.Fatalf("XMPSidecar() error = %v", err)
		}
		if strings.Contains(content, "<dc:title>") {
			t.Error("title block present, want omitted")
		}
		if strings.Contains(content, "<digiKam:TagsList>") {
			t.Error("keywords block present, want omitted")
		}
	})
}

func TestSynthesizer_WriteExif(t *testing.T) {
	t.Run("sets first value and appends the rest", func(t *testing.T) {
		s := newTestSynthesizer()
		factory := testutil.NewRecordingExifFactory()
		w, err := factory.Writer("/tmp/photo.jpg")
		if err != nil {
			t.Fatalf("Writer() error = %v", err)
		}

		if err := s.WriteExif(w, metadataAsset(), px.Options{}); err != nil {
			t.Fatalf("WriteExif() error = %v", err)
		}

		var keywordWrites []testutil.TagWrite
		for _, write := range factory.Writes("/tmp/photo.jpg") {
			if write.Tag == "IPTC:Keywords" {
				keywordWrites = append(keywordWrites, write)
			}
		}
		if len(keywordWrites) != 2 {
			t.Fatalf("IPTC:Keywords writes = %d, want 2 (set + append)", len(keywordWrites))
		}
		if !equalStrings(keywordWrites[0].Values, []string{"k1"}) {
			t.Errorf("first write values = %v, want [k1]", keywordWrites[0].Values)
		}
		if !equalStrings(keywordWrites[1].Values, []string{"k2"}) {
			t.Errorf("second write values = %v, want [k2]", keywordWrites[1].Values)
		}
	})
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
