package px

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"reflect"
	"sort"
	"strings"
	"text/template"
)

// maxIPTCKeywordLen is the IPTC limit on keyword length. Longer keywords are
// warned about but still written.
const maxIPTCKeywordLen = 64

// noneSentinel marks template tokens that rendered to no value; any rendered
// keyword containing it is dropped.
const noneSentinel = "_PXNone42$_"

// createdByTag identifies this tool in the JSON sidecar.
const createdByTag = "px, Photos library exporter"

// Synthesizer builds one canonical metadata document per asset and renders it
// as a JSON sidecar, an XMP sidecar, or direct EXIF embedding. All three
// renderings share the same field set.
type Synthesizer struct {
	renderer TemplateRenderer
	logger   Logger
}

func NewSynthesizer(renderer TemplateRenderer, logger Logger) *Synthesizer {
	return &Synthesizer{renderer: renderer, logger: logger}
}

// personList returns the asset's persons, sorted, with the unknown-person
// sentinel filtered out.
func personList(asset *Asset) []string {
	var persons []string
	for _, p := range asset.Persons {
		if p != UnknownPerson {
			persons = append(persons, p)
		}
	}
	sort.Strings(persons)
	return persons
}

// keywordList assembles the combined keyword list: the asset's own keywords,
// optionally person and album names, and rendered keyword templates. The
// result is sorted.
func (s *Synthesizer) keywordList(asset *Asset, persons []string, opts Options) []string {
	keywords := append([]string{}, asset.Keywords...)

	if opts.UsePersonsAsKeywords {
		keywords = append(keywords, persons...)
	}
	if opts.UseAlbumsAsKeywords {
		keywords = append(keywords, asset.Albums...)
	}

	for _, tmpl := range opts.KeywordTemplates {
		rendered, unmatched := s.renderer.Render(tmpl, asset, noneSentinel, "/")
		if len(unmatched) > 0 {
			s.logger.Warn("unmatched template substitution", "template", tmpl, "unmatched", strings.Join(unmatched, ","))
		}
		for _, kw := range rendered {
			if strings.Contains(kw, noneSentinel) {
				continue
			}
			if len(kw) > maxIPTCKeywordLen {
				s.logger.Warn("keyword exceeds max IPTC length", "keyword", kw, "limit", maxIPTCKeywordLen)
			}
			keywords = append(keywords, kw)
		}
	}

	sort.Strings(keywords)
	return keywords
}

// record builds the canonical tag->value document shared by every output
// format. Values are strings or string lists keyed by exiftool tag names.
func (s *Synthesizer) record(asset *Asset, opts Options) map[string]any {
	exif := map[string]any{
		"_CreatedBy": createdByTag,
	}

	if asset.Description != "" {
		exif["EXIF:ImageDescription"] = asset.Description
		exif["XMP:Description"] = asset.Description
	}
	if asset.Title != "" {
		exif["XMP:Title"] = asset.Title
	}

	persons := personList(asset)
	keywords := s.keywordList(asset, persons, opts)

	if len(keywords) > 0 {
		exif["XMP:TagsList"] = keywords
		exif["IPTC:Keywords"] = keywords
	}
	if len(persons) > 0 {
		exif["XMP:PersonInImage"] = persons
	}
	if len(asset.Keywords) > 0 || len(persons) > 0 {
		// Photos puts both keywords and persons in Subject; only the
		// asset's own keywords participate, not the derived ones.
		subject := append(append([]string{}, asset.Keywords...), persons...)
		sort.Strings(subject)
		exif["XMP:Subject"] = subject
	}

	if asset.Location != nil {
		latStr := dmsString(asset.Location.Latitude, "N", "S")
		lonStr := dmsString(asset.Location.Longitude, "E", "W")
		exif["EXIF:GPSLatitude"] = latStr
		exif["EXIF:GPSLongitude"] = lonStr
		exif["Composite:GPSPosition"] = latStr + ", " + lonStr
		exif["EXIF:GPSLatitudeRef"] = ref(asset.Location.Latitude, "North", "South")
		exif["EXIF:GPSLongitudeRef"] = ref(asset.Location.Longitude, "East", "West")
	}

	exif["EXIF:DateTimeOriginal"] = asset.DateCreated.Format("2006:01:02 15:04:05")
	exif["EXIF:OffsetTimeOriginal"] = asset.DateCreated.Format("-07:00")
	if !asset.DateModified.IsZero() {
		exif["EXIF:ModifyDate"] = asset.DateModified.Format("2006:01:02 15:04:05")
	}

	return exif
}

// JSONSidecar renders the metadata document in exiftool's sidecar format: a
// one-element array of tag->value pairs. Map keys marshal in sorted order, so
// the output is deterministic and usable for change detection.
func (s *Synthesizer) JSONSidecar(asset *Asset, opts Options) (string, error) {
	b, err := json.Marshal([]map[string]any{s.record(asset, opts)})
	if err != nil {
		return "", fmt.Errorf("rendering json sidecar for %s: %w", asset.UUID, err)
	}
	return string(b), nil
}

// SidecarsEqual reports whether two rendered JSON sidecar payloads carry the
// same metadata, comparing parsed documents rather than raw bytes.
func SidecarsEqual(a, b string) bool {
	var da, db []map[string]any
	if err := json.Unmarshal([]byte(a), &da); err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(b), &db); err != nil {
		return false
	}
	return reflect.DeepEqual(da, db)
}

// WriteSidecar writes a rendered sidecar string next to an exported file.
func (s *Synthesizer) WriteSidecar(path, content string) error {
	if path == "" || content == "" {
		return fmt.Errorf("sidecar path and content must not be empty")
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing sidecar %s: %w", path, err)
	}
	return nil
}

// WriteExif embeds the metadata document into the file behind w. List-valued
// tags set the first value and append the rest, mirroring exiftool's API for
// multi-valued tags.
func (s *Synthesizer) WriteExif(w ExifWriter, asset *Asset, opts Options) error {
	exif := s.record(asset, opts)

	tags := make([]string, 0, len(exif))
	for tag := range exif {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	for _, tag := range tags {
		switch v := exif[tag].(type) {
		case string:
			if err := w.SetValue(tag, v); err != nil {
				return fmt.Errorf("setting %s: %w", tag, err)
			}
		case []string:
			if len(v) == 0 {
				continue
			}
			if err := w.SetValue(tag, v[0]); err != nil {
				return fmt.Errorf("setting %s: %w", tag, err)
			}
			if len(v) > 1 {
				if err := w.AddValues(tag, v[1:]...); err != nil {
					return fmt.Errorf("appending to %s: %w", tag, err)
				}
			}
		default:
			return fmt.Errorf("unexpected value type %T for tag %s", v, tag)
		}
	}
	return nil
}

// xmpSidecarTemplate follows the layout Photos produces when exporting IPTC
// as XMP. Rendered blank lines are stripped afterwards.
var xmpSidecarTemplate = template.Must(template.New("xmp").Parse(`<?xpacket begin="` + "\uFEFF" + `" id="W5M0MpCehiHzreSzNTczkc9d"?>
<x:xmpmeta xmlns:x="adobe:ns:meta/" x:xmptk="px">
 <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
  <rdf:Description rdf:about=""
    xmlns:dc="http://purl.org/dc/elements/1.1/"
    xmlns:digiKam="http://www.digikam.org/ns/1.0/"
    xmlns:Iptc4xmpExt="http://iptc.org/std/Iptc4xmpExt/2008-02-29/"
    xmlns:photoshop="http://ns.adobe.com/photoshop/1.0/">
{{- if .Title}}
   <dc:title><rdf:Alt><rdf:li xml:lang="x-default">{{.Title | html}}</rdf:li></rdf:Alt></dc:title>
{{- end}}
{{- if .Description}}
   <dc:description><rdf:Alt><rdf:li xml:lang="x-default">{{.Description | html}}</rdf:li></rdf:Alt></dc:description>
{{- end}}
{{- if .Subjects}}
   <dc:subject>
    <rdf:Seq>
{{- range .Subjects}}
     <rdf:li>{{. | html}}</rdf:li>
{{- end}}
    </rdf:Seq>
   </dc:subject>
{{- end}}
{{- if .Keywords}}
   <digiKam:TagsList>
    <rdf:Seq>
{{- range .Keywords}}
     <rdf:li>{{. | html}}</rdf:li>
{{- end}}
    </rdf:Seq>
   </digiKam:TagsList>
{{- end}}
{{- if .Persons}}
   <Iptc4xmpExt:PersonInImage>
    <rdf:Bag>
{{- range .Persons}}
     <rdf:li>{{. | html}}</rdf:li>
{{- end}}
    </rdf:Bag>
   </Iptc4xmpExt:PersonInImage>
{{- end}}
   <photoshop:DateCreated>{{.DateCreated}}</photoshop:DateCreated>
  </rdf:Description>
 </rdf:RDF>
</x:xmpmeta>
<?xpacket end="w"?>`))

// XMPSidecar renders the metadata document as an XMP sidecar.
func (s *Synthesizer) XMPSidecar(asset *Asset, opts Options) (string, error) {
	persons := personList(asset)
	keywords := s.keywordList(asset, persons, opts)

	var subjects []string
	if len(asset.Keywords) > 0 || len(persons) > 0 {
		subjects = append(append([]string{}, asset.Keywords...), persons...)
		sort.Strings(subjects)
	}

	data := struct {
		Title       string
		Description string
		Keywords    []string
		Persons     []string
		Subjects    []string
		DateCreated string
	}{
		Title:       asset.Title,
		Description: asset.Description,
		Keywords:    keywords,
		Persons:     persons,
		Subjects:    subjects,
		DateCreated: asset.DateCreated.Format("2006-01-02T15:04:05-07:00"),
	}

	var sb strings.Builder
	if err := xmpSidecarTemplate.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("rendering xmp sidecar for %s: %w", asset.UUID, err)
	}

	// Drop blank lines the template leaves behind.
	lines := strings.Split(sb.String(), "\n")
	out := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n"), nil
}

// dmsString converts a decimal-degree coordinate to exiftool's
// degree-minute-second form, e.g. `41 deg 53' 24.48" N`.
func dmsString(dd float64, pos, neg string) string {
	abs := math.Abs(dd)
	deg := int(abs)
	minf := (abs - float64(deg)) * 60
	min := int(minf)
	sec := (minf - float64(min)) * 60
	return fmt.Sprintf("%d deg %d' %.2f\" %s", deg, min, sec, ref(dd, pos, neg))
}

func ref(dd float64, pos, neg string) string {
	if dd >= 0 {
		return pos
	}
	return neg
}
