package px

// Results categorizes the destination paths touched by one export call.
// Exported holds every path written this run; New, Updated and Skipped
// partition it when running incrementally. ExifUpdated lists paths whose
// embedded EXIF was (re)written. Paths are accumulated, never deduplicated:
// companion exports may legitimately repeat a path.
type Results struct {
	Exported    []string
	New         []string
	Updated     []string
	Skipped     []string
	ExifUpdated []string
}

// Extend appends all of o's paths onto r.
func (r *Results) Extend(o *Results) {
	if o == nil {
		return
	}
	r.Exported = append(r.Exported, o.Exported...)
	r.New = append(r.New, o.New...)
	r.Updated = append(r.Updated, o.Updated...)
	r.Skipped = append(r.Skipped, o.Skipped...)
	r.ExifUpdated = append(r.ExifUpdated, o.ExifUpdated...)
}
