package px

import (
	"encoding/json"
	"fmt"
	"time"
)

// UnknownPerson is the sentinel the library reader uses for detected faces
// that have not been named. It is filtered out of all metadata output.
const UnknownPerson = "_UNKNOWN_"

// Location is a GPS coordinate pair in decimal degrees.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Asset is a read-only view of one photo or video record from the source
// library. The library reader produces Assets; the export engine never
// mutates them.
type Asset struct {
	UUID string `json:"uuid"`

	// Paths into the source library. Any of them may be empty if the
	// corresponding variant does not exist (or the file is missing locally).
	OriginalPath  string `json:"original_path,omitempty"`
	EditedPath    string `json:"edited_path,omitempty"`
	LiveVideoPath string `json:"live_video_path,omitempty"`
	RAWPath       string `json:"raw_path,omitempty"`

	IsMissing      bool `json:"is_missing,omitempty"`
	IsCloudAsset   bool `json:"is_cloud_asset,omitempty"`
	IsInCloud      bool `json:"is_in_cloud,omitempty"`
	HasAdjustments bool `json:"has_adjustments,omitempty"`
	IsBurst        bool `json:"is_burst,omitempty"`
	IsLivePhoto    bool `json:"is_live_photo,omitempty"`
	HasRAW         bool `json:"has_raw,omitempty"`

	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"original_filename,omitempty"`
	Title            string    `json:"title,omitempty"`
	Description      string    `json:"description,omitempty"`
	Keywords         []string  `json:"keywords,omitempty"`
	Persons          []string  `json:"persons,omitempty"`
	Albums           []string  `json:"albums,omitempty"`
	DateCreated      time.Time `json:"date_created"`
	DateModified     time.Time `json:"date_modified,omitzero"` // zero value means unset
	Location         *Location `json:"location,omitempty"`
}

// Validate checks the invariants the export engine relies on.
func (a *Asset) Validate() error {
	if a.UUID == "" {
		return fmt.Errorf("asset has no uuid")
	}
	if a.Filename == "" {
		return fmt.Errorf("asset %s has no filename", a.UUID)
	}
	return nil
}

// JSON serializes the asset's metadata for storage in the ledger. The ledger
// keeps this for change detection and debugging; nothing is re-derived from
// it at runtime.
func (a *Asset) JSON() string {
	type assetInfo struct {
		UUID             string    `json:"uuid"`
		Filename         string    `json:"filename"`
		OriginalFilename string    `json:"original_filename"`
		Title            string    `json:"title,omitempty"`
		Description      string    `json:"description,omitempty"`
		Keywords         []string  `json:"keywords,omitempty"`
		Persons          []string  `json:"persons,omitempty"`
		Albums           []string  `json:"albums,omitempty"`
		DateCreated      time.Time `json:"date_created"`
		DateModified     string    `json:"date_modified,omitempty"`
		Latitude         *float64  `json:"latitude,omitempty"`
		Longitude        *float64  `json:"longitude,omitempty"`
		HasAdjustments   bool      `json:"has_adjustments"`
		IsLivePhoto      bool      `json:"is_live_photo"`
		HasRAW           bool      `json:"has_raw"`
		IsBurst          bool      `json:"is_burst"`
	}

	info := assetInfo{
		UUID:             a.UUID,
		Filename:         a.Filename,
		OriginalFilename: a.OriginalFilename,
		Title:            a.Title,
		Description:      a.Description,
		Keywords:         a.Keywords,
		Persons:          a.Persons,
		Albums:           a.Albums,
		DateCreated:      a.DateCreated,
		HasAdjustments:   a.HasAdjustments,
		IsLivePhoto:      a.IsLivePhoto,
		HasRAW:           a.HasRAW,
		IsBurst:          a.IsBurst,
	}
	if !a.DateModified.IsZero() {
		info.DateModified = a.DateModified.Format(time.RFC3339)
	}
	if a.Location != nil {
		info.Latitude = &a.Location.Latitude
		info.Longitude = &a.Location.Longitude
	}

	b, err := json.Marshal(info)
	if err != nil {
		// assetInfo contains only marshalable types
		return "{}"
	}
	return string(b)
}

// AssetsFromJSON decodes a manifest of assets produced by the library reader.
// The manifest is a JSON array of asset records.
func AssetsFromJSON(data []byte) ([]*Asset, error) {
	var assets []*Asset
	if err := json.Unmarshal(data, &assets); err != nil {
		return nil, fmt.Errorf("decoding asset manifest: %w", err)
	}
	for _, a := range assets {
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("invalid asset in manifest: %w", err)
		}
	}
	return assets, nil
}
