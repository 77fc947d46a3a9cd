package image

// Payload is one embedded image as submitted with a listing.
type Payload struct {
	Name string `json:"name"`
	Type string `json:"type"`
	// Data holds a data URI: "data:image/<kind>;base64,<bytes>".
	Data string `json:"data"`
	Size *int64 `json:"size,omitempty"`
}

// Asset describes an image that has been written to the content store.
// Listings embed assets, never image bytes.
type Asset struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
	Path         string `json:"path"`
	ContentType  string `json:"contentType,omitempty"`
}

// ItemResult is the outcome of ingesting a single payload.
type ItemResult struct {
	Index   int      `json:"index"`
	Success bool     `json:"success"`
	Asset   *Asset   `json:"asset,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// ItemError reports why the payload at Index was rejected.
type ItemError struct {
	Index  int      `json:"index"`
	Name   string   `json:"name"`
	Errors []string `json:"errors"`
}

// BatchResult aggregates the outcome of a batch in submission order.
type BatchResult struct {
	Success   bool         `json:"success"`
	Processed []ItemResult `json:"processedImages"`
	Errors    []ItemError  `json:"errors"`
}

// Assets returns the stored assets of the successful items, in submission order.
func (r BatchResult) Assets() []Asset {
	assets := make([]Asset, 0, len(r.Processed))
	for _, item := range r.Processed {
		if item.Success && item.Asset != nil {
			assets = append(assets, *item.Asset)
		}
	}
	return assets
}
