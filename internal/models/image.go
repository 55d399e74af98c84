package models

// Reference points at another document or asset in the content store.
type Reference struct {
	Ref  string `json:"_ref"`
	Type string `json:"_type,omitempty"`
}

// Hotspot is the editor-chosen focal area of an image, in fractions of its size.
type Hotspot struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Image is an asset reference as stored on a document.
type Image struct {
	Asset   *Reference `json:"asset,omitempty"`
	Alt     string     `json:"alt,omitempty"`
	Hotspot *Hotspot   `json:"hotspot,omitempty"`
}

// AssetRef returns the asset reference id, or "" when the image has none.
func (i *Image) AssetRef() string {
	if i == nil || i.Asset == nil {
		return ""
	}
	return i.Asset.Ref
}
