package view

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"newsroom/web/internal/models"
)

// Placeholder is served wherever an image is missing.
const Placeholder = "/static/placeholder.svg"

// Open Graph image size.
const (
	OGImageWidth  = 1200
	OGImageHeight = 627
)

// ImageBuilder derives CDN URLs for image assets of one dataset.
type ImageBuilder struct {
	ProjectID string
	Dataset   string
	BaseURL   string
}

// NewImageBuilder creates a builder for the public image CDN.
func NewImageBuilder(projectID, dataset string) ImageBuilder {
	return ImageBuilder{ProjectID: projectID, Dataset: dataset, BaseURL: "https://cdn.sanity.io"}
}

// URL returns a cropped rendition of img at w×h, or "" when there is no
// asset. Zero dimensions are left to the CDN.
func (b ImageBuilder) URL(img *models.Image, w, h int) string {
	ref := img.AssetRef()
	if ref == "" || b.ProjectID == "" {
		return ""
	}

	// image-<id>-<width>x<height>-<format>
	parts := strings.Split(ref, "-")
	if len(parts) < 4 || parts[0] != "image" {
		return ""
	}
	format := parts[len(parts)-1]
	size := parts[len(parts)-2]
	id := strings.Join(parts[1:len(parts)-2], "-")

	q := url.Values{}
	if w > 0 {
		q.Set("w", strconv.Itoa(w))
	}
	if h > 0 {
		q.Set("h", strconv.Itoa(h))
	}
	q.Set("fit", "crop")
	if img.Hotspot != nil {
		q.Set("crop", "focalpoint")
		q.Set("fp-x", strconv.FormatFloat(img.Hotspot.X, 'f', 3, 64))
		q.Set("fp-y", strconv.FormatFloat(img.Hotspot.Y, 'f', 3, 64))
	}
	q.Set("auto", "format")

	return fmt.Sprintf("%s/images/%s/%s/%s-%s.%s?%s",
		strings.TrimRight(b.BaseURL, "/"), b.ProjectID, b.Dataset, id, size, format, q.Encode())
}

// Src is URL with the placeholder for missing images, for templates.
func (b ImageBuilder) Src(img *models.Image, w, h int) string {
	if u := b.URL(img, w, h); u != "" {
		return u
	}
	return Placeholder
}
