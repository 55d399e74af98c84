package content

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Zero-width alphabet, two bits per character.
var stegaAlphabet = [4]rune{'\u200b', '\u200c', '\u200d', '\ufeff'}

// stegaFields are the display strings editors can click through to.
var stegaFields = map[string]bool{
	"title":      true,
	"excerpt":    true,
	"heading":    true,
	"subheading": true,
	"name":       true,
	"buttonText": true,
}

type stegaPayload struct {
	Origin string `json:"origin"`
	Href   string `json:"href"`
}

// Stega appends invisible edit links to display strings so the studio
// overlay can map rendered text back to the field that produced it.
type Stega struct {
	studioURL string
}

// NewStega creates an encoder pointing edit links at studioURL.
func NewStega(studioURL string) *Stega {
	return &Stega{studioURL: strings.TrimRight(studioURL, "/")}
}

// Encode decorates every editable string in a query result.
func (s *Stega) Encode(raw json.RawMessage) (json.RawMessage, error) {
	var v any
	if err := jsonAPI.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("stega: %w", err)
	}
	v = s.walk(v, "")
	out, err := jsonAPI.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("stega: %w", err)
	}
	return out, nil
}

func (s *Stega) walk(v any, docID string) any {
	switch node := v.(type) {
	case map[string]any:
		if id, ok := node["_id"].(string); ok {
			docID = id
		}
		for k, child := range node {
			if text, ok := child.(string); ok && stegaFields[k] && text != "" && docID != "" {
				node[k] = text + s.mark(docID, k)
				continue
			}
			node[k] = s.walk(child, docID)
		}
		return node
	case []any:
		for i, child := range node {
			node[i] = s.walk(child, docID)
		}
		return node
	default:
		return v
	}
}

func (s *Stega) mark(docID, path string) string {
	href := fmt.Sprintf("%s/intent/edit/id=%s;path=%s", s.studioURL, url.PathEscape(docID), url.PathEscape(path))
	payload, _ := json.Marshal(stegaPayload{Origin: "sanity.io", Href: href})
	return encodeZeroWidth(payload)
}

func encodeZeroWidth(data []byte) string {
	var sb strings.Builder
	sb.Grow(len(data) * 4 * 3)
	for _, b := range data {
		for shift := 6; shift >= 0; shift -= 2 {
			sb.WriteRune(stegaAlphabet[(b>>shift)&0x3])
		}
	}
	return sb.String()
}

func stegaDigit(r rune) (byte, bool) {
	for i, a := range stegaAlphabet {
		if r == a {
			return byte(i), true
		}
	}
	return 0, false
}

// CleanStega removes any overlay encoding from s.
func CleanStega(s string) string {
	return strings.Map(func(r rune) rune {
		if _, ok := stegaDigit(r); ok {
			return -1
		}
		return r
	}, s)
}

// DecodeStega returns the edit link hidden in s, if any.
func DecodeStega(s string) (string, bool) {
	var digits []byte
	for _, r := range s {
		if d, ok := stegaDigit(r); ok {
			digits = append(digits, d)
		}
	}
	if len(digits) == 0 || len(digits)%4 != 0 {
		return "", false
	}

	data := make([]byte, len(digits)/4)
	for i := range data {
		d := digits[i*4 : i*4+4]
		data[i] = d[0]<<6 | d[1]<<4 | d[2]<<2 | d[3]
	}

	var p stegaPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return "", false
	}
	return p.Href, true
}
