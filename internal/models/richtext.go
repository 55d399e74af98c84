package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Block is one entry of a rich text body. The concrete type is either
// *TextBlock or *ImageBlock; unknown block types are dropped on decode.
type Block interface {
	BlockKey() string
	isBlock()
}

// Span is a run of text sharing the same marks. A mark is either a
// decorator name ("strong", "em", ...) or the key of a link annotation.
type Span struct {
	Key   string   `json:"_key"`
	Text  string   `json:"text"`
	Marks []string `json:"marks,omitempty"`
}

// TextBlock is a paragraph, heading, quote or list item.
type TextBlock struct {
	Key      string          `json:"_key"`
	Style    string          `json:"style"`
	ListItem string          `json:"listItem,omitempty"`
	Level    int             `json:"level,omitempty"`
	Children []Span          `json:"children"`
	Links    map[string]Link `json:"-"`
}

func (b *TextBlock) BlockKey() string { return b.Key }
func (*TextBlock) isBlock()           {}

// PlainText concatenates the span texts.
func (b *TextBlock) PlainText() string {
	var sb strings.Builder
	for _, s := range b.Children {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// ImageBlock is an inline image in a rich text body.
type ImageBlock struct {
	Key   string `json:"_key"`
	Image Image  `json:"image"`
}

func (b *ImageBlock) BlockKey() string { return b.Key }
func (*ImageBlock) isBlock()           {}

// LinkTarget is where a link goes once its reference has been resolved.
// It is one of PageTarget, ArticleTarget or URLTarget.
type LinkTarget interface {
	isLinkTarget()
}

// PageTarget links to a CMS page by slug.
type PageTarget struct{ Slug string }

// ArticleTarget links to an article by slug.
type ArticleTarget struct{ Slug string }

// URLTarget links to an arbitrary URL.
type URLTarget struct{ URL string }

func (PageTarget) isLinkTarget()    {}
func (ArticleTarget) isLinkTarget() {}
func (URLTarget) isLinkTarget()     {}

// Link is a resolved link annotation or call-to-action link.
type Link struct {
	Target LinkTarget
	NewTab bool
}

// linkDoc is the projected shape of a link object. page and article hold
// slugs when the query dereferenced them, anything else means unresolved.
type linkDoc struct {
	Type         string          `json:"_type"`
	Key          string          `json:"_key"`
	LinkType     string          `json:"linkType"`
	Href         string          `json:"href"`
	Page         json.RawMessage `json:"page"`
	Article      json.RawMessage `json:"article"`
	OpenInNewTab bool            `json:"openInNewTab"`
}

func rawSlug(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Current string `json:"current"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Current
	}
	return ""
}

// resolve picks the concrete target. ok is false when the link has nowhere to go.
func (d linkDoc) resolve() (Link, bool) {
	page, article := rawSlug(d.Page), rawSlug(d.Article)

	var target LinkTarget
	switch d.LinkType {
	case "page":
		if page != "" {
			target = PageTarget{Slug: page}
		}
	case "article", "post":
		if article != "" {
			target = ArticleTarget{Slug: article}
		}
	case "href":
		if d.Href != "" {
			target = URLTarget{URL: d.Href}
		}
	default:
		switch {
		case page != "":
			target = PageTarget{Slug: page}
		case article != "":
			target = ArticleTarget{Slug: article}
		case d.Href != "":
			target = URLTarget{URL: d.Href}
		}
	}
	if target == nil {
		return Link{}, false
	}
	return Link{Target: target, NewTab: d.OpenInNewTab}, true
}

// UnmarshalJSON decodes a link object and resolves its target.
func (l *Link) UnmarshalJSON(data []byte) error {
	var d linkDoc
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	resolved, _ := d.resolve()
	*l = resolved
	return nil
}

// Body is an ordered rich text document.
type Body []Block

// UnmarshalJSON dispatches each entry on its _type discriminator.
func (b *Body) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*b = nil
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("rich text body: %w", err)
	}

	blocks := make(Body, 0, len(raw))
	for i, item := range raw {
		var head struct {
			Type string `json:"_type"`
		}
		if err := json.Unmarshal(item, &head); err != nil {
			return fmt.Errorf("rich text block %d: %w", i, err)
		}

		switch head.Type {
		case "block":
			var doc struct {
				TextBlock
				MarkDefs []linkDoc `json:"markDefs"`
			}
			if err := json.Unmarshal(item, &doc); err != nil {
				return fmt.Errorf("text block %d: %w", i, err)
			}
			tb := doc.TextBlock
			if tb.Style == "" {
				tb.Style = "normal"
			}
			for _, def := range doc.MarkDefs {
				if def.Type != "link" {
					continue
				}
				if link, ok := def.resolve(); ok {
					if tb.Links == nil {
						tb.Links = make(map[string]Link)
					}
					tb.Links[def.Key] = link
				}
			}
			blocks = append(blocks, &tb)
		case "image":
			var doc struct {
				Key string `json:"_key"`
				Image
			}
			if err := json.Unmarshal(item, &doc); err != nil {
				return fmt.Errorf("image block %d: %w", i, err)
			}
			blocks = append(blocks, &ImageBlock{Key: doc.Key, Image: doc.Image})
		}
	}

	*b = blocks
	return nil
}

// PlainText joins the text blocks with blank lines between them.
func (b Body) PlainText() string {
	var parts []string
	for _, block := range b {
		if tb, ok := block.(*TextBlock); ok {
			parts = append(parts, tb.PlainText())
		}
	}
	return strings.Join(parts, "\n\n")
}
