package models

import (
	"encoding/json"
	"fmt"
)

// PageBlock is one section of a page builder. The concrete type is either
// *CallToAction or *InfoSection.
type PageBlock interface {
	BlockKey() string
	isPageBlock()
}

// CallToAction is a heading, some copy and a single button link.
type CallToAction struct {
	Key        string `json:"_key"`
	Heading    string `json:"heading"`
	Text       string `json:"text"`
	ButtonText string `json:"buttonText"`
	Link       *Link  `json:"link"`
}

func (b *CallToAction) BlockKey() string { return b.Key }
func (*CallToAction) isPageBlock()       {}

// InfoSection is a titled block of rich text.
type InfoSection struct {
	Key        string `json:"_key"`
	Heading    string `json:"heading"`
	Subheading string `json:"subheading"`
	Content    Body   `json:"content"`
}

func (b *InfoSection) BlockKey() string { return b.Key }
func (*InfoSection) isPageBlock()       {}

// Page is a CMS landing page assembled from page builder blocks.
type Page struct {
	ID          string      `json:"_id"`
	Type        string      `json:"_type"`
	Name        string      `json:"name"`
	Slug        string      `json:"slug"`
	Heading     string      `json:"heading"`
	Subheading  string      `json:"subheading"`
	PageBuilder []PageBlock `json:"-"`
}

// UnmarshalJSON decodes the page and dispatches each builder block on _type.
func (p *Page) UnmarshalJSON(data []byte) error {
	var doc struct {
		ID          string            `json:"_id"`
		Type        string            `json:"_type"`
		Name        string            `json:"name"`
		Slug        json.RawMessage   `json:"slug"`
		Heading     string            `json:"heading"`
		Subheading  string            `json:"subheading"`
		PageBuilder []json.RawMessage `json:"pageBuilder"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	*p = Page{
		ID:         doc.ID,
		Type:       doc.Type,
		Name:       doc.Name,
		Slug:       rawSlug(doc.Slug),
		Heading:    doc.Heading,
		Subheading: doc.Subheading,
	}

	for i, item := range doc.PageBuilder {
		var head struct {
			Type string `json:"_type"`
		}
		if err := json.Unmarshal(item, &head); err != nil {
			return fmt.Errorf("page block %d: %w", i, err)
		}
		switch head.Type {
		case "callToAction":
			var b CallToAction
			if err := json.Unmarshal(item, &b); err != nil {
				return fmt.Errorf("call to action %d: %w", i, err)
			}
			if b.Link != nil && b.Link.Target == nil {
				b.Link = nil
			}
			p.PageBuilder = append(p.PageBuilder, &b)
		case "infoSection":
			var b InfoSection
			if err := json.Unmarshal(item, &b); err != nil {
				return fmt.Errorf("info section %d: %w", i, err)
			}
			p.PageBuilder = append(p.PageBuilder, &b)
		}
	}
	return nil
}
