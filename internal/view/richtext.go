package view

import (
	"fmt"
	"html"
	"html/template"
	"net/url"
	"strings"

	"newsroom/web/internal/models"
)

var decorators = map[string]string{
	"strong":         "strong",
	"em":             "em",
	"code":           "code",
	"underline":      "u",
	"strike-through": "s",
}

var blockTags = map[string]string{
	"normal":     "p",
	"h1":         "h1",
	"h2":         "h2",
	"h3":         "h3",
	"h4":         "h4",
	"h5":         "h5",
	"h6":         "h6",
	"blockquote": "blockquote",
}

// LinkHref maps a resolved link target to a route.
func LinkHref(l *models.Link) string {
	if l == nil {
		return ""
	}
	switch t := l.Target.(type) {
	case models.PageTarget:
		return "/" + t.Slug
	case models.ArticleTarget:
		return "/posts/" + t.Slug
	case models.URLTarget:
		return safeURL(t.URL)
	default:
		return ""
	}
}

func safeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "#"
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "mailto", "tel":
		return u.String()
	default:
		return "#"
	}
}

// Renderer turns rich text bodies into HTML.
type Renderer struct {
	Images ImageBuilder
}

// Render returns body as HTML. Consecutive list items are grouped into a
// single list per type.
func (r Renderer) Render(body models.Body) template.HTML {
	var sb strings.Builder
	var openList string

	closeList := func() {
		if openList != "" {
			fmt.Fprintf(&sb, "</%s>", openList)
			openList = ""
		}
	}

	for _, block := range body {
		switch b := block.(type) {
		case *models.TextBlock:
			if b.ListItem != "" {
				tag := "ul"
				if b.ListItem == "number" {
					tag = "ol"
				}
				if openList != tag {
					closeList()
					fmt.Fprintf(&sb, "<%s>", tag)
					openList = tag
				}
				sb.WriteString("<li>")
				r.spans(&sb, b)
				sb.WriteString("</li>")
				continue
			}
			closeList()
			tag, ok := blockTags[b.Style]
			if !ok {
				tag = "p"
			}
			fmt.Fprintf(&sb, "<%s>", tag)
			r.spans(&sb, b)
			fmt.Fprintf(&sb, "</%s>", tag)
		case *models.ImageBlock:
			closeList()
			src := r.Images.URL(&b.Image, 1024, 0)
			if src == "" {
				continue
			}
			fmt.Fprintf(&sb, `<figure><img src="%s" alt="%s" loading="lazy"></figure>`,
				html.EscapeString(src), html.EscapeString(b.Image.Alt))
		}
	}
	closeList()

	return template.HTML(sb.String())
}

func (r Renderer) spans(sb *strings.Builder, b *models.TextBlock) {
	for _, span := range b.Children {
		var closers []string
		// Links open first so they wrap any decorators on the same span.
		for _, mark := range span.Marks {
			link, ok := b.Links[mark]
			if !ok {
				continue
			}
			href := LinkHref(&link)
			if href == "" {
				continue
			}
			if link.NewTab {
				fmt.Fprintf(sb, `<a href="%s" target="_blank" rel="noopener noreferrer">`, html.EscapeString(href))
			} else {
				fmt.Fprintf(sb, `<a href="%s">`, html.EscapeString(href))
			}
			closers = append(closers, "</a>")
		}
		for _, mark := range span.Marks {
			if tag, ok := decorators[mark]; ok {
				fmt.Fprintf(sb, "<%s>", tag)
				closers = append(closers, "</"+tag+">")
			}
		}
		sb.WriteString(html.EscapeString(span.Text))
		for i := len(closers) - 1; i >= 0; i-- {
			sb.WriteString(closers[i])
		}
	}
}
