package report

import (
	"fmt"
	"html"
	"html/template"
	"net/url"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"

	"product-meta-viewer/internal/domain"
)

// Empty-state markers.
const (
	EmptyMarker     = "—"
	NoImageMarker   = "No featured image"
	NoGalleryMarker = "No gallery images"
)

// Formatter renders typed values for display and derives their comparison keys.
type Formatter struct {
	markup *bluemonday.Policy // What descriptions may keep when displayed
	strip  *bluemonday.Policy
}

func NewFormatter() *Formatter {
	return &Formatter{
		markup: bluemonday.UGCPolicy(),
		strip:  bluemonday.StrictPolicy(),
	}
}

// Format renders v as HTML. It never fails: anything it cannot render comes
// out as the empty marker.
func (f *Formatter) Format(v domain.Value) (out template.HTML) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("kind", v.Kind.String()).Msg("Value formatting failed")
			out = template.HTML(EmptyMarker)
		}
	}()

	switch v.Kind {
	case domain.ValueScalar:
		return template.HTML(f.markup.Sanitize(v.Text))
	case domain.ValueURL:
		return formatURL(v.Text)
	case domain.ValueImage:
		if v.Image == nil || v.Image.AttachmentID <= 0 {
			return template.HTML(NoImageMarker)
		}
		return formatImage(*v.Image)
	case domain.ValueGallery:
		if len(v.Gallery) == 0 {
			return template.HTML(NoGalleryMarker)
		}
		var b strings.Builder
		for _, ref := range v.Gallery {
			fmt.Fprintf(&b, `<span class="gallery-image"><a href="%s" target="_blank" rel="noopener"><img src="%s" width="75" height="75" alt=""></a></span>`,
				attr(ref.FullURL), attr(ref.DisplayURL))
		}
		return template.HTML(b.String())
	case domain.ValueKeyValues:
		if len(v.Pairs) == 0 {
			return template.HTML(EmptyMarker)
		}
		lines := make([]string, len(v.Pairs))
		for i, kv := range v.Pairs {
			lines[i] = template.HTMLEscapeString(kv.Key) + ": " + template.HTMLEscapeString(kv.Value)
		}
		return template.HTML(strings.Join(lines, "<br>"))
	default:
		return template.HTML(EmptyMarker)
	}
}

func formatURL(u string) template.HTML {
	if strings.TrimSpace(u) == "" {
		return template.HTML(EmptyMarker)
	}
	text := template.HTMLEscapeString(u)
	// The plain copy stays visible for copy/paste; only safe schemes get a link.
	return template.HTML(fmt.Sprintf(`<a href="%s" target="_blank" rel="noopener">Open link</a><br><span class="url-text">%s</span>`, attr(u), text))
}

func formatImage(ref domain.ImageRef) template.HTML {
	return template.HTML(fmt.Sprintf(
		`<img src="%s" width="150" height="150" alt=""><div class="image-details"><a href="%s" target="_blank" rel="noopener">Edit in Media Library</a><br><a href="%s" target="_blank" rel="noopener">View Full Size Image</a></div>`,
		attr(ref.DisplayURL), attr(ref.EditURL), attr(ref.FullURL)))
}

// attr escapes a URL for an HTML attribute and neutralizes unsafe schemes.
func attr(u string) string {
	parsed, err := url.Parse(strings.TrimSpace(u))
	if err != nil {
		return "#"
	}
	switch parsed.Scheme {
	case "", "http", "https":
		return template.HTMLEscapeString(u)
	default:
		return "#"
	}
}

// ComparisonKey is the canonical string two values are compared by. Absent
// values map to "".
func (f *Formatter) ComparisonKey(v domain.Value) string {
	switch v.Kind {
	case domain.ValueScalar, domain.ValueURL:
		return f.stripMarkup(v.Text)
	case domain.ValueImage:
		if v.Image == nil || v.Image.AttachmentID <= 0 {
			return ""
		}
		return strconv.FormatInt(v.Image.AttachmentID, 10)
	case domain.ValueGallery:
		ids := make([]string, len(v.Gallery))
		for i, ref := range v.Gallery {
			ids[i] = strconv.FormatInt(ref.AttachmentID, 10)
		}
		return strings.Join(ids, ",")
	case domain.ValueKeyValues:
		parts := make([]string, len(v.Pairs))
		for i, kv := range v.Pairs {
			parts[i] = strconv.Quote(kv.Key) + ":" + strconv.Quote(kv.Value)
		}
		return strings.Join(parts, ";")
	default:
		return ""
	}
}

// PlainText renders v without markup, for terminals and JSON consumers.
func (f *Formatter) PlainText(v domain.Value) string {
	switch v.Kind {
	case domain.ValueScalar, domain.ValueURL:
		return f.stripMarkup(v.Text)
	case domain.ValueImage:
		if v.Image == nil || v.Image.AttachmentID <= 0 {
			return NoImageMarker
		}
		return v.Image.FullURL
	case domain.ValueGallery:
		if len(v.Gallery) == 0 {
			return NoGalleryMarker
		}
		urls := make([]string, len(v.Gallery))
		for i, ref := range v.Gallery {
			urls[i] = ref.FullURL
		}
		return strings.Join(urls, ", ")
	case domain.ValueKeyValues:
		lines := make([]string, len(v.Pairs))
		for i, kv := range v.Pairs {
			lines[i] = kv.Key + ": " + kv.Value
		}
		return strings.Join(lines, "\n")
	default:
		return ""
	}
}

func (f *Formatter) stripMarkup(s string) string {
	return strings.TrimSpace(html.UnescapeString(f.strip.Sanitize(s)))
}
