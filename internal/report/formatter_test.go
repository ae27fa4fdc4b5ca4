package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"product-meta-viewer/internal/domain"
)

func TestFormatter_Format(t *testing.T) {
	f := NewFormatter()

	tests := []struct {
		name     string
		value    domain.Value
		contains []string
		equals   string
	}{
		{name: "absent", value: domain.Value{}, equals: EmptyMarker},
		{name: "no image", value: domain.Image(nil), equals: NoImageMarker},
		{name: "empty gallery", value: domain.Gallery(nil), equals: NoGalleryMarker},
		{name: "empty pairs", value: domain.KeyValues(nil), equals: EmptyMarker},
		{name: "empty url", value: domain.URL(""), equals: EmptyMarker},
		{
			name:     "url keeps visible text",
			value:    domain.URL("https://shop.example/a?b=1&c=2"),
			contains: []string{`href="https://shop.example/a?b=1&amp;c=2"`, `<span class="url-text">https://shop.example/a?b=1&amp;c=2</span>`},
		},
		{
			name:     "unsafe scheme is not linked",
			value:    domain.URL("javascript:alert(1)"),
			contains: []string{`href="#"`},
		},
		{
			name:     "image",
			value:    domain.Image(&domain.ImageRef{AttachmentID: 300, DisplayURL: "https://x/t.jpg", FullURL: "https://x/f.jpg", EditURL: "https://x/edit"}),
			contains: []string{`<img src="https://x/t.jpg"`, "Edit in Media Library", "View Full Size Image"},
		},
		{
			name:   "pairs are escaped",
			value:  domain.KeyValues([]domain.KeyValue{{Key: "a", Value: "<b>"}, {Key: "c", Value: "d"}}),
			equals: "a: &lt;b&gt;<br>c: d",
		},
		{
			name:   "scalar drops scripts",
			value:  domain.Text(`<p>ok</p><script>alert(1)</script>`),
			equals: "<p>ok</p>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := string(f.Format(tt.value))
			if tt.equals != "" {
				assert.Equal(t, tt.equals, out)
			}
			for _, c := range tt.contains {
				assert.Contains(t, out, c)
			}
		})
	}
}

func TestFormatter_GalleryRendersEveryImage(t *testing.T) {
	f := NewFormatter()
	out := string(f.Format(domain.Gallery([]domain.ImageRef{
		{AttachmentID: 1, DisplayURL: "https://x/1.jpg", FullURL: "https://x/1f.jpg"},
		{AttachmentID: 2, DisplayURL: "https://x/2.jpg", FullURL: "https://x/2f.jpg"},
	})))
	assert.Equal(t, 2, strings.Count(out, `class="gallery-image"`))
}

func TestFormatter_ComparisonKey(t *testing.T) {
	f := NewFormatter()

	img := func(id int64, url string) domain.Value {
		return domain.Image(&domain.ImageRef{AttachmentID: id, DisplayURL: url})
	}
	assert.Equal(t, f.ComparisonKey(img(5, "a.jpg")), f.ComparisonKey(img(5, "b.jpg")), "images compare by attachment id")
	assert.NotEqual(t, f.ComparisonKey(img(5, "a.jpg")), f.ComparisonKey(img(6, "a.jpg")))
	assert.Equal(t, "", f.ComparisonKey(domain.Image(nil)))

	g12 := domain.Gallery([]domain.ImageRef{{AttachmentID: 1}, {AttachmentID: 2}})
	g21 := domain.Gallery([]domain.ImageRef{{AttachmentID: 2}, {AttachmentID: 1}})
	assert.Equal(t, "1,2", f.ComparisonKey(g12))
	assert.NotEqual(t, f.ComparisonKey(g12), f.ComparisonKey(g21), "gallery order matters")

	assert.Equal(t, "Soft cotton tee", f.ComparisonKey(domain.Text("<p>Soft <strong>cotton</strong> tee</p>")))
	assert.Equal(t, "a & b", f.ComparisonKey(domain.Text("a &amp; b")))

	// Keys are unambiguous even when values contain the separators.
	ab := domain.KeyValues([]domain.KeyValue{{Key: "a", Value: "1;b:2"}})
	split := domain.KeyValues([]domain.KeyValue{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}})
	assert.NotEqual(t, f.ComparisonKey(ab), f.ComparisonKey(split))
}

func TestFormatter_PlainText(t *testing.T) {
	f := NewFormatter()
	assert.Equal(t, "Soft cotton tee", f.PlainText(domain.Text("<p>Soft <strong>cotton</strong> tee</p>")))
	assert.Equal(t, NoImageMarker, f.PlainText(domain.Image(nil)))
	assert.Equal(t, "a: 1\nb: 2", f.PlainText(domain.KeyValues([]domain.KeyValue{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}})))
}
