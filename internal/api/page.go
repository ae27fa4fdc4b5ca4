package api

import (
	"embed"
	"html/template"
	"strconv"

	"product-meta-viewer/internal/report"
)

//go:embed templates/page.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/page.html"))

type fieldView struct {
	Label string
	Value template.HTML
}

type productHeader struct {
	ID      int64
	Name    string
	EditURL string
	Image   template.HTML
}

type rowView struct {
	Label   string
	Left    template.HTML
	Right   template.HTML
	Differs bool
}

type pageView struct {
	Query     report.PageQuery
	ID1, ID2  string // Empty when unset so the number inputs stay blank
	Error     string
	Invalid   string
	Prompt    string
	Permalink string
	ActionURL string
	SearchURL string

	Detail      *productHeader
	Fields      []fieldView
	Left, Right *productHeader
	Rows        []rowView
}

func formatID(id int64) string {
	if id <= 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

func header(d *report.Detail, f *report.Formatter) *productHeader {
	return &productHeader{
		ID:      d.Product.ID,
		Name:    d.Product.Name,
		EditURL: d.EditURL,
		Image:   f.Format(d.FeaturedImage()),
	}
}

// newPageView prepares page for the template, rendering every value through f.
func newPageView(page *report.Page, f *report.Formatter, pageURL string) pageView {
	q := page.Query
	v := pageView{
		Query:     q,
		ID1:       formatID(q.ID1),
		ID2:       formatID(q.ID2),
		Error:     page.Error,
		Invalid:   page.Invalid,
		ActionURL: pageURL,
		SearchURL: SearchPath,
	}

	switch page.Mode {
	case report.ModePrompt:
		v.Prompt = report.MsgProvideReference
	case report.ModeDetail:
		v.Permalink = report.PermalinkWithParams(pageURL, report.PageQuery{SKU1: q.SKU1, ID1: q.ID1})
		if d := page.Detail; d != nil {
			v.Detail = header(d, f)
			for _, field := range d.Fields.Fields() {
				v.Fields = append(v.Fields, fieldView{Label: field.Label, Value: f.Format(field.Value)})
			}
		}
	case report.ModeComparison:
		v.Permalink = report.PermalinkWithParams(pageURL, q)
		if c := page.Comparison; c != nil {
			v.Left, v.Right = header(c.Left, f), header(c.Right, f)
			for _, row := range c.Rows {
				v.Rows = append(v.Rows, rowView{
					Label:   row.Label,
					Left:    f.Format(row.Left),
					Right:   f.Format(row.Right),
					Differs: row.Differs,
				})
			}
		}
	}
	if page.Invalid != "" {
		v.Permalink = ""
	}
	return v
}
