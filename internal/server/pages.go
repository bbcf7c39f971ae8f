package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"math"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"atfcf/internal/company"
)

//go:embed templates/*.html content/*.md
var assets embed.FS

// page is the data handed to the layout template.
type page struct {
	Active   string
	Body     template.HTML
	Records  []company.Record
	WithData int
}

var funcs = template.FuncMap{
	"usd": formatUSD,
}

// loadPages parses every page template together with the shared layout.
func loadPages(names ...string) (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		t, err := template.New(name).Funcs(funcs).ParseFS(assets, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

// renderMarkdown converts an embedded markdown document to HTML.
func renderMarkdown(name string) (template.HTML, error) {
	source, err := assets.ReadFile("content/" + name)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}

	md := goldmark.New(
		goldmark.WithExtensions(extension.Table),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)

	var buf bytes.Buffer
	if err := md.Convert(source, &buf); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}

	// Embedded content is trusted; goldmark escapes raw HTML by default.
	return template.HTML(buf.String()), nil
}

// formatUSD renders a dollar amount with a magnitude suffix, e.g. "$12.35B".
func formatUSD(v *float64) string {
	if v == nil {
		return "N/A"
	}

	x := *v
	sign := ""
	if x < 0 {
		sign = "-"
		x = -x
	}

	switch {
	case math.IsNaN(x) || math.IsInf(x, 0):
		return "N/A"
	case x >= 1e12:
		return fmt.Sprintf("%s$%.2fT", sign, x/1e12)
	case x >= 1e9:
		return fmt.Sprintf("%s$%.2fB", sign, x/1e9)
	case x >= 1e6:
		return fmt.Sprintf("%s$%.2fM", sign, x/1e6)
	default:
		return sign + "$" + groupThousands(strconv.FormatFloat(x, 'f', 2, 64))
	}
}

func groupThousands(s string) string {
	whole, frac, _ := strings.Cut(s, ".")
	if len(whole) <= 3 {
		return s
	}

	var b strings.Builder
	lead := len(whole) % 3
	if lead > 0 {
		b.WriteString(whole[:lead])
	}
	for i := lead; i < len(whole); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(whole[i : i+3])
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}
