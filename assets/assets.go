// Package assets embeds the viewer page sources and builds the minified page.
package assets

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/svg"
)

// DefaultTitle is the page title used when none is given.
const DefaultTitle = "dzpool"

var (
	//go:embed index.html.tpl
	indexTemplate string

	//go:embed style.css
	styleCSS string

	//go:embed script.js
	scriptJS string

	//go:embed marker.svg
	markerSVG string

	// Favicon is the SVG site icon.
	//go:embed favicon.svg
	Favicon []byte
)

// PageData fills the page template.
type PageData struct {
	Title       string
	Attribution string
	CSS         string
	JS          string
	SVG         string
}

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("text/javascript", js.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)

	return m
}

// Build renders the viewer page with minified styles, script and marker icon
// inlined, then minifies the HTML itself.
func Build(title, attribution string) ([]byte, error) {
	if title == "" {
		title = DefaultTitle
	}

	m := newMinifier()

	cssMin, err := m.String("text/css", styleCSS)
	if err != nil {
		return nil, fmt.Errorf("minify css: %w", err)
	}
	jsMin, err := m.String("text/javascript", scriptJS)
	if err != nil {
		return nil, fmt.Errorf("minify js: %w", err)
	}
	svgMin, err := m.String("image/svg+xml", markerSVG)
	if err != nil {
		return nil, fmt.Errorf("minify svg: %w", err)
	}

	tmpl, err := template.New("index").Parse(indexTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, PageData{
		Title:       title,
		Attribution: attribution,
		CSS:         cssMin,
		JS:          jsMin,
		SVG:         svgMin,
	})
	if err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}

	page, err := m.Bytes("text/html", buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("minify html: %w", err)
	}

	return page, nil
}
