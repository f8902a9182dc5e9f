// Package tmpl renders naming templates like "{created.year}/{album}" against
// an asset.
package tmpl

import (
	"fmt"
	"regexp"
	"strings"

	"px-go/internal/px"
)

var tokenRe = regexp.MustCompile(`\{([a-z._]+)\}`)

// Renderer is the concrete px.TemplateRenderer. Single-valued tokens
// substitute in place; multi-valued tokens (album, keyword, person) fan the
// template out into one rendered string per value. Unknown tokens are
// reported and left verbatim.
type Renderer struct{}

func NewRenderer() *Renderer { return &Renderer{} }

func (r *Renderer) Render(template string, asset *px.Asset, nonePlaceholder, pathSep string) ([]string, []string) {
	rendered := []string{template}
	var unmatched []string

	seen := map[string]bool{}
	for _, m := range tokenRe.FindAllStringSubmatch(template, -1) {
		token := m[1]
		if seen[token] {
			continue
		}
		seen[token] = true

		values, ok := lookup(token, asset, nonePlaceholder, pathSep)
		if !ok {
			unmatched = append(unmatched, token)
			continue
		}
		if len(values) == 0 {
			values = []string{nonePlaceholder}
		}

		next := make([]string, 0, len(rendered)*len(values))
		placeholder := "{" + token + "}"
		for _, s := range rendered {
			for _, v := range values {
				next = append(next, strings.ReplaceAll(s, placeholder, v))
			}
		}
		rendered = next
	}

	return rendered, unmatched
}

// lookup resolves one token against the asset. The second return is false for
// tokens the renderer does not know.
func lookup(token string, asset *px.Asset, nonePlaceholder, pathSep string) ([]string, bool) {
	single := func(v string) ([]string, bool) {
		if v == "" {
			return []string{nonePlaceholder}, true
		}
		return []string{strings.ReplaceAll(v, "/", pathSep)}, true
	}
	multi := func(vs []string) ([]string, bool) {
		out := make([]string, 0, len(vs))
		for _, v := range vs {
			if v == px.UnknownPerson {
				continue
			}
			out = append(out, strings.ReplaceAll(v, "/", pathSep))
		}
		return out, true
	}

	switch token {
	case "name":
		return single(strings.TrimSuffix(asset.Filename, ext(asset.Filename)))
	case "original_name":
		return single(strings.TrimSuffix(asset.OriginalFilename, ext(asset.OriginalFilename)))
	case "title":
		return single(asset.Title)
	case "uuid":
		return single(asset.UUID)
	case "album":
		return multi(asset.Albums)
	case "keyword":
		return multi(asset.Keywords)
	case "person":
		return multi(asset.Persons)
	}

	field, part, ok := strings.Cut(token, ".")
	if !ok {
		return nil, false
	}

	t := asset.DateCreated
	switch field {
	case "created":
	case "modified":
		if asset.DateModified.IsZero() {
			return []string{nonePlaceholder}, true
		}
		t = asset.DateModified
	default:
		return nil, false
	}

	switch part {
	case "year":
		return []string{fmt.Sprintf("%04d", t.Year())}, true
	case "yy":
		return []string{t.Format("06")}, true
	case "month":
		return []string{t.Month().String()}, true
	case "mon":
		return []string{t.Format("Jan")}, true
	case "mm":
		return []string{t.Format("01")}, true
	case "dd":
		return []string{t.Format("02")}, true
	case "dow":
		return []string{t.Weekday().String()}, true
	case "doy":
		return []string{fmt.Sprintf("%03d", t.YearDay())}, true
	case "hour":
		return []string{t.Format("15")}, true
	case "min":
		return []string{t.Format("04")}, true
	case "sec":
		return []string{t.Format("05")}, true
	}
	return nil, false
}

func ext(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}

var _ px.TemplateRenderer = (*Renderer)(nil)
