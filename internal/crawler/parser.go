package crawler

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/UnitVectorY-Labs/buildbadges/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// htmlBadgeRegex catches the standard <a href><img src alt></a> pattern.
var htmlBadgeRegex = regexp.MustCompile(`<a\s+href="([^"]+)"[^>]*>\s*<img\s+src="([^"]+)"(?:\s+alt="([^"]*)")?[^>]*>\s*</a>`)

// extractBadges parses README content and returns every image found,
// linked or not. Relocated badges are often embedded without a link.
func extractBadges(content []byte) []models.Badge {
	var badges []models.Badge

	doc := goldmark.New().Parser().Parse(text.NewReader(content))
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		img, ok := n.(*ast.Image)
		if !ok {
			return ast.WalkContinue, nil
		}
		badge := models.Badge{
			AltText:  string(img.Text(content)),
			ImageURL: string(img.Destination),
		}
		if link, ok := img.Parent().(*ast.Link); ok {
			badge.TargetURL = string(link.Destination)
		}
		normalizeBadge(&badge)
		badges = append(badges, badge)
		return ast.WalkContinue, nil
	})

	for _, match := range htmlBadgeRegex.FindAllSubmatch(content, -1) {
		badge := models.Badge{
			TargetURL: string(match[1]),
			ImageURL:  string(match[2]),
			AltText:   string(match[3]),
		}
		normalizeBadge(&badge)
		badges = append(badges, badge)
	}

	return badges
}

func normalizeBadge(b *models.Badge) {
	if u, err := url.Parse(b.ImageURL); err == nil {
		b.HostImage = u.Host
	}
	if u, err := url.Parse(b.TargetURL); err == nil {
		b.HostTarget = u.Host
	}
}

// referencesBadge reports whether any badge image points at expected,
// ignoring query strings and fragments used for cache busting.
func referencesBadge(badges []models.Badge, expected string) bool {
	want := stripQuery(expected)
	for _, b := range badges {
		if strings.EqualFold(stripQuery(b.ImageURL), want) {
			return true
		}
	}
	return false
}

func stripQuery(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		return raw[:i]
	}
	return raw
}
