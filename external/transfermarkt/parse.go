package transfermarkt

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/riskibarqy/player-risk-alerts/internal/domain/roster"
	"github.com/riskibarqy/player-risk-alerts/internal/usecase"
	"golang.org/x/net/html"
)

var (
	clubHrefRegex   = regexp.MustCompile(`^/([^/]+)/startseite/verein/(\d+)`)
	playerHrefRegex = regexp.MustCompile(`/profil/spieler/(\d+)`)
)

func parseSearchResults(raw []byte) ([]usecase.TeamCandidate, error) {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	seen := make(map[string]struct{})
	out := make([]usecase.TeamCandidate, 0)
	walk(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != "a" {
			return true
		}
		m := clubHrefRegex.FindStringSubmatch(attr(n, "href"))
		if m == nil {
			return true
		}
		slug, id := m[1], m[2]
		if _, dup := seen[id]; dup {
			return false
		}
		name := collapse(textContent(n))
		if name == "" {
			// icon links carry the club name in title only
			name = collapse(attr(n, "title"))
		}
		if name == "" {
			return false
		}
		seen[id] = struct{}{}

		context := ""
		if row := ancestor(n, "tr"); row != nil {
			context = collapse(textContent(row))
		}
		out = append(out, usecase.TeamCandidate{ExternalID: id, Slug: slug, Name: name, Context: context})
		return false
	})
	return out, nil
}

// parseSquad reads table.items rows (tr.odd, tr.even). A page without the squad table is a
// parse failure; a table without rows is an empty squad.
func parseSquad(raw []byte) ([]roster.ScrapedPlayer, error) {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	table := find(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "table" && hasClass(n, "items")
	})
	if table == nil {
		return nil, fmt.Errorf("squad table not found")
	}

	out := make([]roster.ScrapedPlayer, 0, 32)
	for _, row := range directRows(table) {
		if !hasClass(row, "odd") && !hasClass(row, "even") {
			continue
		}
		cell := find(row, func(n *html.Node) bool {
			return n.Type == html.ElementNode && n.Data == "td" && hasClass(n, "hauptlink")
		})
		if cell == nil {
			continue
		}
		link := find(cell, func(n *html.Node) bool { return n.Type == html.ElementNode && n.Data == "a" })
		if link == nil {
			continue
		}
		name := collapse(textContent(link))
		if name == "" {
			continue
		}

		player := roster.ScrapedPlayer{Name: name, Position: inlinePosition(row)}
		if m := playerHrefRegex.FindStringSubmatch(attr(link, "href")); m != nil {
			player.ExternalID = m[1]
		}
		out = append(out, player)
	}
	return out, nil
}

// inlinePosition is the last row of the player's inline-table, e.g. "Centre-Forward".
func inlinePosition(row *html.Node) string {
	inline := find(row, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "table" && hasClass(n, "inline-table")
	})
	if inline == nil {
		return ""
	}
	var last *html.Node
	walk(inline, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "tr" {
			last = n
		}
		return true
	})
	if last == nil {
		return ""
	}
	return collapse(textContent(last))
}

// directRows returns the tr children of the table's tbody sections, skipping nested tables.
func directRows(table *html.Node) []*html.Node {
	var rows []*html.Node
	for section := table.FirstChild; section != nil; section = section.NextSibling {
		if section.Type != html.ElementNode || section.Data != "tbody" {
			continue
		}
		for tr := section.FirstChild; tr != nil; tr = tr.NextSibling {
			if tr.Type == html.ElementNode && tr.Data == "tr" {
				rows = append(rows, tr)
			}
		}
	}
	return rows
}

// walk visits n depth-first; returning false skips the node's children.
func walk(n *html.Node, visit func(*html.Node) bool) {
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func find(root *html.Node, match func(*html.Node) bool) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if n != root && match(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

func ancestor(n *html.Node, tag string) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == tag {
			return p
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteByte(' ')
		}
		return true
	})
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
