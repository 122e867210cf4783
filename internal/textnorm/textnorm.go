// Package textnorm flattens email bodies to plain text and canonicalizes food
// names for matching.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	tagRe         = regexp.MustCompile(`(?i)</?(?:html|head|body|div|p|br|hr|table|tbody|thead|tr|td|th|span|a|img|meta|style|center|font|b|i|u|strong|em|h[1-6]|ul|ol|li|section)\b[^<>]*>|<!doctype`)
	inlineSpaceRe = regexp.MustCompile(`\s+`)
	spaceRunRe    = regexp.MustCompile(` {2,}`)
	tabRunRe      = regexp.MustCompile(`[ \t]*\t[ \t]*`)
	quotePrefixRe = regexp.MustCompile(`^(?:>\s?)+`)
	trademarkRe   = regexp.MustCompile(`[®™©]`)
	parenRe       = regexp.MustCompile(`\s*\([^)]*\)\s*`)
	bracketRe     = regexp.MustCompile(`\s*\[[^\]]*\]\s*`)
	symbolRe      = regexp.MustCompile(`[^a-z0-9 '&\-]+`)
)

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Tr: true, atom.Li: true, atom.Ul: true, atom.Ol: true,
	atom.Table: true, atom.Tbody: true, atom.Thead: true, atom.Tfoot: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Section: true, atom.Article: true, atom.Header: true, atom.Footer: true,
	atom.Blockquote: true, atom.Hr: true, atom.Center: true,
}

var skippedElements = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Head: true, atom.Noscript: true, atom.Template: true,
}

// LooksLikeHTML reports whether body contains markup.
func LooksLikeHTML(body string) bool {
	return tagRe.MatchString(body)
}

// HTMLToText renders an HTML (or plain-text) email body as newline-separated
// text. Block elements start new lines, table cells are tab-separated and
// blank lines are dropped.
func HTMLToText(body string) string {
	if !LooksLikeHTML(body) {
		return cleanLines(body)
	}
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return cleanLines(body)
	}
	var b strings.Builder
	render(doc, &b)
	return cleanLines(b.String())
}

func render(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(inlineSpaceRe.ReplaceAllString(n.Data, " "))
		return
	case html.ElementNode:
		if skippedElements[n.DataAtom] {
			return
		}
		switch {
		case n.DataAtom == atom.Br:
			b.WriteByte('\n')
			return
		case n.DataAtom == atom.Td || n.DataAtom == atom.Th:
			b.WriteByte('\t')
		case blockElements[n.DataAtom]:
			b.WriteByte('\n')
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		render(c, b)
	}
	if n.Type == html.ElementNode && blockElements[n.DataAtom] {
		b.WriteByte('\n')
	}
}

func cleanLines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.ReplaceAll(s, "\u200b", "")

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = quotePrefixRe.ReplaceAllString(line, "")
		line = tabRunRe.ReplaceAllString(line, "\t")
		line = spaceRunRe.ReplaceAllString(line, " ")
		line = strings.Trim(line, " \t")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// StripDiacritics removes combining marks after compatibility decomposition
// and drops any remaining non-ASCII runes.
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, out)
}

// NormalizeFoodName lowercases a food name and strips trademark symbols,
// diacritics, parenthetical or bracketed decorations and extra whitespace.
func NormalizeFoodName(name string) string {
	name = trademarkRe.ReplaceAllString(name, "")
	name = strings.ReplaceAll(name, "\u2019", "'")
	name = StripDiacritics(name)
	name = strings.ToLower(name)
	name = parenRe.ReplaceAllString(name, " ")
	name = bracketRe.ReplaceAllString(name, " ")
	name = symbolRe.ReplaceAllString(name, " ")
	return CollapseSpaces(name)
}

// NormalizeRestaurant canonicalizes a restaurant name for cache keys and
// brand matching.
func NormalizeRestaurant(name string) string {
	return NormalizeFoodName(name)
}

// StripPossessive turns "McDonald's" into "mcdonald" so that query variants
// like "mcdonalds big mac" can be built.
func StripPossessive(restaurant string) string {
	r := NormalizeRestaurant(restaurant)
	r = strings.TrimSuffix(r, "'s")
	return strings.ReplaceAll(r, "'", "")
}

// CollapseSpaces trims s and reduces internal whitespace runs to one space.
func CollapseSpaces(s string) string {
	return strings.TrimSpace(inlineSpaceRe.ReplaceAllString(s, " "))
}
