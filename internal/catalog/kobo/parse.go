package kobo

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

var pricePattern = regexp.MustCompile(`([£$€])\s*(\d+(?:[.,]\d{1,2})?)`)

var currencySymbols = map[string]string{
	"£": "GBP",
	"$": "USD",
	"€": "EUR",
}

// card is one search hit as it appears on the page.
type card struct {
	Title    string
	Authors  []string
	Href     string
	Price    float64
	Currency string
	Artwork  string
	Synopsis string
}

func parseCards(page string) ([]card, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, err
	}

	var cards []card
	for _, node := range findAll(doc, isResultCard) {
		c := extractCard(node)
		if c.Title != "" {
			cards = append(cards, c)
		}
	}
	return cards, nil
}

func isResultCard(n *html.Node) bool {
	return attr(n, "data-testid") == "search-result-widget" || hasClass(n, "book-tile")
}

func extractCard(n *html.Node) card {
	var c card

	if title := findFirst(n, func(n *html.Node) bool {
		return attr(n, "data-testid") == "title" || hasClass(n, "title")
	}); title != nil {
		c.Title = getTextContent(title)
		if link := findFirst(title, isTag("a")); link != nil {
			c.Href = attr(link, "href")
		}
	}
	if c.Href == "" {
		if link := findFirst(n, isTag("a")); link != nil {
			c.Href = attr(link, "href")
		}
	}

	for _, a := range findAll(n, func(n *html.Node) bool {
		return attr(n, "data-testid") == "author" || hasClass(n, "contributor-name")
	}) {
		if name := getTextContent(a); name != "" {
			c.Authors = append(c.Authors, name)
		}
	}

	if price := findFirst(n, func(n *html.Node) bool {
		return attr(n, "data-testid") == "price" || hasClass(n, "price")
	}); price != nil {
		c.Price, c.Currency = parsePrice(getTextContent(price))
	}

	if img := findFirst(n, isTag("img")); img != nil {
		c.Artwork = attr(img, "src")
	}
	if synopsis := findFirst(n, func(n *html.Node) bool {
		return attr(n, "data-testid") == "synopsis" || hasClass(n, "synopsis")
	}); synopsis != nil {
		c.Synopsis = getTextContent(synopsis)
	}

	return c
}

// parsePrice reads amounts like "£7.99" or "€ 4,99". Unpriced text yields 0.
func parsePrice(text string) (float64, string) {
	m := pricePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, ""
	}
	amount, err := strconv.ParseFloat(strings.Replace(m[2], ",", ".", 1), 64)
	if err != nil {
		return 0, ""
	}
	return amount, currencySymbols[m[1]]
}

func isTag(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == tag
	}
}

func findAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var found []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			found = append(found, n)
			// cards do not nest
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return found
}

func findFirst(root *html.Node, match func(*html.Node) bool) *html.Node {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && match(c) {
			return c
		}
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	if n.Type != html.ElementNode {
		return ""
	}
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

func getTextContent(n *html.Node) string {
	var text strings.Builder
	var extractText func(*html.Node)
	extractText = func(node *html.Node) {
		if node.Type == html.TextNode {
			text.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			extractText(c)
		}
	}
	extractText(n)
	return strings.Join(strings.Fields(text.String()), " ")
}
