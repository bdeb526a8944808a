package extractor

import (
	"strings"

	"golang.org/x/net/html"
)

// known field labels in bank notification tables, lowercased.
var (
	amountLabels = map[string]bool{
		"amount": true, "amount received": true, "credit amount": true,
		"deposit amount": true, "transaction amount": true, "value": true,
	}
	senderLabels = map[string]bool{
		"sender": true, "sender name": true, "from": true, "payer": true,
		"remitter": true, "account name": true,
	}
	accountLabels = map[string]bool{
		"account": true, "account number": true, "to account": true,
		"credited account": true, "beneficiary account": true,
	}
	descriptionLabels = map[string]bool{
		"description": true, "narration": true, "remarks": true, "details": true,
	}
)

// extractFromHTMLTable scans table rows for label/value cell pairs matching
// the known field labels. It succeeds only when an amount cell parses.
func extractFromHTMLTable(htmlBody string) (Record, bool) {
	if strings.TrimSpace(htmlBody) == "" {
		return Record{}, false
	}
	doc, err := html.Parse(strings.NewReader(htmlBody))
	if err != nil {
		return Record{}, false
	}

	rec := Record{Method: MethodHTMLTable}
	for _, row := range tableRows(doc) {
		if len(row) < 2 {
			continue
		}
		label := normalizeLabel(row[0])
		value := strings.TrimSpace(row[1])
		switch {
		case amountLabels[label] && rec.Amount == nil:
			rec.Amount = ParseAmount(value)
		case senderLabels[label] && rec.SenderName == "":
			rec.SenderName = value
		case accountLabels[label] && rec.AccountNumber == "":
			if acct := findAccountNumber(value); acct != "" {
				rec.AccountNumber = acct
			}
		case descriptionLabels[label] && rec.PayerAccountNumber == "":
			rec.PayerAccountNumber = ParsePayerAccount(value)
		}
	}

	if rec.Amount == nil {
		return Record{}, false
	}
	return rec, true
}

// tableRows walks the parse tree and returns the text of each <tr>'s cells.
func tableRows(doc *html.Node) [][]string {
	var rows [][]string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var cells []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				collectCells(c, &cells)
			}
			if len(cells) > 0 {
				rows = append(rows, cells)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return rows
}

func collectCells(n *html.Node, cells *[]string) {
	if n.Type == html.ElementNode && (n.Data == "td" || n.Data == "th") {
		*cells = append(*cells, nodeText(n))
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectCells(c, cells)
	}
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimRight(s, ":")
	return strings.Join(strings.Fields(s), " ")
}

// renderHTMLText renders an HTML body to plain text, one line per block
// element, so the generic text regexes can run over it.
func renderHTMLText(htmlBody string) string {
	if strings.TrimSpace(htmlBody) == "" {
		return ""
	}
	doc, err := html.Parse(strings.NewReader(htmlBody))
	if err != nil {
		return ""
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style":
				return
			case "br", "p", "div", "tr", "li", "h1", "h2", "h3", "h4", "table":
				b.WriteString("\n")
			case "td", "th":
				b.WriteString(" ")
			}
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	lines := strings.Split(b.String(), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
