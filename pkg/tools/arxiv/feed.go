package arxiv

import (
	"regexp"
	"strings"
)

// feed is the subset of the arXiv Atom schema the tool consumes.
type feed struct {
	Entries []entry `xml:"entry"`
}

type entry struct {
	ID        string   `xml:"id"`
	Title     string   `xml:"title"`
	Summary   string   `xml:"summary"`
	Published string   `xml:"published"`
	Authors   []author `xml:"author"`
	Links     []link   `xml:"link"`
}

type author struct {
	Name string `xml:"name"`
}

type link struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Title string `xml:"title,attr"`
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func (e entry) cleanTitle() string {
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(e.Title), " ")
}

// shortID strips the http://arxiv.org/abs/ prefix.
func (e entry) shortID() string {
	if idx := strings.LastIndex(e.ID, "/abs/"); idx >= 0 {
		return e.ID[idx+len("/abs/"):]
	}
	return e.ID
}

func (e entry) pdfURL() string {
	for _, l := range e.Links {
		if l.Title == "pdf" {
			return l.Href
		}
	}
	return ""
}

func (e entry) toMap() map[string]any {
	authors := make([]any, 0, len(e.Authors))
	for _, a := range e.Authors {
		authors = append(authors, a.Name)
	}
	return map[string]any{
		"id":        e.shortID(),
		"title":     e.cleanTitle(),
		"summary":   whitespaceRun.ReplaceAllString(strings.TrimSpace(e.Summary), " "),
		"published": e.Published,
		"authors":   authors,
		"pdf_url":   e.pdfURL(),
	}
}

var tokenSplit = regexp.MustCompile(`[\s,;]+`)

func tokenize(text string) []string {
	raw := tokenSplit.Split(strings.ToLower(text), -1)
	var tokens []string
	seen := make(map[string]bool, len(raw))
	for _, token := range raw {
		token = sanitizeToken(token)
		if token != "" && !seen[token] {
			seen[token] = true
			tokens = append(tokens, token)
		}
	}
	return tokens
}

var (
	tokenJunk = regexp.MustCompile(`[^0-9a-z_:+\-]`)
	wordJunk  = regexp.MustCompile(`[^0-9A-Za-z_:+\-]`)
)

func sanitizeToken(token string) string {
	return tokenJunk.ReplaceAllString(token, "")
}

func escapePhrase(text string) string {
	words := whitespaceRun.Split(text, -1)
	kept := make([]string, 0, len(words))
	for _, word := range words {
		if cleaned := wordJunk.ReplaceAllString(word, ""); cleaned != "" {
			kept = append(kept, cleaned)
		}
	}
	return strings.Join(kept, " ")
}
