// Package extract implements crawler.Extractor with goquery selectors and a
// regular-expression scan for the next-chapter pointer.
package extract

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/JakeFAU/novel-crawler/internal/crawler"
)

// Default rules matching the linovelib page layout.
const (
	DefaultCatalogSelector  = "a.chapter-li-a"
	DefaultImageSelector    = "div.divimage img"
	DefaultTitleSelector    = "h3"
	DefaultSubTitleSelector = "h1"
	DefaultNextPattern      = `url_next:'([^']+)'`
)

// Rules names the structural locations the extractor reads.
type Rules struct {
	CatalogSelector  string `mapstructure:"catalog_selector"`
	ImageSelector    string `mapstructure:"image_selector"`
	TitleSelector    string `mapstructure:"title_selector"`
	SubTitleSelector string `mapstructure:"sub_title_selector"`
	// NextPattern must contain one capture group holding the next-chapter link.
	NextPattern string `mapstructure:"next_pattern"`
}

// DefaultRules returns the rules for the default site.
func DefaultRules() Rules {
	return Rules{
		CatalogSelector:  DefaultCatalogSelector,
		ImageSelector:    DefaultImageSelector,
		TitleSelector:    DefaultTitleSelector,
		SubTitleSelector: DefaultSubTitleSelector,
		NextPattern:      DefaultNextPattern,
	}
}

// Extractor reads crawl facts from catalog and chapter documents.
type Extractor struct {
	rules Rules
	next  *regexp.Regexp
}

// New compiles rules into an Extractor. Empty fields take their defaults.
func New(rules Rules) (*Extractor, error) {
	def := DefaultRules()
	if rules.CatalogSelector == "" {
		rules.CatalogSelector = def.CatalogSelector
	}
	if rules.ImageSelector == "" {
		rules.ImageSelector = def.ImageSelector
	}
	if rules.TitleSelector == "" {
		rules.TitleSelector = def.TitleSelector
	}
	if rules.SubTitleSelector == "" {
		rules.SubTitleSelector = def.SubTitleSelector
	}
	if rules.NextPattern == "" {
		rules.NextPattern = def.NextPattern
	}
	for _, sel := range []string{
		rules.CatalogSelector, rules.ImageSelector, rules.TitleSelector, rules.SubTitleSelector,
	} {
		if _, err := cascadia.Compile(sel); err != nil {
			return nil, fmt.Errorf("compile selector %q: %w", sel, err)
		}
	}
	next, err := regexp.Compile(rules.NextPattern)
	if err != nil {
		return nil, fmt.Errorf("compile next pattern: %w", err)
	}
	if next.NumSubexp() < 1 {
		return nil, fmt.Errorf("next pattern %q needs a capture group", rules.NextPattern)
	}
	return &Extractor{rules: rules, next: next}, nil
}

// FirstChapter returns the link target of the first chapter-list anchor.
func (x *Extractor) FirstChapter(body []byte) (string, error) {
	doc, err := parse(body)
	if err != nil {
		return "", err
	}
	href, ok := doc.Find(x.rules.CatalogSelector).First().Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return "", &crawler.ExtractionError{Rule: "first chapter link " + x.rules.CatalogSelector}
	}
	return href, nil
}

// Chapter extracts titles, image sources and next links. Both titles are
// required; images and next links may be empty.
func (x *Extractor) Chapter(body []byte) (crawler.ChapterPage, error) {
	doc, err := parse(body)
	if err != nil {
		return crawler.ChapterPage{}, err
	}
	title, err := x.requiredText(doc, x.rules.TitleSelector, "chapter title")
	if err != nil {
		return crawler.ChapterPage{}, err
	}
	subTitle, err := x.requiredText(doc, x.rules.SubTitleSelector, "sub-chapter title")
	if err != nil {
		return crawler.ChapterPage{}, err
	}
	return crawler.ChapterPage{
		Title:     title,
		SubTitle:  subTitle,
		Images:    x.Images(doc),
		NextLinks: x.NextLinks(body),
	}, nil
}

// Images returns every non-empty image source inside the image container, in
// document order.
func (x *Extractor) Images(doc *goquery.Document) []string {
	var sources []string
	doc.Find(x.rules.ImageSelector).Each(func(_ int, s *goquery.Selection) {
		if src := strings.TrimSpace(s.AttrOr("src", "")); src != "" {
			sources = append(sources, src)
		}
	})
	return sources
}

// NextLinks scans the raw page text for next-chapter pointer literals. The
// pointer lives in an inline script, so the DOM is not consulted.
func (x *Extractor) NextLinks(body []byte) []string {
	matches := x.next.FindAllSubmatch(body, -1)
	links := make([]string, 0, len(matches))
	for _, m := range matches {
		links = append(links, string(m[1]))
	}
	return links
}

func (x *Extractor) requiredText(doc *goquery.Document, selector, rule string) (string, error) {
	sel := doc.Find(selector).First()
	text := strings.TrimSpace(sel.Text())
	if sel.Length() == 0 || text == "" {
		return "", &crawler.ExtractionError{Rule: rule + " " + selector}
	}
	return text, nil
}

func parse(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}
