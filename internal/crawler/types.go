package crawler

import (
	"fmt"
	"net/http"
	"time"
)

// Kind identifies the variant carried by a WorkItem.
type Kind int

// Work item kinds.
const (
	KindCatalog Kind = iota + 1
	KindChapter
	KindImage
	KindCompletion
)

// String returns the lowercase label used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindCatalog:
		return "catalog"
	case KindChapter:
		return "chapter"
	case KindImage:
		return "image"
	case KindCompletion:
		return "completion"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// WorkItem is one unit of crawl work. Which fields are meaningful depends on Kind:
// catalog items carry NovelID, chapter items add ChapterFilename, image items add
// ImageURL, and the completion sentinel carries nothing.
type WorkItem struct {
	Kind            Kind
	NovelID         string
	ChapterFilename string
	ImageURL        string
}

// CatalogFetch starts the crawl of a novel.
func CatalogFetch(novelID string) WorkItem {
	return WorkItem{Kind: KindCatalog, NovelID: novelID}
}

// ChapterFetch fetches and processes a single chapter page.
func ChapterFetch(novelID, chapterFilename string) WorkItem {
	return WorkItem{Kind: KindChapter, NovelID: novelID, ChapterFilename: chapterFilename}
}

// ImageFetch downloads one image referenced by a chapter.
func ImageFetch(novelID, chapterFilename, imageURL string) WorkItem {
	return WorkItem{Kind: KindImage, NovelID: novelID, ChapterFilename: chapterFilename, ImageURL: imageURL}
}

// Completion is the sentinel that ends the crawl loop.
func Completion() WorkItem {
	return WorkItem{Kind: KindCompletion}
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// ChapterPage holds the facts extracted from a chapter document.
type ChapterPage struct {
	Title    string
	SubTitle string
	// Images lists every non-empty image source in document order.
	Images []string
	// NextLinks lists the raw next-chapter pointers found in the page text.
	NextLinks []string
}

// Stats summarizes a crawl run.
type Stats struct {
	Catalogs  int
	Chapters  int
	Images    int
	Bytes     int64
	Discarded int
	Duration  time.Duration
}
