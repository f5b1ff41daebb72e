package crawler

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// CatalogName is the sentinel filename of the table of contents page.
const CatalogName = "catalog"

// Site builds the URLs of a novel site.
type Site struct {
	BaseURL     string
	CatalogName string
}

func (s Site) catalogName() string {
	if s.CatalogName == "" {
		return CatalogName
	}
	return s.CatalogName
}

func (s Site) base() string {
	return strings.TrimRight(s.BaseURL, "/")
}

// CatalogURL returns the table of contents URL for a novel.
func (s Site) CatalogURL(novelID string) string {
	return fmt.Sprintf("%s/novel/%s/%s", s.base(), novelID, s.catalogName())
}

// ChapterURL returns the URL of a chapter within a novel's namespace.
func (s Site) ChapterURL(novelID, chapterFilename string) string {
	return fmt.Sprintf("%s/novel/%s/%s", s.base(), novelID, chapterFilename)
}

// IsCatalog reports whether a chapter filename names the catalog page.
func (s Site) IsCatalog(filename string) bool {
	return filename == s.catalogName()
}

// ResolveImageURL returns src unchanged when absolute and resolves it against
// the site base otherwise.
func (s Site) ResolveImageURL(src string) string {
	ref, err := url.Parse(src)
	if err != nil || ref.IsAbs() {
		return src
	}
	base, err := url.Parse(s.base() + "/")
	if err != nil {
		return src
	}
	return base.ResolveReference(ref).String()
}

// LastSegment returns the final slash-separated segment of a link.
func LastSegment(link string) string {
	if i := strings.LastIndex(link, "/"); i >= 0 {
		return link[i+1:]
	}
	return link
}

// ImageBasename returns the final path segment of an image URL without its query.
func ImageBasename(imageURL string) string {
	u, err := url.Parse(imageURL)
	if err != nil || u.Path == "" {
		return LastSegment(imageURL)
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		return LastSegment(imageURL)
	}
	return base
}

// ImageArtifactName qualifies an image basename with the chapter it came from.
func ImageArtifactName(chapterFilename, imageURL string) string {
	return chapterFilename + "_" + ImageBasename(imageURL)
}
