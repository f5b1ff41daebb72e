package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/novel-crawler/internal/crawler"
)

const chapterHTML = `<html><head><script>
var ReadParams={url_previous:'/novel/123/455.html',url_next:'/novel/123/catalog',page:1};
</script></head><body>
<h3>Volume 1</h3>
<h1>Chapter 1 <small>Prologue</small></h1>
<div class="divimage"><img src="http://cdn/x.jpg"></div>
<div class="divimage"><img src=""><img src="http://cdn/x.jpg"></div>
<img src="http://cdn/outside.jpg">
</body></html>`

func newExtractor(t *testing.T) *Extractor {
	t.Helper()
	x, err := New(Rules{})
	require.NoError(t, err)
	return x
}

func TestFirstChapter(t *testing.T) {
	t.Parallel()
	x := newExtractor(t)

	t.Run("first anchor wins", func(t *testing.T) {
		body := []byte(`<ul>
<li><a class="chapter-li-a" href="/novel/123/456.html">1</a></li>
<li><a class="chapter-li-a" href="/novel/123/457.html">2</a></li>
</ul>`)
		link, err := x.FirstChapter(body)
		require.NoError(t, err)
		assert.Equal(t, "/novel/123/456.html", link)
		assert.Equal(t, "456.html", crawler.LastSegment(link))
	})

	t.Run("missing anchor", func(t *testing.T) {
		_, err := x.FirstChapter([]byte(`<a href="/novel/123/456.html">1</a>`))
		require.Error(t, err)
		assert.True(t, errors.Is(err, crawler.ErrExtraction))
	})

	t.Run("anchor without href", func(t *testing.T) {
		_, err := x.FirstChapter([]byte(`<a class="chapter-li-a">1</a>`))
		assert.ErrorIs(t, err, crawler.ErrExtraction)
	})
}

func TestChapter(t *testing.T) {
	t.Parallel()
	x := newExtractor(t)

	page, err := x.Chapter([]byte(chapterHTML))
	require.NoError(t, err)
	assert.Equal(t, "Volume 1", page.Title)
	assert.Equal(t, "Chapter 1 Prologue", page.SubTitle)
	assert.Equal(t, []string{"http://cdn/x.jpg", "http://cdn/x.jpg"}, page.Images)
	assert.Equal(t, []string{"/novel/123/catalog"}, page.NextLinks)
}

func TestChapterOptionalParts(t *testing.T) {
	t.Parallel()
	x := newExtractor(t)

	page, err := x.Chapter([]byte(`<h3>V</h3><h1>C</h1><p>no images here</p>`))
	require.NoError(t, err)
	assert.Empty(t, page.Images)
	assert.Empty(t, page.NextLinks)
}

func TestChapterRequiresTitles(t *testing.T) {
	t.Parallel()
	x := newExtractor(t)

	_, err := x.Chapter([]byte(`<h1>Only a sub title</h1>`))
	assert.ErrorIs(t, err, crawler.ErrExtraction)

	_, err = x.Chapter([]byte(`<h3>Only a title</h3>`))
	assert.ErrorIs(t, err, crawler.ErrExtraction)

	_, err = x.Chapter([]byte(`<h3>  </h3><h1>C</h1>`))
	assert.ErrorIs(t, err, crawler.ErrExtraction)
}

func TestNextLinksMultipleMatches(t *testing.T) {
	t.Parallel()
	x := newExtractor(t)

	body := []byte(`url_next:'/novel/123/789.html' ... url_next:'/novel/123/790.html'`)
	assert.Equal(t, []string{"/novel/123/789.html", "/novel/123/790.html"}, x.NextLinks(body))
}

func TestNewRejectsBadRules(t *testing.T) {
	t.Parallel()

	_, err := New(Rules{NextPattern: "url_next:'[^']+'"})
	assert.Error(t, err, "pattern without capture group")

	_, err = New(Rules{NextPattern: "("})
	assert.Error(t, err, "invalid regexp")

	_, err = New(Rules{ImageSelector: "div[["})
	assert.Error(t, err, "invalid selector")
}

func TestCustomRules(t *testing.T) {
	t.Parallel()

	x, err := New(Rules{
		CatalogSelector: "li.first a",
		ImageSelector:   "figure img",
		NextPattern:     `"next":"([^"]+)"`,
	})
	require.NoError(t, err)

	link, err := x.FirstChapter([]byte(`<li class="first"><a href="/n/1/a.html">a</a></li>`))
	require.NoError(t, err)
	assert.Equal(t, "/n/1/a.html", link)

	page, err := x.Chapter([]byte(`<h3>T</h3><h1>S</h1><figure><img src="/i/1.png"></figure>{"next":"/n/1/b.html"}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"/i/1.png"}, page.Images)
	assert.Equal(t, []string{"/n/1/b.html"}, page.NextLinks)
}
