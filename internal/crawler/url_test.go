package crawler

import "testing"

func TestSiteURLs(t *testing.T) {
	t.Parallel()

	site := Site{BaseURL: "https://w.linovelib.com/"}
	if got := site.CatalogURL("123"); got != "https://w.linovelib.com/novel/123/catalog" {
		t.Fatalf("unexpected catalog url %s", got)
	}
	if got := site.ChapterURL("123", "456.html"); got != "https://w.linovelib.com/novel/123/456.html" {
		t.Fatalf("unexpected chapter url %s", got)
	}
	if !site.IsCatalog("catalog") || site.IsCatalog("456.html") {
		t.Fatal("unexpected catalog sentinel match")
	}

	custom := Site{BaseURL: "https://example.com", CatalogName: "index"}
	if got := custom.CatalogURL("9"); got != "https://example.com/novel/9/index" {
		t.Fatalf("unexpected custom catalog url %s", got)
	}
	if custom.IsCatalog("catalog") {
		t.Fatal("custom site should only match its own sentinel")
	}
}

func TestResolveImageURL(t *testing.T) {
	t.Parallel()

	site := Site{BaseURL: "https://w.linovelib.com"}
	tests := map[string]string{
		"https://img.example.com/a/x.jpg": "https://img.example.com/a/x.jpg",
		"/files/article/image/x.jpg":      "https://w.linovelib.com/files/article/image/x.jpg",
		"//cdn.example.com/x.jpg":         "https://cdn.example.com/x.jpg",
	}
	for src, want := range tests {
		if got := site.ResolveImageURL(src); got != want {
			t.Errorf("ResolveImageURL(%q) = %q, want %q", src, got, want)
		}
	}
}

func TestLastSegment(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"/novel/123/456.html": "456.html",
		"/novel/123/catalog":  "catalog",
		"456.html":            "456.html",
		"/novel/123/":         "",
		"":                    "",
	}
	for link, want := range tests {
		if got := LastSegment(link); got != want {
			t.Errorf("LastSegment(%q) = %q, want %q", link, got, want)
		}
	}
}

func TestImageArtifactName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		chapter string
		url     string
		want    string
	}{
		{chapter: "456.html", url: "https://img.example.com/3/x.jpg", want: "456.html_x.jpg"},
		{chapter: "456.html", url: "/img/y.png?v=1", want: "456.html_y.png"},
		{chapter: "789.html", url: "z.webp", want: "789.html_z.webp"},
	}
	for _, tt := range tests {
		if got := ImageArtifactName(tt.chapter, tt.url); got != tt.want {
			t.Errorf("ImageArtifactName(%q, %q) = %q, want %q", tt.chapter, tt.url, got, tt.want)
		}
	}
}
