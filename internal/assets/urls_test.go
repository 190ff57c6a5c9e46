package assets

import (
	"reflect"
	"testing"

	"pressline/internal/stage"
)

func TestExtractURLs(t *testing.T) {
	p := stage.Payload{
		SourceURL: "https://news.example.com/posts/1",
		Body: `<p>Intro</p><img src="/img/hero.png"><picture><source srcset="https://cdn.example.com/a.webp 1x, https://cdn.example.com/a@2x.webp 2x"></picture>
<video poster="https://cdn.example.com/poster.jpg"></video>
Some markdown ![diagram](https://cdn.example.com/diagram.svg "Diagram") and ![dup](/img/hero.png)
<img src="data:image/png;base64,AAAA"><img src="ftp://example.com/x.png">`,
		Assets: []string{"https://cdn.example.com/diagram.svg", "https://cdn.example.com/extra.png#frag"},
	}
	got := ExtractURLs(p)
	want := []string{
		"https://news.example.com/img/hero.png",
		"https://cdn.example.com/a.webp",
		"https://cdn.example.com/a@2x.webp",
		"https://cdn.example.com/poster.jpg",
		"https://cdn.example.com/diagram.svg",
		"https://cdn.example.com/extra.png",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected urls:\n got %v\nwant %v", got, want)
	}
}

func TestExtractURLsDropsRelativeWithoutBase(t *testing.T) {
	got := ExtractURLs(stage.Payload{Body: "![x](img/a.png)", Assets: []string{"https://cdn.example.com/b.png"}})
	if len(got) != 1 || got[0] != "https://cdn.example.com/b.png" {
		t.Fatalf("unexpected urls %v", got)
	}
}
