package crawler

import (
	"errors"
	"slices"
	"testing"
)

func TestExtractorHTML(t *testing.T) {
	t.Parallel()

	t.Run("normal references follow element order", func(t *testing.T) {
		t.Parallel()

		doc := `<html><head><link rel="stylesheet" href="s.css"></head>
<body background="bg.png">
<script src="a.js"></script>
<img src="i.png">
<video src="v.mp4"></video>
<audio src="a.mp3"></audio>
<embed src="e.swf">
<object data="o.swf" codebase="cb/"></object>
<iframe src="f.html"></iframe>
<img src="j.png">
</body></html>`

		res, err := NewExtractor().Extract([]byte(doc), "utf-8", "text/html")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		wantNormal := []string{"i.png", "j.png", "cb/", "o.swf", "s.css", "a.js", "bg.png", "a.mp3", "e.swf", "v.mp4"}
		if !slices.Equal(res.Normal, wantNormal) {
			t.Errorf("normal = %v, want %v", res.Normal, wantNormal)
		}
		if !slices.Equal(res.Frames, []string{"f.html"}) {
			t.Errorf("frames = %v, want [f.html]", res.Frames)
		}
	})

	t.Run("inline images are excluded", func(t *testing.T) {
		t.Parallel()

		doc := `<html><body background="data:image/png;base64,AAAA">
<img src="data:image/gif;base64,R0lG">
<img src="DATA:IMAGE/png;base64,AAAA">
<object data="data:image/svg+xml,abc"></object>
<command icon="data:image/png;base64,AAAA"></command>
<img src="real.png">
</body></html>`

		res, err := NewExtractor().Extract([]byte(doc), "utf-8", "text/html")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(res.Normal, []string{"real.png"}) {
			t.Errorf("normal = %v, want [real.png]", res.Normal)
		}
	})

	t.Run("inline data on other elements is kept", func(t *testing.T) {
		t.Parallel()

		doc := `<html><body><embed src="data:image/png;base64,AAAA"></body></html>`

		res, err := NewExtractor().Extract([]byte(doc), "utf-8", "text/html")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Normal) != 1 {
			t.Errorf("expected embed data reference to be kept, got %v", res.Normal)
		}
	})

	t.Run("dns-prefetch links are excluded", func(t *testing.T) {
		t.Parallel()

		doc := `<html><head>
<link rel="dns-prefetch" href="//cdn.example.org">
<link rel="DNS-Prefetch" href="//other.example.org">
<link rel="icon" href="/favicon.ico">
</head><body></body></html>`

		res, err := NewExtractor().Extract([]byte(doc), "utf-8", "text/html")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(res.Normal, []string{"/favicon.ico"}) {
			t.Errorf("normal = %v, want [/favicon.ico]", res.Normal)
		}
	})

	t.Run("frameset frames are normal references", func(t *testing.T) {
		t.Parallel()

		doc := `<html><frameset cols="50%,50%"><frame src="left.html"><frame src="right.html"></frameset></html>`

		res, err := NewExtractor().Extract([]byte(doc), "utf-8", "text/html")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(res.Normal, []string{"left.html", "right.html"}) {
			t.Errorf("normal = %v, want [left.html right.html]", res.Normal)
		}
		if len(res.Frames) != 0 {
			t.Errorf("expected no frames, got %v", res.Frames)
		}
	})

	t.Run("empty and missing attributes are skipped", func(t *testing.T) {
		t.Parallel()

		doc := `<html><body><img><img src=""><img src="  "><script>var x;</script><iframe></iframe></body></html>`

		res, err := NewExtractor().Extract([]byte(doc), "utf-8", "text/html")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Normal) != 0 || len(res.Frames) != 0 {
			t.Errorf("expected no references, got normal=%v frames=%v", res.Normal, res.Frames)
		}
	})

	t.Run("content is decoded from the given charset", func(t *testing.T) {
		t.Parallel()

		// "café.png" in ISO-8859-1.
		doc := []byte("<html><body><img src=\"caf\xe9.png\"></body></html>")

		res, err := NewExtractor().Extract(doc, "iso-8859-1", "text/html")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(res.Normal, []string{"café.png"}) {
			t.Errorf("normal = %q, want [café.png]", res.Normal)
		}
	})

	t.Run("unknown charset falls back to utf-8", func(t *testing.T) {
		t.Parallel()

		res, err := NewExtractor().Extract([]byte(`<img src="a.png">`), "x-no-such-charset", "text/html")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(res.Normal, []string{"a.png"}) {
			t.Errorf("normal = %v, want [a.png]", res.Normal)
		}
	})

	t.Run("empty document has no references", func(t *testing.T) {
		t.Parallel()

		res, err := NewExtractor().Extract([]byte{}, "utf-8", "text/html")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Normal) != 0 || len(res.Frames) != 0 {
			t.Errorf("expected no references, got %+v", res)
		}
	})
}

func TestExtractorCSS(t *testing.T) {
	t.Parallel()

	css := `@import "base.css";
@import url('print.css') print;
/* background: url(commented.png); */
body { background: url(bg.png) no-repeat; }
.a { background-image: url( "quoted.png" ); }
.b { background-image: url(data:image/png;base64,AAAA); }
@font-face { src: url('font.woff2') format("woff2"); }`

	res, err := NewExtractor().Extract([]byte(css), "utf-8", "text/css")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"base.css", "print.css", "bg.png", "quoted.png", "font.woff2"}
	if !slices.Equal(res.Normal, want) {
		t.Errorf("normal = %v, want %v", res.Normal, want)
	}
	if len(res.Frames) != 0 {
		t.Errorf("stylesheets have no frames, got %v", res.Frames)
	}
}

func TestExtractorNoContent(t *testing.T) {
	t.Parallel()

	_, err := NewExtractor().Extract(nil, "utf-8", "text/html")
	if !errors.Is(err, ErrNoContentSet) {
		t.Errorf("expected ErrNoContentSet, got %v", err)
	}
}
