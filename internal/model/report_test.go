package model

import (
	"encoding/json"
	"strings"
	"testing"
)

// buildTree returns:
//
//	root (html, 100)
//	  a.png (10)
//	  frame (html, 50)
//	    b.js (5)
func buildTree() *ReportNode {
	root := NewReportNode("http://example.com/", MimeTypeHTML, 100)
	root.AddChild(NewReportNode("http://example.com/a.png", "image/png", 10))
	frame := NewReportNode("http://example.com/frame.html", MimeTypeHTML, 50)
	frame.AddChild(NewReportNode("http://example.com/b.js", "application/javascript", 5))
	root.AddChild(frame)
	return root
}

func TestIsExpandable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mimeType string
		want     bool
	}{
		{"text/html", true},
		{"text/css", true},
		{"text/plain", false},
		{"image/png", false},
		{"application/xhtml+xml", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.mimeType, func(t *testing.T) {
			t.Parallel()
			if got := IsExpandable(tt.mimeType); got != tt.want {
				t.Errorf("IsExpandable(%q) = %v, want %v", tt.mimeType, got, tt.want)
			}
		})
	}
}

func TestNewReportNode(t *testing.T) {
	t.Parallel()

	n := NewReportNode("http://example.com/x.css", MimeTypeCSS, 42)
	if n.Children == nil {
		t.Fatal("expected non-nil children slice")
	}
	if len(n.Children) != 0 {
		t.Errorf("expected no children, got %d", len(n.Children))
	}
	if n.Failed() {
		t.Error("new node should not be marked failed")
	}

	// Children must marshal as [] rather than null.
	data, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"children":[]`) {
		t.Errorf("expected empty children array in JSON, got %s", data)
	}
}

func TestReportNodeWalk(t *testing.T) {
	t.Parallel()

	root := buildTree()

	var urls []string
	var depths []int
	root.Walk(func(n *ReportNode, depth int) {
		urls = append(urls, n.URL)
		depths = append(depths, depth)
	})

	wantURLs := []string{
		"http://example.com/",
		"http://example.com/a.png",
		"http://example.com/frame.html",
		"http://example.com/b.js",
	}
	wantDepths := []int{0, 1, 1, 2}

	if len(urls) != len(wantURLs) {
		t.Fatalf("expected %d visits, got %d", len(wantURLs), len(urls))
	}
	for i := range wantURLs {
		if urls[i] != wantURLs[i] {
			t.Errorf("visit %d: got %q, want %q", i, urls[i], wantURLs[i])
		}
		if depths[i] != wantDepths[i] {
			t.Errorf("visit %d: got depth %d, want %d", i, depths[i], wantDepths[i])
		}
	}
}

func TestCrawlResultTotals(t *testing.T) {
	t.Parallel()

	t.Run("sums every node", func(t *testing.T) {
		t.Parallel()

		r := NewCrawlResult("http://example.com/")
		r.Root = buildTree()

		if got := r.TotalBytes(); got != 165 {
			t.Errorf("TotalBytes() = %d, want 165", got)
		}
		if got := r.NodeCount(); got != 4 {
			t.Errorf("NodeCount() = %d, want 4", got)
		}
	})

	t.Run("counts failed nodes", func(t *testing.T) {
		t.Parallel()

		r := NewCrawlResult("http://example.com/")
		r.Root = buildTree()
		failed := NewReportNode("http://example.com/missing.png", MimeTypeUnknown, 0)
		failed.StatusCode = 404
		failed.Error = "unexpected status 404"
		r.Root.AddChild(failed)

		if got := r.FailedCount(); got != 1 {
			t.Errorf("FailedCount() = %d, want 1", got)
		}
	})

	t.Run("nil root", func(t *testing.T) {
		t.Parallel()

		r := NewCrawlResult("http://example.com/")
		if r.TotalBytes() != 0 || r.NodeCount() != 0 || r.FailedCount() != 0 {
			t.Error("expected zero totals for an empty result")
		}
	})
}

func TestCrawlResultBytesByMimeType(t *testing.T) {
	t.Parallel()

	r := NewCrawlResult("http://example.com/")
	if len(r.BytesByMimeType()) != 0 {
		t.Error("expected empty totals without a root")
	}

	r.Root = buildTree()
	got := r.BytesByMimeType()

	want := map[string]int64{
		MimeTypeHTML:             150,
		"image/png":              10,
		"application/javascript": 5,
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for mime, size := range want {
		if got[mime] != size {
			t.Errorf("%s: got %d, want %d", mime, got[mime], size)
		}
	}
}

func TestCrawlResultSetContentHash(t *testing.T) {
	t.Parallel()

	t.Run("computes SHA3-256 of content", func(t *testing.T) {
		t.Parallel()

		r := NewCrawlResult("http://example.com/")
		r.SetContentHash([]byte("abc"))

		expected := "3a985da74fe225b2045c172d6bd390bd855f086e3e9d525b46bfe24511431532"
		if r.ContentHash != expected {
			t.Errorf("got %q, expected %q", r.ContentHash, expected)
		}
	})

	t.Run("empty content produces empty hash", func(t *testing.T) {
		t.Parallel()

		r := NewCrawlResult("http://example.com/")
		r.ContentHash = "stale"
		r.SetContentHash(nil)

		if r.ContentHash != "" {
			t.Errorf("expected empty hash, got %q", r.ContentHash)
		}
	})
}
