package crawler

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"

	"github.com/nao1215/pageweight/internal/model"
)

// Resources holds the raw references found in one document, in document order.
type Resources struct {
	// Frames are iframe sources. Only these are crawled recursively.
	Frames []string

	// Normal are all other external resources (images, scripts, stylesheets,
	// media, plugins). They are fetched once and never expanded.
	Normal []string
}

// tagAttr names an element and the attribute that holds its reference.
type tagAttr struct {
	tag  string
	attr string

	// skipInlineImages drops "data:image" references for this pair.
	skipInlineImages bool
}

// frameSource is the only element treated as a nested document.
var frameSource = tagAttr{tag: "iframe", attr: "src"}

// normalSources lists every element/attribute pair fetched as a leaf resource.
// The order here is the order of Resources.Normal.
var normalSources = []tagAttr{
	{tag: "img", attr: "src", skipInlineImages: true},
	{tag: "frame", attr: "src"},
	{tag: "object", attr: "codebase"},
	{tag: "object", attr: "data", skipInlineImages: true},
	{tag: "link", attr: "href"},
	{tag: "script", attr: "src"},
	{tag: "applet", attr: "codebase"},
	{tag: "body", attr: "background", skipInlineImages: true},
	{tag: "audio", attr: "src"},
	{tag: "command", attr: "icon", skipInlineImages: true},
	{tag: "embed", attr: "src"},
	{tag: "video", attr: "src"},
}

var (
	inlineImagePattern = regexp.MustCompile(`(?i)^data:image`)
	inlineDataPattern  = regexp.MustCompile(`(?i)^data:`)
	cssCommentPattern  = regexp.MustCompile(`(?s)/\*.*?\*/`)

	// cssReferencePattern matches url(...) in any quoting style and
	// @import with a bare string.
	cssReferencePattern = regexp.MustCompile(
		`(?i)url\(\s*(?:"([^"]*)"|'([^']*)'|([^)"'\s]*))\s*\)|@import\s+(?:"([^"]*)"|'([^']*)')`,
	)
)

// Extractor pulls resource references out of HTML and CSS documents.
// It is stateless and safe for concurrent use.
type Extractor struct{}

// NewExtractor creates an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the references found in content. The content is decoded
// from charsetLabel to UTF-8 first; unknown labels are treated as UTF-8.
// CSS documents (mimeType "text/css") yield only normal references; anything
// else is parsed as HTML.
func (e *Extractor) Extract(content []byte, charsetLabel, mimeType string) (*Resources, error) {
	if content == nil {
		return nil, ErrNoContentSet
	}

	reader := decode(content, charsetLabel)

	if strings.EqualFold(mimeType, model.MimeTypeCSS) {
		return extractCSS(reader)
	}
	return extractHTML(reader)
}

// decode wraps content in a reader that converts it to UTF-8.
func decode(content []byte, charsetLabel string) io.Reader {
	r := bytes.NewReader(content)

	enc, name := charset.Lookup(strings.TrimSpace(charsetLabel))
	if enc == nil || name == "utf-8" {
		return r
	}
	return transform.NewReader(r, enc.NewDecoder())
}

func extractHTML(r io.Reader) (*Resources, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	res := &Resources{
		Frames: make([]string, 0),
		Normal: make([]string, 0),
	}

	res.Frames = append(res.Frames, collect(doc, frameSource)...)
	for _, src := range normalSources {
		res.Normal = append(res.Normal, collect(doc, src)...)
	}

	return res, nil
}

// collect returns the non-empty values of src.attr on every src.tag element.
func collect(doc *goquery.Document, src tagAttr) []string {
	refs := make([]string, 0)

	doc.Find(src.tag).Each(func(_ int, s *goquery.Selection) {
		ref, ok := s.Attr(src.attr)
		if !ok {
			return
		}
		ref = strings.TrimSpace(ref)
		if ref == "" {
			return
		}
		if src.skipInlineImages && inlineImagePattern.MatchString(ref) {
			return
		}
		if src.tag == "link" && isDNSPrefetch(s) {
			return
		}
		refs = append(refs, ref)
	})

	return refs
}

// isDNSPrefetch reports whether a <link> is only a DNS hint and loads nothing.
func isDNSPrefetch(s *goquery.Selection) bool {
	rel, _ := s.Attr("rel")
	return strings.EqualFold(strings.TrimSpace(rel), "dns-prefetch")
}

func extractCSS(r io.Reader) (*Resources, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read stylesheet: %w", err)
	}

	css := cssCommentPattern.ReplaceAll(data, nil)

	res := &Resources{
		Frames: make([]string, 0),
		Normal: make([]string, 0),
	}

	for _, m := range cssReferencePattern.FindAllSubmatch(css, -1) {
		ref := firstGroup(m)
		if ref == "" || inlineDataPattern.MatchString(ref) {
			continue
		}
		res.Normal = append(res.Normal, ref)
	}

	return res, nil
}

// firstGroup returns the first non-empty capture group of m.
func firstGroup(m [][]byte) string {
	for _, g := range m[1:] {
		if s := strings.TrimSpace(string(g)); s != "" {
			return s
		}
	}
	return ""
}
