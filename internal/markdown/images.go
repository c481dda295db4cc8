package markdown

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Attributes added to every image in rendered rich text so that hosts can
// route clicks on it to the preview overlay.
const (
	ImageClass   = "markdown-image"
	PreviewAttr  = "data-preview-src"
	maxTagImages = 256
)

// tagImages rewrites each <img> in sanitized markup to carry the preview
// trigger attributes and returns the image sources in document order.
// Everything other than <img> tags is copied through byte for byte.
func tagImages(markup string) (string, []string, error) {
	if !strings.Contains(markup, "<img") {
		return markup, nil, nil
	}

	z := html.NewTokenizer(strings.NewReader(markup))
	var out strings.Builder
	var images []string

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if errors.Is(z.Err(), io.EOF) {
				return out.String(), images, nil
			}
			return "", nil, z.Err()
		}

		raw := append([]byte(nil), z.Raw()...)
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			out.Write(raw)
			continue
		}

		tok := z.Token()
		if tok.DataAtom != atom.Img {
			out.Write(raw)
			continue
		}

		src := attr(tok, "src")
		if src == "" || len(images) >= maxTagImages {
			out.Write(raw)
			continue
		}

		images = append(images, src)
		tok.Attr = setAttr(tok.Attr, "class", ImageClass)
		tok.Attr = setAttr(tok.Attr, PreviewAttr, src)
		tok.Type = html.SelfClosingTagToken
		out.WriteString(tok.String())
	}
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(attrs []html.Attribute, key, val string) []html.Attribute {
	for i := range attrs {
		if attrs[i].Key == key {
			attrs[i].Val = val
			return attrs
		}
	}
	return append(attrs, html.Attribute{Key: key, Val: val})
}
