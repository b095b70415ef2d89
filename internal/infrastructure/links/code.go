package links

import (
	"sort"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var markdownParser = goldmark.New(goldmark.WithExtensions(extension.GFM)).Parser()

// span is a half-open byte range of the source.
type span struct {
	start, stop int
}

// codeSpans returns the byte ranges of fenced code blocks, indented code
// blocks and inline code spans in body, sorted by start offset.
func codeSpans(body string) []span {
	source := []byte(body)
	doc := markdownParser.Parse(text.NewReader(source))

	var spans []span
	_ = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := node.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if s, ok := linesSpan(n.Lines()); ok {
				spans = append(spans, s)
			}
			return ast.WalkSkipChildren, nil
		case *ast.CodeSpan:
			if s, ok := childrenSpan(n); ok {
				spans = append(spans, s)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	return spans
}

func linesSpan(lines *text.Segments) (span, bool) {
	if lines == nil || lines.Len() == 0 {
		return span{}, false
	}
	return span{start: lines.At(0).Start, stop: lines.At(lines.Len() - 1).Stop}, true
}

func childrenSpan(node ast.Node) (span, bool) {
	s := span{start: -1}
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		t, ok := child.(*ast.Text)
		if !ok {
			continue
		}
		if s.start < 0 || t.Segment.Start < s.start {
			s.start = t.Segment.Start
		}
		if t.Segment.Stop > s.stop {
			s.stop = t.Segment.Stop
		}
	}
	return s, s.start >= 0
}

func insideAny(spans []span, start, stop int) bool {
	idx := sort.Search(len(spans), func(i int) bool { return spans[i].stop > start })
	return idx < len(spans) && spans[idx].start <= start && stop <= spans[idx].stop
}
