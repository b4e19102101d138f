package workers

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var fence = []byte("```")

// codeBlocks returns the bodies of fenced code blocks in content, plus
// inline spans written with triple backticks such as "```f(x)```".
func codeBlocks(content string) []string {
	src := []byte(content)
	doc := goldmark.DefaultParser().Parse(text.NewReader(src))

	var blocks []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.FencedCodeBlock:
			var b strings.Builder
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				b.Write(seg.Value(src))
			}
			blocks = append(blocks, b.String())
			return ast.WalkSkipChildren, nil
		case *ast.CodeSpan:
			if body, ok := tripleBacktickSpan(node, src); ok {
				blocks = append(blocks, body)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return blocks
}

func tripleBacktickSpan(span *ast.CodeSpan, src []byte) (string, bool) {
	var b strings.Builder
	first := true
	for c := span.FirstChild(); c != nil; c = c.NextSibling() {
		t, ok := c.(*ast.Text)
		if !ok {
			continue
		}
		if first {
			start := t.Segment.Start
			if start < len(fence) || !bytes.Equal(src[start-len(fence):start], fence) {
				return "", false
			}
			first = false
		}
		b.Write(t.Segment.Value(src))
	}
	if first {
		return "", false
	}
	return b.String(), true
}
