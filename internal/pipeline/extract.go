package pipeline

import (
	"iter"

	"ndcscan/internal"
)

// ExtractCodes yields the anchored text of every NDC entity in entity order.
// The sequence is lazy and may be ranged over more than once.
func ExtractCodes(doc *internal.Document) iter.Seq[string] {
	return func(yield func(string) bool) {
		if doc == nil {
			return
		}
		var text []rune
		for _, entity := range doc.Entities {
			if entity.Type != internal.EntityTypeNDC {
				continue
			}
			if text == nil {
				text = []rune(doc.Text)
			}
			if !yield(anchorText(text, entity.Anchor)) {
				return
			}
		}
	}
}

// anchorText resolves the first segment of anchor against text. A missing end
// offset arrives as zero, so any span with end <= start is empty.
func anchorText(text []rune, anchor *internal.TextAnchor) string {
	if anchor == nil || len(anchor.Segments) == 0 {
		return ""
	}
	seg := anchor.Segments[0]
	start := clampIndex(seg.StartIndex, len(text))
	end := clampIndex(seg.EndIndex, len(text))
	if end <= start {
		return ""
	}
	return string(text[start:end])
}

func clampIndex(i int64, n int) int {
	if i < 0 {
		return 0
	}
	if i > int64(n) {
		return n
	}
	return int(i)
}
