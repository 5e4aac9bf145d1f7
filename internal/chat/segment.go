package chat

import "strings"

// BlockKind tags a display block produced from a completion response.
type BlockKind string

const (
	BlockParagraph BlockKind = "paragraph"
	BlockBullet    BlockKind = "bullet"
)

// Block is one display unit of an assistant answer.
type Block struct {
	Kind BlockKind `json:"kind"`
	Text string    `json:"text"`
}

// SegmentResponse splits a completion answer into display blocks.
//
// The rule: each line whose trimmed form starts with "* " or "- "
// becomes one bullet block (marker stripped). Any other run of
// non-blank lines becomes one paragraph block; blank lines separate
// paragraphs. Input order is preserved and no text is dropped.
func SegmentResponse(answer string) []Block {
	var blocks []Block
	var paragraph []string

	flush := func() {
		if len(paragraph) == 0 {
			return
		}
		blocks = append(blocks, Block{
			Kind: BlockParagraph,
			Text: strings.Join(paragraph, "\n"),
		})
		paragraph = nil
	}

	for _, line := range strings.Split(answer, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flush()
		case strings.HasPrefix(trimmed, "* "), strings.HasPrefix(trimmed, "- "):
			flush()
			blocks = append(blocks, Block{
				Kind: BlockBullet,
				Text: strings.TrimSpace(trimmed[2:]),
			})
		default:
			paragraph = append(paragraph, trimmed)
		}
	}
	flush()

	return blocks
}
