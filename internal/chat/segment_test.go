package chat

import (
	"reflect"
	"testing"
)

func TestSegmentResponse(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   []Block
	}{
		{
			name:   "empty",
			answer: "",
			want:   nil,
		},
		{
			name:   "single paragraph",
			answer: "Go is a statically typed language.",
			want: []Block{
				{Kind: BlockParagraph, Text: "Go is a statically typed language."},
			},
		},
		{
			name:   "blank lines split paragraphs",
			answer: "First thought.\n\nSecond thought.",
			want: []Block{
				{Kind: BlockParagraph, Text: "First thought."},
				{Kind: BlockParagraph, Text: "Second thought."},
			},
		},
		{
			name:   "star and dash bullets",
			answer: "* first\n- second",
			want: []Block{
				{Kind: BlockBullet, Text: "first"},
				{Kind: BlockBullet, Text: "second"},
			},
		},
		{
			name:   "mixed paragraph and bullets",
			answer: "Here are the options:\n* one\n* two\nPick whichever fits.",
			want: []Block{
				{Kind: BlockParagraph, Text: "Here are the options:"},
				{Kind: BlockBullet, Text: "one"},
				{Kind: BlockBullet, Text: "two"},
				{Kind: BlockParagraph, Text: "Pick whichever fits."},
			},
		},
		{
			name:   "dash without space is not a bullet",
			answer: "-not a bullet",
			want: []Block{
				{Kind: BlockParagraph, Text: "-not a bullet"},
			},
		},
		{
			name:   "indented bullet",
			answer: "  * indented",
			want: []Block{
				{Kind: BlockBullet, Text: "indented"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SegmentResponse(tt.answer)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("SegmentResponse(%q) = %+v, want %+v", tt.answer, got, tt.want)
			}
		})
	}
}
