package chunker

import (
	"iter"
	"strings"
	"unicode"
)

const (
	DefaultMaxSize = 8000
	DefaultMinSize = 100
)

// Chunker splits documents on markdown headings and bounds every piece to
// MaxSize runes. Pieces whose trimmed length is not above MinSize are noise.
type Chunker struct {
	MaxSize int
	MinSize int
}

func New(maxSize, minSize int) *Chunker {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if minSize < 0 {
		minSize = DefaultMinSize
	}
	return &Chunker{MaxSize: maxSize, MinSize: minSize}
}

// Chunks yields chunks in document order. Call it again to start over.
func (c *Chunker) Chunks(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, section := range sections(text) {
			for _, w := range windows(section, c.MaxSize) {
				if len([]rune(strings.TrimSpace(w))) <= c.MinSize {
					continue
				}
				if !yield(w) {
					return
				}
			}
		}
	}
}

func (c *Chunker) Split(text string) []string {
	var out []string
	for chunk := range c.Chunks(text) {
		out = append(out, chunk)
	}
	return out
}

// sections cuts text before every newline that introduces a level 1-3 heading.
func sections(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] != '\n' || !isHeading(text[i+1:]) {
			continue
		}
		if i > start {
			out = append(out, text[start:i])
		}
		start = i
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

func isHeading(line string) bool {
	n := 0
	for n < len(line) && line[n] == '#' {
		n++
	}
	if n == 0 || n > 3 || n == len(line) {
		return false
	}
	return unicode.IsSpace(rune(line[n]))
}

func windows(s string, size int) []string {
	runes := []rune(s)
	if len(runes) <= size {
		return []string{s}
	}
	out := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		out = append(out, string(runes[start:end]))
	}
	return out
}
