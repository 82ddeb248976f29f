package segment

// WindowChunker splits text into fixed-size overlapping windows. It counts
// characters (runes), not tokens or sentences, so a window may cut a word
// in half; this is a known limitation, not an error.
type WindowChunker struct {
	size    int
	overlap int
}

// NewWindowChunker creates a chunker with the given window length and
// overlap, both in characters. Overlap must be smaller than size.
func NewWindowChunker(size, overlap int) *WindowChunker {
	if size <= 0 {
		size = 500
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return &WindowChunker{size: size, overlap: overlap}
}

// Split returns the windows of text in order. Consecutive windows share
// exactly overlap characters; the final window may be shorter than size.
// Empty input yields no windows.
func (c *WindowChunker) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	stride := c.size - c.overlap
	var windows []string
	for start := 0; start < len(runes); start += stride {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		windows = append(windows, string(runes[start:end]))
	}
	return windows
}
