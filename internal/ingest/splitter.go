package ingest

import "strings"

// Default chunking parameters: ~1000-character windows with ~150 characters
// of overlap between neighbors.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 150
)

// SplitText breaks text into overlapping windows of roughly chunkSize
// characters. Windows prefer to end on whitespace near the boundary so words
// stay intact; splitting is rune-safe for multi-byte text. Whitespace-only
// input yields no chunks.
func SplitText(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultChunkOverlap
		if overlap >= chunkSize {
			overlap = chunkSize / 4
		}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	step := chunkSize - overlap
	for start := 0; start < len(runes); start += step {
		end := start + chunkSize
		if end >= len(runes) {
			chunk := strings.TrimSpace(string(runes[start:]))
			if chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		// The break may not move before the next window's start, or the
		// runes between them would never land in any chunk.
		end = splitPoint(runes, start+step, end)
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// splitPoint walks back from end looking for whitespace so the window breaks
// between words. Gives up and cuts mid-word after 100 runes, or sooner when
// the floor is closer.
func splitPoint(runes []rune, floor, end int) int {
	const lookback = 100
	limit := end - lookback
	if limit < floor {
		limit = floor
	}
	for i := end; i > limit; i-- {
		if runes[i-1] == ' ' || runes[i-1] == '\n' || runes[i-1] == '\t' {
			return i
		}
	}
	return end
}
