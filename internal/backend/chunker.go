package backend

import "strings"

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 100
)

// SplitContent slices content into chunks of roughly chunkSize characters,
// breaking on word boundaries and carrying overlap characters of trailing
// context into the next chunk. Non-positive arguments use the defaults.
func SplitContent(content string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = defaultChunkOverlap
		if overlap >= chunkSize {
			overlap = chunkSize / 10
		}
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	if len(content) <= chunkSize {
		return []string{content}
	}

	words := strings.Fields(content)
	var chunks []string
	var current strings.Builder

	flush := func() {
		chunk := strings.TrimSpace(current.String())
		if chunk == "" {
			return
		}
		chunks = append(chunks, chunk)
		current.Reset()
		if overlap > 0 && len(chunk) > overlap {
			// Seed the next chunk with the trailing overlap, starting at a
			// word boundary.
			tail := chunk[len(chunk)-overlap:]
			if idx := strings.IndexByte(tail, ' '); idx >= 0 {
				tail = tail[idx+1:]
			}
			current.WriteString(tail)
		}
	}

	for _, word := range words {
		if current.Len() > 0 && current.Len()+1+len(word) > chunkSize {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	flush()

	return chunks
}
