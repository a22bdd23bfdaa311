package services

// ChunkText splits text into fixed-size segments with overlap for
// embedding generation. The window advances by chunkSize-overlap per
// step, so every chunk except the last has length exactly chunkSize and
// consecutive chunks share exactly overlap characters. The chunks cover
// the whole input. Pure function.
//
// The caller must guarantee overlap < chunkSize; this is enforced at
// config load, not here.
func ChunkText(text string, chunkSize, overlap int) []string {
	chunks := []string{}

	for start := 0; start < len(text); start += chunkSize - overlap {
		end := start + chunkSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
	}

	return chunks
}
