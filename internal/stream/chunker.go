package stream

// ChunkStrategy decides the chunk size (in runes) for an answer of the
// given total length. Any strategy is acceptable as long as reassembling
// the emitted chunks reproduces the answer exactly.
type ChunkStrategy func(totalLen int) int

// DefaultChunkStrategy is the length-based default: between 50 and 200
// runes per chunk, aiming for roughly forty chunks per answer. It is a
// tuning default, not a contract.
func DefaultChunkStrategy(totalLen int) int {
	size := totalLen / 40
	if size < 50 {
		size = 50
	}
	if size > 200 {
		size = 200
	}
	return size
}

// split cuts the answer into chunk-sized rune slices. The last slice may be
// shorter; concatenating the result always reproduces answer exactly.
func split(answer string, size int) []string {
	if size <= 0 {
		size = 1
	}

	runes := []rune(answer)
	parts := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}
