package splitter

import "strings"

// postProcess normalizes a raw chunk sequence: whitespace-only chunks are
// dropped, adjacent duplicates collapse to one, and a trailing chunk below
// the minimum size folds into its predecessor. The tail merge only applies
// when overlap is zero; overlapping chunks already share their boundary
// content and merging would compound the duplication.
func postProcess(chunks []string, cfg Config) []string {
	var out []string
	for _, chunk := range chunks {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		if len(out) > 0 && out[len(out)-1] == chunk {
			continue
		}
		out = append(out, chunk)
	}

	if cfg.ChunkOverlap == 0 && len(out) >= 2 {
		tail := out[len(out)-1]
		if len(tail) < minChunkSize(cfg.ChunkSize) {
			out[len(out)-2] = out[len(out)-2] + " " + tail
			out = out[:len(out)-1]
		}
	}
	return out
}
