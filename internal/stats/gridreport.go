package stats

import (
	"strings"

	"memesim/internal/meme"
)

// densityRamp maps a dominant pattern's fraction of one-bits to a glyph,
// darkest last.
const densityRamp = " .:-=+*#%@"

// DominantGridReport renders the per-cell dominant patterns (canonical
// row-major order, x outer) as an ASCII density map, one row per x, one
// glyph per cell.
func DominantGridReport(patterns []meme.Pattern, size int) string {
	if size <= 0 || len(patterns) != size*size {
		return ""
	}

	var b strings.Builder
	b.Grow(size*size + size)
	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			b.WriteByte(densityGlyph(patterns[x*size+y]))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func densityGlyph(p meme.Pattern) byte {
	if len(p) == 0 {
		return densityRamp[0]
	}
	ones := 0
	for _, bit := range p {
		ones += int(bit)
	}
	idx := ones * (len(densityRamp) - 1) / len(p)
	return densityRamp[idx]
}
