package compiler

import "strings"

// SourceMap is a version 3 source map. Mappings are line-granular: each
// output line maps to the same-numbered input line, clamped to the input
// length. That is as precise as splice-based rewriting can promise without
// tracking every edit through every pass.
type SourceMap struct {
	Version        int      `json:"version"`
	File           string   `json:"file"`
	Sources        []string `json:"sources"`
	SourcesContent []string `json:"sourcesContent"`
	Names          []string `json:"names"`
	Mappings       string   `json:"mappings"`
}

func buildSourceMap(filename, original, generated string) *SourceMap {
	genLines := strings.Count(generated, "\n") + 1
	srcLines := strings.Count(original, "\n") + 1

	var mappings strings.Builder
	prevSrcLine := 0
	for line := 0; line < genLines; line++ {
		if line > 0 {
			mappings.WriteByte(';')
		}
		srcLine := line
		if srcLine >= srcLines {
			srcLine = srcLines - 1
		}
		// Segment: [genCol, sourceIdx, srcLineDelta, srcColDelta]
		mappings.WriteString(encodeVLQ(0))
		mappings.WriteString(encodeVLQ(0))
		mappings.WriteString(encodeVLQ(srcLine - prevSrcLine))
		mappings.WriteString(encodeVLQ(0))
		prevSrcLine = srcLine
	}

	return &SourceMap{
		Version:        3,
		File:           filename,
		Sources:        []string{filename},
		SourcesContent: []string{original},
		Names:          []string{},
		Mappings:       mappings.String(),
	}
}

const vlqChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// encodeVLQ emits one base64 VLQ value, per the source map v3 spec.
func encodeVLQ(value int) string {
	vlq := value << 1
	if value < 0 {
		vlq = (-value << 1) | 1
	}

	var b strings.Builder
	for {
		digit := vlq & 0x1f
		vlq >>= 5
		if vlq > 0 {
			digit |= 0x20
		}
		b.WriteByte(vlqChars[digit])
		if vlq == 0 {
			return b.String()
		}
	}
}
