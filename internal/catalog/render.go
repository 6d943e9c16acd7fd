package catalog

import "strings"

// SegmentKind classifies a rendered piece of topic content.
type SegmentKind string

const (
	SegmentText    SegmentKind = "text"
	SegmentHeading SegmentKind = "heading"
	SegmentBullet  SegmentKind = "bullet"
	SegmentCode    SegmentKind = "code"
)

const (
	codeFence   = "```python"
	closeFence  = "```"
	headingMark = "**"
	bulletMark  = "- "
)

// Segment is one block of rendered topic content.
type Segment struct {
	Kind SegmentKind `json:"kind"`
	Text string      `json:"text"`
}

// RenderTopic splits topic content into ordered segments. Lines starting
// with ** become headings, "- " lines become bullets, and fenced python
// blocks become code. A fence without a closing marker runs to the end.
func RenderTopic(content string) []Segment {
	var segments []Segment
	rest := content
	for {
		start := strings.Index(rest, codeFence)
		if start < 0 {
			return append(segments, renderProse(rest)...)
		}
		segments = append(segments, renderProse(rest[:start])...)
		rest = rest[start+len(codeFence):]

		code := rest
		end := strings.Index(rest, closeFence)
		if end >= 0 {
			code = rest[:end]
			rest = rest[end+len(closeFence):]
		} else {
			rest = ""
		}
		if trimmed := strings.TrimSpace(code); trimmed != "" {
			segments = append(segments, Segment{Kind: SegmentCode, Text: trimmed})
		}
	}
}

func renderProse(text string) []Segment {
	var segments []Segment
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(line, headingMark):
			segments = append(segments, Segment{
				Kind: SegmentHeading,
				Text: strings.TrimSpace(strings.ReplaceAll(line, headingMark, "")),
			})
		case strings.HasPrefix(trimmed, bulletMark):
			segments = append(segments, Segment{
				Kind: SegmentBullet,
				Text: strings.TrimPrefix(trimmed, bulletMark),
			})
		default:
			segments = append(segments, Segment{Kind: SegmentText, Text: trimmed})
		}
	}
	return segments
}
