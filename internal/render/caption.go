package render

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Style controls how the caption is drawn.
type Style struct {
	FontColor   string
	FontFile    string
	FontSize    int
	Position    string
	WrapChars   int
	LineSpacing int
}

// Caption position presets.
const (
	PositionCenter      = "center"
	PositionUpperCenter = "upper-center"
	PositionLowerCenter = "lower-center"
)

// FontSizeFor returns the configured size, or scales it down as the caption
// grows when no explicit size is set.
func (s Style) FontSizeFor(text string) int {
	if s.FontSize > 0 {
		return s.FontSize
	}
	n := utf8.RuneCountInString(text)
	switch {
	case n > 100:
		return 36
	case n > 80:
		return 40
	case n > 60:
		return 44
	default:
		return 48
	}
}

// WrapText breaks text into lines of at most width runes on word boundaries.
// Words longer than width are kept whole on their own line.
func WrapText(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	if width <= 0 {
		return strings.Join(words, " ")
	}
	var b strings.Builder
	lineLen := 0
	for i, word := range words {
		wordLen := utf8.RuneCountInString(word)
		switch {
		case i == 0:
		case lineLen+1+wordLen > width:
			b.WriteByte('\n')
			lineLen = 0
		default:
			b.WriteByte(' ')
			lineLen++
		}
		b.WriteString(word)
		lineLen += wordLen
	}
	return b.String()
}

func positionExpr(position string) (string, string) {
	x := "(w-text_w)/2"
	switch position {
	case PositionUpperCenter:
		return x, "(h-text_h)/4"
	case PositionLowerCenter:
		return x, "(h-text_h)*3/4"
	default:
		return x, "(h-text_h)/2"
	}
}

// drawtextFilter builds the overlay filter. The caption is read from
// textFile with expansion disabled, so script punctuation and percent signs
// reach the frame verbatim.
func (s Style) drawtextFilter(textFile string, fontSize int) string {
	x, y := positionExpr(s.Position)
	opts := []string{
		"textfile=" + quoteFilterValue(textFile),
		"expansion=none",
		"fontcolor=" + s.FontColor,
		"fontsize=" + strconv.Itoa(fontSize),
		"line_spacing=" + strconv.Itoa(s.LineSpacing),
		"x=" + x,
		"y=" + y,
	}
	if s.FontFile != "" {
		opts = append(opts, "fontfile="+quoteFilterValue(s.FontFile))
	}
	return "drawtext=" + strings.Join(opts, ":")
}

// quoteFilterValue single-quotes a filter option value. A literal quote is
// closed, escaped, and reopened.
func quoteFilterValue(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}
