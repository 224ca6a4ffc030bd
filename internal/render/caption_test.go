package render

import (
	"strings"
	"testing"
)

func TestFontSizeScalesWithLength(t *testing.T) {
	style := Style{}
	tests := []struct {
		runes int
		want  int
	}{
		{10, 48}, {60, 48}, {61, 44}, {81, 40}, {101, 36},
	}
	for _, tt := range tests {
		if got := style.FontSizeFor(strings.Repeat("é", tt.runes)); got != tt.want {
			t.Fatalf("FontSizeFor(%d runes) = %d, want %d", tt.runes, got, tt.want)
		}
	}
	if got := (Style{FontSize: 64}).FontSizeFor(strings.Repeat("a", 200)); got != 64 {
		t.Fatalf("expected explicit size to win, got %d", got)
	}
}

func TestWrapText(t *testing.T) {
	got := WrapText("For God so loved the world, that he gave", 16)
	want := "For God so loved\nthe world, that\nhe gave"
	if got != want {
		t.Fatalf("unexpected wrap:\n%s\nwant:\n%s", got, want)
	}
	if got := WrapText("  spaced   out\ttext ", 0); got != "spaced out text" {
		t.Fatalf("unexpected unwrapped text %q", got)
	}
	if got := WrapText("supercalifragilistic word", 5); got != "supercalifragilistic\nword" {
		t.Fatalf("expected long word on its own line, got %q", got)
	}
	if WrapText("   ", 10) != "" {
		t.Fatal("expected blank text to wrap to empty")
	}
}

func TestDrawtextFilter(t *testing.T) {
	style := Style{FontColor: "white", Position: PositionCenter, LineSpacing: 12, FontFile: "/fonts/Bold.ttf"}
	filter := style.drawtextFilter("/out/caption_it's.txt", 48)
	for _, fragment := range []string{
		`textfile='/out/caption_it'\''s.txt'`,
		"expansion=none",
		"fontsize=48",
		"x=(w-text_w)/2",
		"y=(h-text_h)/2",
		"fontfile='/fonts/Bold.ttf'",
	} {
		if !strings.Contains(filter, fragment) {
			t.Fatalf("expected %q in %q", fragment, filter)
		}
	}
	if !strings.Contains((Style{Position: PositionLowerCenter}).drawtextFilter("a", 1), "y=(h-text_h)*3/4") {
		t.Fatal("expected lower-center y expression")
	}
	if !strings.Contains((Style{Position: PositionUpperCenter}).drawtextFilter("a", 1), "y=(h-text_h)/4") {
		t.Fatal("expected upper-center y expression")
	}
}
