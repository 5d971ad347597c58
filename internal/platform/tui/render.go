package tui

import (
	"fmt"
	"image"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// upperHalf draws the top pixel as foreground and the bottom pixel as
// background, giving two image rows per terminal row.
const upperHalf = "▀"

type cellColors struct {
	fg, bg [3]uint8
}

// RenderCanvas scales img to cols x rows terminal cells using half blocks.
// Groups adjacent cells with the same colors to minimize ANSI escape
// sequences.
func RenderCanvas(img *image.RGBA, cols, rows int) string {
	b := img.Bounds()
	if cols <= 0 || rows <= 0 || b.Empty() {
		return ""
	}

	var sb strings.Builder
	sb.Grow(cols*rows*4 + rows)

	sample := func(cx, py int) [3]uint8 {
		x := b.Min.X + cx*b.Dx()/cols
		y := b.Min.Y + py*b.Dy()/(rows*2)
		c := img.RGBAAt(x, y)
		return [3]uint8{c.R, c.G, c.B}
	}

	for cy := range rows {
		if cy > 0 {
			sb.WriteRune('\n')
		}
		x := 0
		for x < cols {
			start := cellColors{fg: sample(x, cy*2), bg: sample(x, cy*2+1)}
			n := 0
			for x < cols {
				c := cellColors{fg: sample(x, cy*2), bg: sample(x, cy*2+1)}
				if c != start {
					break
				}
				n++
				x++
			}
			style := lipgloss.NewStyle().
				Foreground(hex(start.fg)).
				Background(hex(start.bg))
			sb.WriteString(style.Render(strings.Repeat(upperHalf, n)))
		}
	}
	return sb.String()
}

func hex(c [3]uint8) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
}

// centerText centers text within given width.
func centerText(text string, width int) string {
	w := lipgloss.Width(text)
	if w >= width {
		return text
	}
	return strings.Repeat(" ", (width-w)/2) + text
}
