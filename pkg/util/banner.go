package util

import (
	"fmt"
	"io"
	"strings"

	"github.com/common-nighthawk/go-figure"
)

// Color ANSI 颜色
type Color string

const (
	ColorReset  Color = "\x1b[0m"
	ColorRed    Color = "\x1b[1;31m"
	ColorGreen  Color = "\x1b[1;32m"
	ColorYellow Color = "\x1b[1;33m"
	ColorBlue   Color = "\x1b[1;34m"
	ColorCyan   Color = "\x1b[1;36m"
)

// ParseColor 颜色名转 ANSI 颜色码（red/green/yellow/blue/cyan），未知名称不着色
func ParseColor(name string) Color {
	switch strings.ToLower(name) {
	case "red":
		return ColorRed
	case "green":
		return ColorGreen
	case "yellow":
		return ColorYellow
	case "blue":
		return ColorBlue
	case "cyan":
		return ColorCyan
	default:
		return ColorReset
	}
}

// Banner 生成统一颜色的 ASCII banner
func Banner(text string, color Color) string {
	fig := figure.NewFigure(text, "", true)
	var b strings.Builder
	for _, line := range fig.Slicify() {
		b.WriteString(string(color) + line + string(ColorReset) + "\n")
	}
	return b.String()
}

// PrintBanner 输出 banner 与一行启动信息
func PrintBanner(w io.Writer, text string, color Color, info string) {
	fmt.Fprint(w, Banner(text, color))
	if info != "" {
		fmt.Fprintln(w, info)
	}
}
