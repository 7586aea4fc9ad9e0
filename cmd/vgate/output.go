package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	greenMark  = color.New(color.FgGreen).SprintFunc()
	yellowMark = color.New(color.FgYellow).SprintFunc()
	redMark    = color.New(color.FgRed).SprintFunc()
	cyanText   = color.New(color.FgCyan).SprintFunc()
	grayText   = color.New(color.FgHiBlack).SprintFunc()
)

// printBanner prints the ASCII art banner.
func printBanner(w io.Writer) {
	fmt.Fprint(w, cyanText(banner))
}

func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", greenMark("✓"), fmt.Sprintf(format, args...))
}

func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", yellowMark("⚠"), fmt.Sprintf(format, args...))
}

func errorMsg(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", redMark("✗"), fmt.Sprintf(format, args...))
}

// field prints an aligned "▶ Label: value" line.
func field(w io.Writer, label, value string) {
	fmt.Fprintf(w, "    %s%-10s %s\n", greenMark("▶ "), label+":", value)
}
