// Package ui prints colored terminal output for the CLI. Library
// packages return errors; only the command layer talks to the user.
package ui

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

const headerWidth = 60

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	infoColor    = color.New(color.FgWhite)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	stepColor    = color.New(color.FgBlue)
)

// Header prints a banner with the text centered in a ruled box.
func Header(text string) {
	line := strings.Repeat("=", headerWidth)
	headerColor.Println(line)
	headerColor.Println(center(text, headerWidth))
	headerColor.Println(line)
}

// Step prints a numbered progress line, e.g. "[2/5] Detecting duplicates".
func Step(current, total int, text string) {
	stepColor.Printf("[%d/%d] %s\n", current, total, text)
}

// Success prints a green checkmark line.
func Success(format string, args ...any) {
	successColor.Printf("✓ "+format+"\n", args...)
}

// Info prints a plain informational line.
func Info(format string, args ...any) {
	infoColor.Printf(format+"\n", args...)
}

// Warning prints a yellow warning line.
func Warning(format string, args ...any) {
	warnColor.Printf("! "+format+"\n", args...)
}

// Error prints a red error line.
func Error(format string, args ...any) {
	errorColor.Printf("✗ "+format+"\n", args...)
}

// BlueText returns the text wrapped in blue, for inline emphasis.
func BlueText(text string) string {
	return stepColor.Sprint(text)
}

// YellowText returns the text wrapped in yellow, for inline emphasis.
func YellowText(text string) string {
	return warnColor.Sprint(text)
}

// center left-pads text to sit in the middle of width. Text wider than
// width is returned unchanged.
func center(text string, width int) string {
	if len(text) >= width {
		return text
	}
	return strings.Repeat(" ", (width-len(text))/2) + text
}

// Summary prints a labeled count table with the labels padded to a
// common width so the values line up.
func Summary(title string, rows [][2]string) {
	infoColor.Println(title)
	for _, line := range summaryLines(rows) {
		fmt.Println(line)
	}
}

func summaryLines(rows [][2]string) []string {
	width := 0
	for _, r := range rows {
		if len(r[0]) > width {
			width = len(r[0])
		}
	}
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("  %-*s  %s", width, r[0], r[1]))
	}
	return lines
}
