// Package cli implements the interactive terminal flows for taking assessments and reviewing items.
package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/fatih/color"
)

// errEnd stops an interactive loop on user request.
var errEnd = errors.New("end")

type palette struct {
	bold   *color.Color
	italic *color.Color
	green  *color.Color
	red    *color.Color
	yellow *color.Color
}

func newPalette() palette {
	return palette{
		bold:   color.New(color.Bold),
		italic: color.New(color.Italic),
		green:  color.New(color.FgGreen),
		red:    color.New(color.FgRed),
		yellow: color.New(color.FgYellow),
	}
}

// readLines streams trimmed input lines until EOF or ctx is done. The channel is closed at EOF.
func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
