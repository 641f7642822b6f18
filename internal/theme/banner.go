package theme

import (
	"fmt"
	"io"
)

const (
	cyan    = "\033[36m"
	magenta = "\033[35m"
	reset   = "\033[0m"
)

// Banner returns the feedsync banner. Color codes are left out when plain is set.
func Banner(plain bool) string {
	c, m, r := cyan, magenta, reset
	if plain {
		c, m, r = "", "", ""
	}
	return "" +
		c + "  ┌─┐┌─┐┌─┐┌┬┐" + m + "┌─┐┬ ┬┌┐┌┌─┐\n" + r +
		c + "  ├┤ ├┤ ├┤  ││" + m + "└─┐└┬┘││││  \n" + r +
		c + "  └  └─┘└─┘─┴┘" + m + "└─┘ ┴ ┘└┘└─┘\n" + r +
		"  tweets + photos, newest first\n"
}

// PrintBanner writes the colored banner to w.
func PrintBanner(w io.Writer) {
	fmt.Fprint(w, Banner(false))
}
