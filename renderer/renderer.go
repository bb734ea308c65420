// Package renderer formats ledger reports as markdown documents.
//
// Every report is rendered to a markdown string, the caller decides how
// to present it (raw, or through a terminal markdown renderer).
package renderer

import (
	"fmt"
	"strings"

	"github.com/etnz/folio/date"
)

// mdRenderer accumulates markdown output.
type mdRenderer struct {
	*strings.Builder
}

func newRenderer() *mdRenderer {
	return &mdRenderer{Builder: &strings.Builder{}}
}

// Printf formats according to a format specifier and writes to the renderer's buffer.
func (r *mdRenderer) Printf(format string, args ...any) {
	fmt.Fprintf(r, format, args...)
}

// asOf renders the "as of" qualifier for report titles. A zero date reads
// as the current state of the ledger.
func asOf(on date.Date) string {
	if on.IsZero() {
		return "now"
	}
	return on.String()
}
