package main

import "io"

const (
	ansiBold  = "\x1b[1m"
	ansiRed   = "\x1b[31m"
	ansiReset = "\x1b[0m"
)

// printer writes command output, coloring headings and errors when the
// destination is a terminal.
type printer struct {
	w     io.Writer
	color bool
}

func newPrinter(w io.Writer, color bool) *printer {
	return &printer{w: w, color: color}
}

func (p *printer) Write(b []byte) (int, error) { return p.w.Write(b) }

func (p *printer) heading(s string) string {
	if !p.color {
		return s
	}
	return ansiBold + s + ansiReset
}

func (p *printer) failure(s string) string {
	if !p.color {
		return s
	}
	return ansiRed + s + ansiReset
}
