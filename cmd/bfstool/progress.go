package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/meigma/bfstool"
)

// progressPrinter rewrites one status line on w.
type progressPrinter struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *progressPrinter) report(ev bfstool.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ev.FilesTotal == 0 {
		fmt.Fprintf(p.w, "\r%s %d files", ev.Stage, ev.FilesDone)
		return
	}
	fmt.Fprintf(p.w, "\r%s %d/%d files, %s/%s", ev.Stage, ev.FilesDone, ev.FilesTotal,
		displaySize(ev.BytesDone), displaySize(ev.BytesTotal))
}

func (p *progressPrinter) done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w)
}
