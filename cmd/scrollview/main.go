// Command scrollview is a terminal pager wired to a live scroll tracker:
// the pager's own offset is the tracked viewport, and the status bar
// reflects the class set the tracker maintains (scrolled, reverse
// scroll, past fold). Units are rows rather than pixels.
//
//	scrollview [-threshold N] [-reverse N] [-fold N] FILE
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/scrollwatch/scrollwatch/scroll"
)

// pager holds the document and the scroll position. It implements
// scroll.Viewport over rows: ScrollY is the first visible line, Height
// the number of visible rows.
type pager struct {
	mu       sync.Mutex
	lines    []string
	offset   float64
	viewRows float64
}

func (p *pager) ScrollY() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.offset
}

func (p *pager) Height() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewRows
}

func (p *pager) setViewRows(rows int) {
	p.mu.Lock()
	p.viewRows = float64(max(rows, 1))
	p.mu.Unlock()
}

// scrollBy moves the offset by delta rows, clamped to the document.
func (p *pager) scrollBy(delta float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	limit := float64(max(len(p.lines)-1, 0))
	p.offset = max(0, min(p.offset+delta, limit))
}

func (p *pager) scrollTo(offset float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	limit := float64(max(len(p.lines)-1, 0))
	p.offset = max(0, min(offset, limit))
}

func main() {
	threshold := flag.Float64("threshold", 10, "rows before the scrolled signal fires")
	reverse := flag.Float64("reverse", 5, "upward rows before the reverse-scroll signal fires")
	fold := flag.Float64("fold", 0, "rows subtracted from the fold boundary")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: scrollview [flags] FILE")
		os.Exit(2)
	}

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to read %s: %v", flag.Arg(0), err)
	}

	p := &pager{lines: strings.Split(strings.TrimRight(string(data), "\n"), "\n")}

	cfg := scroll.DefaultConfig()
	cfg.ScrollThreshold = *threshold
	cfg.ReverseScrollOffset = *reverse
	cfg.FoldThreshold = *fold

	classes := scroll.NewRecordingClassList()
	tracker, err := scroll.NewTracker(cfg, p, classes, nil)
	if err != nil {
		log.Fatalf("Invalid tracker config: %v", err)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatalf("Failed to create screen: %v", err)
	}
	if err := screen.Init(); err != nil {
		log.Fatalf("Failed to init screen: %v", err)
	}
	defer screen.Fini()
	screen.SetStyle(tcell.StyleDefault)

	_, rows := screen.Size()
	p.setViewRows(rows - 1) // bottom row is the status bar

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			events <- ev
		}
	}()

	// Cooperative frame loop: one tick per frame interval, redraw only
	// when the offset actually moved.
	ticker := time.NewTicker(scroll.DefaultFrameInterval)
	defer ticker.Stop()

	draw(screen, p, tracker, classes)

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev := ev.(type) {
			case *tcell.EventResize:
				_, rows := screen.Size()
				p.setViewRows(rows - 1)
				screen.Sync()
				draw(screen, p, tracker, classes)
			case *tcell.EventKey:
				if !handleKey(ev, p, tracker) {
					return
				}
			}

		case <-ticker.C:
			if tracker.Tick() {
				draw(screen, p, tracker, classes)
			}
		}
	}
}

// handleKey applies one key press; returns false to quit.
func handleKey(ev *tcell.EventKey, p *pager, tracker *scroll.Tracker) bool {
	page := p.Height()
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyUp:
		p.scrollBy(-1)
	case tcell.KeyDown:
		p.scrollBy(1)
	case tcell.KeyPgUp:
		p.scrollBy(-page)
	case tcell.KeyPgDn:
		p.scrollBy(page)
	case tcell.KeyHome:
		p.scrollTo(0)
	case tcell.KeyEnd:
		p.scrollTo(float64(len(p.lines)))
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return false
		case 'k':
			p.scrollBy(-1)
		case 'j':
			p.scrollBy(1)
		case 'u':
			p.scrollBy(-page / 2)
		case 'd':
			p.scrollBy(page / 2)
		case 'b':
			p.scrollBy(-page)
		case 'f', ' ':
			p.scrollBy(page)
		case 'g':
			p.scrollTo(0)
		case 'G':
			p.scrollTo(float64(len(p.lines)))
		case 'r':
			tracker.Reset()
		}
	}
	return true
}

func draw(screen tcell.Screen, p *pager, tracker *scroll.Tracker, classes *scroll.RecordingClassList) {
	screen.Clear()
	cols, rows := screen.Size()

	first := int(p.ScrollY())
	for y := 0; y < rows-1; y++ {
		i := first + y
		if i >= len(p.lines) {
			break
		}
		drawText(screen, 0, y, p.lines[i], tcell.StyleDefault)
	}

	drawStatusBar(screen, cols, rows-1, p, tracker, classes)
	screen.Show()
}

func drawStatusBar(screen tcell.Screen, cols, y int, p *pager, tracker *scroll.Tracker, classes *scroll.RecordingClassList) {
	base := tcell.StyleDefault.Reverse(true)
	for x := 0; x < cols; x++ {
		screen.SetContent(x, y, ' ', nil, base)
	}

	state := tracker.State()
	pos := fmt.Sprintf(" %.0f/%d  Δ%.0f ", state.ScrollY, len(p.lines), state.Delta)
	x := drawText(screen, 0, y, pos, base)

	for _, name := range classes.Active() {
		var style tcell.Style
		switch name {
		case tracker.Config().ReverseScrollClass:
			style = base.Foreground(tcell.ColorYellow).Bold(true)
		case tracker.Config().PastFoldClass:
			style = base.Foreground(tcell.ColorRed).Bold(true)
		default:
			style = base.Foreground(tcell.ColorGreen).Bold(true)
		}
		x = drawText(screen, x, y, " "+name+" ", style)
	}
}

// drawText writes s at (x, y) and returns the x after the last cell.
func drawText(screen tcell.Screen, x, y int, s string, style tcell.Style) int {
	for _, r := range s {
		screen.SetContent(x, y, r, nil, style)
		x++
	}
	return x
}
