package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"github.com/scrollwatch/scrollwatch/scroll"
)

// ANSI color codes for highlighting signal transitions
const (
	ansiReset  = "\033[0m"
	ansiYellow = "\033[33m"
)

// readlineWriter wraps log output to work with readline.
type readlineWriter struct {
	rl *readline.Instance
}

func (w *readlineWriter) Write(p []byte) (n int, err error) {
	if w.rl != nil {
		w.rl.Clean()
	}
	n, err = os.Stderr.Write(p)
	if w.rl != nil {
		w.rl.Refresh()
	}
	return n, err
}

// simPrinter renders snapshots above the readline prompt. By default it
// prints only signal transitions; watch mode prints every changed tick.
type simPrinter struct {
	rl *readline.Instance

	mu    sync.Mutex
	has   bool
	prev  scroll.Snapshot
	watch bool
}

func (p *simPrinter) observe(snap scroll.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	transition := !p.has ||
		snap.Scrolled != p.prev.Scrolled ||
		snap.ReverseScrolled != p.prev.ReverseScrolled ||
		snap.PastFold != p.prev.PastFold

	if p.watch || transition {
		p.print(formatSnapshot(snap, p.prev, p.has))
	}
	p.prev = snap
	p.has = true
}

func (p *simPrinter) setWatch(on bool) {
	p.mu.Lock()
	p.watch = on
	p.mu.Unlock()
}

// print outputs a line, handling the readline prompt properly.
func (p *simPrinter) print(line string) {
	if p.rl != nil {
		p.rl.Clean()
		fmt.Println(line)
		p.rl.Refresh()
	} else {
		fmt.Println(line)
	}
}

// formatSnapshot renders one snapshot, highlighting signals that changed
// since the previous one.
func formatSnapshot(snap, prev scroll.Snapshot, hasPrev bool) string {
	flag := func(name string, cur, old bool) string {
		mark := "-"
		if cur {
			mark = "+"
		}
		cell := fmt.Sprintf("%s%s", mark, name)
		if hasPrev && cur != old {
			return ansiYellow + cell + ansiReset
		}
		return cell
	}

	return fmt.Sprintf("y=%-7.0f Δ=%-6.0f %s %s %s",
		snap.ScrollY,
		snap.Delta,
		flag("scrolled", snap.Scrolled, prev.Scrolled),
		flag("reverse", snap.ReverseScrolled, prev.ReverseScrolled),
		flag("past-fold", snap.PastFold, prev.PastFold),
	)
}

const simHelp = `commands:
  y N            jump to offset N
  up N / down N  scroll relative
  h N            set viewport height
  top            jump to offset 0
  state          print the full tracker state
  reset          clear the reverse-scroll signal
  set threshold|reverse|fold N
                 retune the tracker (restarts sampling)
  watch on|off   print every changed tick, not just transitions
  quit`

// simWorker runs an interactive simulated viewport on a readline
// console, driving the same session machinery the MQTT daemon uses.
func simWorker(ctx context.Context, cancel context.CancelFunc, cfg DaemonConfig) {
	view := &latestViewport{}
	view.SetHeight(800)
	classes := scroll.NewRecordingClassList()

	sess := scroll.NewSession(view, classes, scroll.TimerScheduler{Interval: cfg.FrameInterval})
	defer sess.Close()

	rl, err := readline.New("scroll> ")
	if err != nil {
		log.Printf("Failed to start readline: %v\n", err)
		cancel()
		return
	}
	defer rl.Close()

	log.SetOutput(&readlineWriter{rl: rl})
	defer log.SetOutput(os.Stderr)

	printer := &simPrinter{rl: rl}
	sess.Observers().Add(printer.observe)

	trackerCfg := cfg.Tracker
	if err := sess.Configure(trackerCfg); err != nil {
		log.Printf("Failed to configure tracker: %v\n", err)
		cancel()
		return
	}

	// Unblock Readline when the daemon shuts down from elsewhere.
	go func() {
		<-ctx.Done()
		rl.Close()
	}()

	printer.print(fmt.Sprintf("simulating viewport (height=%.0f threshold=%.0f reverse=%.0f fold=%.0f), 'help' for commands",
		view.Height(), trackerCfg.ScrollThreshold, trackerCfg.ReverseScrollOffset, trackerCfg.FoldThreshold))

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt || err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "y":
			if v, ok := argFloat(printer, fields, 1); ok && v >= 0 {
				view.SetScrollY(v)
			}
		case "up":
			if v, ok := argFloat(printer, fields, 1); ok {
				view.SetScrollY(max(0, view.ScrollY()-v))
			}
		case "down":
			if v, ok := argFloat(printer, fields, 1); ok {
				view.SetScrollY(view.ScrollY() + v)
			}
		case "h":
			if v, ok := argFloat(printer, fields, 1); ok && v > 0 {
				view.SetHeight(v)
			}
		case "top":
			view.SetScrollY(0)
		case "state":
			s := sess.State()
			printer.print(fmt.Sprintf("scrollY=%.0f prevScrollY=%.0f delta=%.0f reverseScrolled=%v scrolled=%v pastFold=%v classes=%v",
				s.ScrollY, s.PrevScrollY, s.Delta, s.ReverseScrolled, s.Scrolled, s.PastFold, classes.Active()))
		case "reset":
			sess.Reset()
			printer.print("reverse-scroll signal cleared")
		case "set":
			if len(fields) != 3 {
				printer.print("usage: set threshold|reverse|fold N")
				continue
			}
			v, err := strconv.ParseFloat(fields[2], 64)
			if err != nil {
				printer.print("bad value: " + fields[2])
				continue
			}
			next := trackerCfg
			switch fields[1] {
			case "threshold":
				next.ScrollThreshold = v
			case "reverse":
				next.ReverseScrollOffset = v
			case "fold":
				next.FoldThreshold = v
			default:
				printer.print("unknown field: " + fields[1])
				continue
			}
			if err := sess.Configure(next); err != nil {
				printer.print("rejected: " + err.Error())
				continue
			}
			trackerCfg = next
			printer.print("tracker restarted with new config")
		case "watch":
			on := len(fields) < 2 || fields[1] == "on"
			printer.setWatch(on)
		case "help":
			printer.print(simHelp)
		case "quit", "exit":
			cancel()
			return
		default:
			printer.print("unknown command, 'help' for commands")
		}
	}

	cancel()
}

func argFloat(p *simPrinter, fields []string, i int) (float64, bool) {
	if len(fields) <= i {
		p.print("missing argument")
		return 0, false
	}
	v, err := strconv.ParseFloat(fields[i], 64)
	if err != nil {
		p.print("bad number: " + fields[i])
		return 0, false
	}
	return v, true
}
