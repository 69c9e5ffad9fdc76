package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/abrezinsky/rafflehouse/internal/app"
	"github.com/abrezinsky/rafflehouse/internal/logger"
)

// console maps single keystrokes to operator actions
type console struct {
	app  *app.App
	log  *logger.SlogLogger
	out  io.Writer
	quit context.CancelFunc
}

func newConsole(a *app.App, log *logger.SlogLogger, quit context.CancelFunc) *console {
	return &console{app: a, log: log, out: os.Stdout, quit: quit}
}

// start puts stdin in raw mode and reads keys until quit. The returned func
// restores the terminal and is safe to call when stdin is not a terminal.
func (c *console) start() func() {
	restore, err := enableRawMode(int(os.Stdin.Fd()))
	if err != nil {
		// Not a terminal
		return func() {}
	}
	go c.readLoop(os.Stdin)
	return restore
}

func (c *console) readLoop(r io.Reader) {
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if err == io.EOF {
			return
		}
		if err != nil || n == 0 {
			continue
		}
		if !c.handleKey(buf[0]) {
			c.quit()
			return
		}
	}
}

// handleKey runs the action bound to key. It returns false when the server should stop.
func (c *console) handleKey(key byte) bool {
	switch strings.ToLower(string(key)) {
	case "h":
		if c.log.IsHTTPLoggingEnabled() {
			c.log.DisableHTTPLogging()
			fmt.Fprintf(c.out, "%sHTTP logging disabled%s\n", yellow, reset)
		} else {
			c.log.EnableHTTPLogging()
			fmt.Fprintf(c.out, "%sHTTP logging enabled%s\n", green, reset)
		}
	case "l":
		c.cycleLogLevel()
	case "k":
		summary, ok := c.app.Sweep(context.Background())
		if !ok {
			fmt.Fprintf(c.out, "%sKeeper is disabled%s\n", yellow, reset)
			return true
		}
		fmt.Fprintf(c.out, "%sKeeper sweep: %d requested, %d failed, %d rejected%s\n",
			cyan, summary.Requested, summary.Failed, summary.Rejected, reset)
	case "s":
		c.printStats()
	case "q", "\x03":
		fmt.Fprintf(c.out, "%sShutting down server...%s\n", yellow, reset)
		return false
	case "?":
		c.printHelp()
	}
	return true
}

// cycleLogLevel cycles through debug -> info -> warn -> error
func (c *console) cycleLogLevel() {
	var next string
	switch c.log.GetLevel().String() {
	case "DEBUG":
		next = "info"
	case "INFO":
		next = "warn"
	case "WARN":
		next = "error"
	default:
		next = "debug"
	}

	c.log.SetLevel(logger.ParseLevel(next))
	fmt.Fprintf(c.out, "%sLog level: %s%s%s\n", green, yellow, next, reset)
}

func (c *console) printStats() {
	stats, err := c.app.Stats(context.Background())
	if err != nil {
		fmt.Fprintf(c.out, "%sError reading stats: %v%s\n", red, err, reset)
		return
	}

	statuses := make([]string, 0, len(stats.ByStatus))
	for status, count := range stats.ByStatus {
		statuses = append(statuses, fmt.Sprintf("%s=%d", status, count))
	}
	sort.Strings(statuses)

	fmt.Fprintf(c.out, "%sStudios: %d  Competitions: %d  Tickets sold: %d  Events: %d%s\n",
		cyan, stats.Studios, stats.Competitions, stats.TicketsSold, stats.Events, reset)
	if len(statuses) > 0 {
		fmt.Fprintf(c.out, "  %s\n", strings.Join(statuses, "  "))
	}
}

// printHelp displays all available keyboard shortcuts
func (c *console) printHelp() {
	fmt.Fprintf(c.out, "\n%s%s  Keyboard Shortcuts:%s\n", bold, green, reset)
	fmt.Fprintf(c.out, "    %sh%s      - Toggle HTTP request logging\n", cyan, reset)
	fmt.Fprintf(c.out, "    %sl%s      - Cycle log level (debug → info → warn → error)\n", cyan, reset)
	fmt.Fprintf(c.out, "    %sk%s      - Execute due competitions now\n", cyan, reset)
	fmt.Fprintf(c.out, "    %ss%s      - Show competition stats\n", cyan, reset)
	fmt.Fprintf(c.out, "    %sq%s      - Quit server\n", cyan, reset)
	fmt.Fprintf(c.out, "    %s?%s      - Show this help\n\n", cyan, reset)
}
