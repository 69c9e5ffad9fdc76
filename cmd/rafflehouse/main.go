package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/abrezinsky/rafflehouse/internal/app"
	"github.com/abrezinsky/rafflehouse/internal/auth"
	"github.com/abrezinsky/rafflehouse/internal/config"
	"github.com/abrezinsky/rafflehouse/internal/logger"
)

// ANSI escape codes
const (
	clearLine = "\033[2K"
	moveUp    = "\033[%dA"
	reset     = "\033[0m"
	yellow    = "\033[33m"
	red       = "\033[31m"
	green     = "\033[32m"
	cyan      = "\033[36m"
	bold      = "\033[1m"
)

var (
	version = "dev"
)

const bannerWidth = 62

func padLine(line string) string {
	for len([]rune(line)) < bannerWidth {
		line += " "
	}
	return line
}

// showStartupAnimation displays the RaffleHouse logo then spins a ticket drum
func showStartupAnimation(skipDraw bool) {
	border := strings.Repeat("═", bannerWidth)

	logo := []string{
		"   ____         __  __ _      _   _                        ",
		"  |  _ \\ __ _ / _|/ _| | ___| | | | ___  _   _ ___  ___    ",
		"  | |_) / _` | |_| |_| |/ _ \\ |_| |/ _ \\| | | / __|/ _ \\   ",
		"  |  _ < (_| |  _|  _| |  __/  _  | (_) | |_| \\__ \\  __/   ",
		"  |_| \\_\\__,_|_| |_| |_|\\___|_| |_|\\___/ \\__,_|___/\\___|   ",
	}

	fmt.Printf("\n  %s╔%s╗%s\n", cyan, border, reset)
	for _, line := range logo {
		fmt.Printf("  %s║%s%s%s║%s\n", cyan, yellow, padLine(line), cyan, reset)
	}
	fmt.Printf("  %s╚%s╝%s\n", cyan, border, reset)

	if skipDraw {
		fmt.Print("\n")
		return
	}

	// Turn the bottom border into a divider and draw a row of spinning tickets
	fmt.Printf(moveUp, 1)
	fmt.Printf("%s  %s╠%s╣%s\n", clearLine, cyan, border, reset)

	const slots = 5
	digits := make([]int, slots)
	settled := 0
	for frame := 0; settled < slots; frame++ {
		// One more slot stops every few frames
		if frame > 0 && frame%4 == 0 {
			settled++
		}
		for i := settled; i < slots; i++ {
			digits[i] = rand.Intn(10)
		}

		var row strings.Builder
		row.WriteString("   Drawing ticket  ")
		for i, d := range digits {
			color := red
			if i < settled {
				color = green
			}
			fmt.Fprintf(&row, "%s[%d]%s ", color, d, reset)
		}
		visible := 19 + slots*4
		fmt.Printf("%s  %s║%s%s%s║%s\n", clearLine, cyan, row.String(), strings.Repeat(" ", bannerWidth-visible), cyan, reset)
		fmt.Printf("%s  %s╚%s╝%s\n", clearLine, cyan, border, reset)

		if settled < slots {
			fmt.Printf(moveUp, 2)
		}
		time.Sleep(60 * time.Millisecond)
	}
	fmt.Print("\n")
}

// cliFlags are the command-line overrides applied after the config file and environment
type cliFlags struct {
	configPath string
	envFile    string
	addr       string
	dbPath     string
	adminPw    string
	logLevel   string
	logFormat  string
	noKeeper   bool
	noAnimate  bool
	noKeyboard bool
	version    bool
}

func parseFlags(args []string) (*cliFlags, map[string]bool, error) {
	f := &cliFlags{}
	fs := flag.NewFlagSet("rafflehouse", flag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", "", "YAML config file")
	fs.StringVar(&f.envFile, "env", config.DefaultEnvFile, "Env file loaded before the environment")
	fs.StringVar(&f.addr, "addr", "", "HTTP listen address (default \":8081\")")
	fs.StringVar(&f.dbPath, "db", "", "SQLite database path (default \"rafflehouse.db\")")
	fs.StringVar(&f.adminPw, "adminpw", "", "Admin password (auto-generated if not set)")
	fs.StringVar(&f.logLevel, "loglevel", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.logFormat, "logformat", "", "Log format (text, json)")
	fs.BoolVar(&f.noKeeper, "nokeeper", false, "Do not execute due competitions automatically")
	fs.BoolVar(&f.noAnimate, "noanimate", false, "Show logo only, skip the draw animation")
	fs.BoolVar(&f.noKeyboard, "nokeyboard", false, "Disable keyboard shortcuts")
	fs.BoolVar(&f.version, "version", false, "Show version and exit")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `RaffleHouse - Ticketed Prize Competitions

Usage:
  rafflehouse [options]

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(fs.Output(), `
Configuration is layered: defaults, -config YAML, -env file, environment
(RAFFLEHOUSE_*), then these flags.

Keyboard Shortcuts (when enabled):
  h              Toggle HTTP request logging
  l              Cycle log level (debug → info → warn → error)
  k              Execute due competitions now
  s              Show competition stats
  q              Quit server
  ?              Show keyboard help

Examples:
  rafflehouse                                # Run on :8081 with rafflehouse.db
  rafflehouse -addr :8080 -db /data/raffle.db
  rafflehouse -config rafflehouse.yaml -loglevel debug
`)
	}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	return f, set, nil
}

// apply overrides cfg with the flags that were given explicitly
func (f *cliFlags) apply(cfg *config.Config, set map[string]bool) {
	if set["addr"] {
		cfg.Server.ListenAddr = f.addr
	}
	if set["db"] {
		cfg.Database.Path = f.dbPath
	}
	if set["adminpw"] {
		cfg.Admin.Password = f.adminPw
	}
	if set["loglevel"] {
		cfg.Log.Level = f.logLevel
	}
	if set["logformat"] {
		cfg.Log.Format = f.logFormat
	}
	if f.noKeeper {
		cfg.Keeper.Enabled = false
	}
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags, set, err := parseFlags(args)
	if err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	if flags.version {
		fmt.Printf("rafflehouse %s\n", version)
		return 0
	}

	cfg, err := config.Load(flags.configPath, flags.envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%sFailed to load configuration: %v%s\n", red, err, reset)
		return 1
	}
	flags.apply(cfg, set)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%sInvalid configuration: %v%s\n", red, err, reset)
		return 1
	}

	showStartupAnimation(flags.noAnimate)

	// Setup admin authentication
	password := cfg.Admin.Password
	if password == "" {
		password = auth.GeneratePassword()
	}
	adminAuth := auth.New(password)

	appLog := logger.NewWithOptions(logger.Options{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: logger.ParseFormat(cfg.Log.Format),
	})
	if cfg.Log.HTTP {
		appLog.EnableHTTPLogging()
	}

	a, err := app.New(appLog, cfg, adminAuth)
	if err != nil {
		appLog.Error("Failed to initialize application", "error", err)
		return 1
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appLog.Info("Admin password", "password", password)

	if !flags.noKeyboard {
		c := newConsole(a, appLog, stop)
		c.printHelp()
		restore := c.start()
		defer restore()
	} else {
		fmt.Printf("\n%sKeyboard shortcuts disabled (use -nokeyboard=false to enable)%s\n\n", yellow, reset)
	}

	if err := a.Run(ctx); err != nil {
		appLog.Error("Server failed", "error", err)
		return 1
	}
	return 0
}
