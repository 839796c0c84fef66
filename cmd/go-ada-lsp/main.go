package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/CWBudde/go-ada-lsp/internal/config"
	"github.com/CWBudde/go-ada-lsp/internal/server"
	"github.com/CWBudde/go-ada-lsp/internal/symbols"
	"github.com/CWBudde/go-ada-lsp/internal/transport"
)

const (
	version = "0.1.0"
)

var (
	tcpMode    bool
	tcpPort    int
	logLevel   string
	logFile    string
	configPath string
	framing    string
	demo       bool
)

func init() {
	// Command-line flags
	flag.BoolVar(&tcpMode, "tcp", false, "Run server in TCP mode (one session per connection)")
	flag.IntVar(&tcpPort, "port", 8765, "TCP port to listen on (used with -tcp)")
	flag.StringVar(&logLevel, "log-level", "error", "Log level: debug, info, warn, error")
	flag.StringVar(&logFile, "log-file", "", "Log file path (default: stderr)")
	flag.StringVar(&configPath, "config", "", "TOML configuration file")
	flag.StringVar(&framing, "framing", "header", "Message framing: header (LSP Content-Length) or plain (bare JSON)")
	flag.BoolVar(&demo, "demo", false, "Seed the symbol table with sample declarations")
	flag.Usage = usage
}

func usage() {
	fmt.Fprintf(os.Stderr, "go-ada-lsp version %s\n\n", version)
	fmt.Fprintf(os.Stderr, "Usage: go-ada-lsp [options]\n\n")
	fmt.Fprintf(os.Stderr, "Language Server Protocol completion server for Ada\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Parse()

	// Print version if requested
	if flag.NArg() > 0 && flag.Arg(0) == "version" {
		fmt.Printf("go-ada-lsp version %s\n", version)
		os.Exit(0)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "go-ada-lsp: %v\n", err)
		os.Exit(2)
	}

	setupLogging(cfg.Log)

	log := commonlog.GetLogger("ada-lsp")
	log.Noticef("go-ada-lsp version %s starting", version)

	table := symbols.NewTable()
	table.AddAll(cfg.Symbols)

	if demo {
		table.AddAll(symbols.Demo())
	}

	log.Infof("symbol table seeded with %d declarations (%d procedures, %d functions, %d variables)",
		table.Len(),
		len(table.ByCategory(symbols.CategoryProcedure)),
		len(table.ByCategory(symbols.CategoryFunction)),
		len(table.ByCategory(symbols.CategoryVariable)))

	srv := server.New(table, cfg.Server.SessionOptions())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Validated by config.Load.
	msgFraming, _ := transport.ParseFraming(cfg.Server.Framing)

	// Start server with appropriate transport
	if tcpMode {
		ln, err := net.Listen("tcp", cfg.Server.Address())
		if err != nil {
			log.Criticalf("listen: %v", err)
			os.Exit(1)
		}

		fmt.Fprintf(os.Stderr, "Starting TCP server on %s...\n", ln.Addr())

		if err := srv.Serve(ctx, ln, msgFraming); err != nil {
			log.Criticalf("TCP server error: %v", err)
			os.Exit(1)
		}

		return
	}

	status, err := srv.ServeConn(ctx, transport.New(transport.Stdio(), msgFraming))
	if err != nil {
		log.Errorf("STDIO server error: %v", err)
	}

	log.Infof("exiting (%s)", status)
	stop()
	os.Exit(status.Code())
}

// loadConfig reads the config file and applies explicitly set flags on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Server.Port = tcpPort
		case "log-level":
			cfg.Log.Level = logLevel
		case "log-file":
			cfg.Log.File = logFile
		case "framing":
			cfg.Server.Framing = framing
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setupLogging configures commonlog. Logs never go to stdout, which carries
// protocol messages in stdio mode.
func setupLogging(logCfg config.LogConfig) {
	if logCfg.File != "" {
		f, err := os.OpenFile(logCfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			os.Exit(1)
		}

		_ = f.Close()

		path := logCfg.File
		commonlog.Configure(logCfg.Verbosity(), &path)

		return
	}

	commonlog.Configure(logCfg.Verbosity(), nil)
}
