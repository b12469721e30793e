package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"
)

const version = "1.0.0"

// app holds global options parsed from the command line
type app struct {
	configPath string
	verbose    bool
	jsonOut    bool
}

func main() {
	a := &app{}

	// Global flags
	flag.StringVarP(&a.configPath, "config", "c", "", "Path to the JSON config file")
	flag.BoolVarP(&a.verbose, "verbose", "v", false, "Verbose output (debug logging)")
	flag.BoolVar(&a.jsonOut, "json", false, "Print progress and result as JSON lines")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		fmt.Printf("attachfetch v%s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	cmd := "download"
	var cmdArgs []string
	if len(args) > 0 {
		cmd = args[0]
		cmdArgs = args[1:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// "init" doesn't need config loaded
	if cmd == "init" {
		if err := handleInit(a.configPath); err != nil {
			fatal("init: %v", err)
		}
		return
	}
	if cmd == "help" {
		printUsage()
		os.Exit(0)
	}

	cfg := a.loadConfig()

	switch cmd {
	case "download":
		opts := parseDownloadFlags(cmdArgs)
		if err := a.handleDownload(ctx, cfg, opts); err != nil {
			fatal("download: %v", err)
		}
	case "remember":
		opts := parseRememberFlags(cmdArgs)
		if err := handleRemember(cfg, opts); err != nil {
			fatal("remember: %v", err)
		}
	case "forget":
		if err := handleForget(cfg); err != nil {
			fatal("forget: %v", err)
		}
	default:
		fatal("unknown command '%s'", cmd)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `attachfetch v%s - Download attachments of unread emails

Usage:
  attachfetch [global options] [command] [command options]

Commands:
  download   Save attachments of unread INBOX messages (default)
  remember   Store the account password in the system keyring
  forget     Remove the stored password from the system keyring
  init       Create an example configuration file
  help       Show this help

Global Options:
  -c, --config <path>  JSON config file (default: $%s)
  -v, --verbose        Verbose output (debug logging)
  --json               Print progress and result as JSON lines
  --version            Show version information

Download Options:
  --root <dir>           Parent of the EmailAttachments_* directory (default: ~/Downloads)
  --workers <n>          Messages processed in parallel (default: 4)
  --keep-source          Also store raw messages in messages.mbox

Remember Options:
  --password <text>      Password to store (prompted when omitted)

Password Resolution:
  1) ATTACHFETCH_PASSWORD or account.password in the config file
  2) the system keyring entry written by 'attachfetch remember'

Examples:
  attachfetch init
  attachfetch remember
  attachfetch
  attachfetch --json download --root ./mail
`, version, configEnvName)
}
