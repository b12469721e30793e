package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	flag "github.com/spf13/pflag"

	"github.com/emx-mail/attachfetch/pkgs/config"
	"github.com/emx-mail/attachfetch/pkgs/download"
	"github.com/emx-mail/attachfetch/pkgs/event"
	"github.com/emx-mail/attachfetch/pkgs/progress"
	"github.com/emx-mail/attachfetch/pkgs/service"
)

type downloadFlags struct {
	root       string
	workers    int
	keepSource bool
}

func parseDownloadFlags(args []string) downloadFlags {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	var f downloadFlags
	fs.StringVar(&f.root, "root", "", "Parent of the EmailAttachments_* directory")
	fs.IntVar(&f.workers, "workers", 0, "Messages processed in parallel")
	fs.BoolVar(&f.keepSource, "keep-source", false, "Also store raw messages in messages.mbox")
	if err := fs.Parse(args); err != nil {
		fatal("download: %v", err)
	}
	return f
}

func (a *app) handleDownload(ctx context.Context, cfg *config.Config, opts downloadFlags) error {
	if opts.root != "" {
		cfg.Download.Root = opts.root
	}
	if opts.workers > 0 {
		cfg.Download.Workers = opts.workers
	}
	if opts.keepSource {
		cfg.Download.KeepSource = true
	}

	password, err := resolvePassword(cfg)
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	defer logger.Sync()

	h := service.New(service.Options{
		Session: cfg.SessionOptions(),
		Download: download.Options{
			DownloadRoot: cfg.Download.Root,
			Workers:      cfg.Download.Workers,
			KeepSource:   cfg.Download.KeepSource,
		},
		Logger: logger,
	})
	defer h.Disconnect()

	if reply := h.Connect(ctx, cfg.Account.Email, password); !reply.Success {
		return errors.New(reply.Message)
	}

	var sink event.Sink
	var bar *progress.Bar
	if a.jsonOut {
		sink = event.NewJSONSink(os.Stdout)
	} else {
		bar = progress.NewBar()
		sink = bar
	}

	reply := h.DownloadUnreadAttachments(ctx, sink)
	if bar != nil {
		bar.Stop()
	}

	if a.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		if err := enc.Encode(struct {
			Type string `json:"type"`
			service.DownloadReply
		}{"result", reply}); err != nil {
			return err
		}
	}
	if !reply.Success {
		return errors.New(reply.Message)
	}
	if !a.jsonOut {
		printReply(reply)
	}
	return nil
}

func printReply(reply service.DownloadReply) {
	if reply.TotalEmails == 0 {
		pterm.Info.Println("No unread emails.")
		return
	}
	pterm.Success.Printf("%d attachment(s) from %d unread email(s) saved to %s\n",
		reply.AttachmentsCount, reply.TotalEmails, reply.DownloadPath)
	for _, f := range reply.DownloadedFiles {
		pterm.Println("  " + f)
	}
	for _, f := range reply.Failures {
		if f.Filename != "" {
			pterm.Warning.Printf("%s %q (UID %d): %s\n", f.Stage, f.Filename, f.UID, f.Error)
		} else {
			pterm.Warning.Printf("%s UID %d: %s\n", f.Stage, f.UID, f.Error)
		}
	}
}
