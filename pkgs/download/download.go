// Package download runs one unread-attachment retrieval: search INBOX for
// unread messages, fetch and parse them, write their attachments to a
// fresh directory, and flag fully extracted messages as read.
package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/emx-mail/attachfetch/pkgs/archive"
	"github.com/emx-mail/attachfetch/pkgs/attachment"
	"github.com/emx-mail/attachfetch/pkgs/email"
	"github.com/emx-mail/attachfetch/pkgs/event"
)

const (
	DefaultWorkers = 4

	msgNoUnread = "no unread messages"
	msgDone     = "attachment download complete"
)

// Options configures an Orchestrator.
type Options struct {
	// DownloadRoot is the parent of the per-run directory. Defaults to
	// ~/Downloads.
	DownloadRoot string

	// Workers bounds how many messages are processed at once.
	Workers int

	// KeepSource also stores the raw source of every processed message in
	// messages.mbox inside the download directory.
	KeepSource bool

	Now    func() time.Time
	Writer *attachment.Writer
	Logger *zap.Logger
}

// Orchestrator owns a mailbox for the length of one download.
type Orchestrator struct {
	mailbox Mailbox
	opts    Options
	logger  *zap.Logger
}

// New returns an Orchestrator for mailbox.
func New(mailbox Mailbox, opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Writer == nil {
		opts.Writer = attachment.NewWriter(opts.Logger)
	}
	return &Orchestrator{mailbox: mailbox, opts: opts, logger: opts.Logger}
}

// DefaultRoot returns ~/Downloads, or the working directory when the home
// directory is unknown.
func DefaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Downloads")
}

// DownloadUnread runs the download. The mailbox is disconnected on every
// return path.
//
// Only a missing connection, a failed select or search, and a failed
// fetch stream are returned as errors; in that case no Result is
// returned. Every other failure is recorded in Result.Failures.
func (o *Orchestrator) DownloadUnread(ctx context.Context, sink event.Sink) (*Result, error) {
	if o.mailbox == nil {
		return nil, email.ErrNotConnected
	}
	logger := o.logger.With(zap.String("op", uuid.NewString()))
	defer func() {
		if err := o.mailbox.Disconnect(); err != nil {
			logger.Warn("disconnect failed", zap.Error(err))
		}
	}()

	if !o.mailbox.Connected() {
		return nil, email.ErrNotConnected
	}
	sink = event.OrDiscard(sink)

	if _, err := o.mailbox.OpenMailbox(email.Inbox, false); err != nil {
		return nil, err
	}
	uids, err := o.mailbox.SearchUnread()
	if err != nil {
		return nil, err
	}
	logger.Info("unread messages found", zap.Int("count", len(uids)))

	if len(uids) == 0 {
		return &Result{Success: true, Message: msgNoUnread, DownloadedFiles: []string{}}, nil
	}

	root := o.opts.DownloadRoot
	if root == "" {
		root = DefaultRoot()
	}
	dir, err := attachment.CreateDownloadDir(root, o.opts.Now())
	if err != nil {
		return nil, err
	}
	logger.Info("download directory created", zap.String("dir", dir))

	sink.Emit(event.Searching(len(uids)))

	stream, err := o.mailbox.Fetch(ctx, uids)
	if err != nil {
		return nil, err
	}

	r := &run{
		dir:     dir,
		total:   len(uids),
		mailbox: o.mailbox,
		writer:  o.opts.Writer,
		sink:    sink,
		logger:  logger,
	}
	if o.opts.KeepSource {
		arch, err := archive.Open(dir)
		if err != nil {
			logger.Warn("source archive disabled", zap.Error(err))
		} else {
			r.archive = arch
			defer arch.Close()
		}
	}

	var g errgroup.Group
	g.SetLimit(o.opts.Workers)
	var outcomes []*outcome
	for raw := range stream.Messages() {
		out := &outcome{}
		outcomes = append(outcomes, out)
		pos := len(outcomes)
		raw := raw
		g.Go(func() error {
			r.process(pos, raw, out)
			return nil
		})
	}
	g.Wait()

	if err := stream.Err(); err != nil {
		logger.Error("fetch stream failed, discarding partial results", zap.Error(err))
		return nil, err
	}

	res := &Result{
		Success:         true,
		Message:         msgDone,
		TotalEmails:     len(uids),
		DownloadedFiles: []string{},
		DownloadPath:    dir,
	}
	for _, out := range outcomes {
		res.DownloadedFiles = append(res.DownloadedFiles, out.files...)
		res.Failures = append(res.Failures, out.failures...)
		if out.flagged != 0 {
			res.Flagged = append(res.Flagged, out.flagged)
		}
	}

	// Messages without a UID may stand in for some of the missing ones.
	unaccounted := len(uids) - len(outcomes)
	for _, uid := range stream.Missing() {
		if unaccounted <= 0 {
			break
		}
		res.Failures = append(res.Failures, Failure{UID: uid, Stage: StageFetch, Err: ErrNotReturned})
		unaccounted--
	}

	res.AttachmentsCount = len(res.DownloadedFiles)
	if len(res.Failures) > 0 {
		res.Message = fmt.Sprintf("%s, %d item(s) failed", msgDone, len(res.Failures))
	}
	logger.Info("download finished",
		zap.Int("messages", res.TotalEmails),
		zap.Int("attachments", res.AttachmentsCount),
		zap.Int("failures", len(res.Failures)),
		zap.String("dir", dir))
	return res, nil
}

type outcome struct {
	files    []string
	failures []Failure
	flagged  imap.UID
}

type run struct {
	dir     string
	total   int
	mailbox Mailbox
	writer  *attachment.Writer
	archive *archive.Archive
	sink    event.Sink
	logger  *zap.Logger

	mu sync.Mutex
}

func (r *run) process(pos int, raw email.RawMessage, out *outcome) {
	logger := r.logger.With(zap.Uint32("seq", raw.SeqNum), zap.Uint32("uid", uint32(raw.UID)))
	fail := func(stage Stage, filename string, err error) {
		logger.Warn("message step failed", zap.String("stage", string(stage)), zap.String("file", filename), zap.Error(err))
		out.failures = append(out.failures, Failure{
			SeqNum:   raw.SeqNum,
			UID:      raw.UID,
			Filename: filename,
			Stage:    stage,
			Err:      err,
		})
	}

	if raw.Err != nil {
		fail(StageFetch, "", raw.Err)
		return
	}

	msg, err := email.ParseRaw(raw)
	if err != nil {
		fail(StageParse, "", err)
		return
	}

	if r.archive != nil {
		if err := r.archive.Add(msg.From, msg.Date, raw.Body); err != nil {
			fail(StageArchive, "", err)
		}
	}

	if len(msg.Attachments) == 0 {
		logger.Debug("no attachments, leaving unread")
		return
	}

	written := 0
	for _, att := range msg.Attachments {
		path, err := r.writer.Write(r.dir, att.Filename, att.Data)
		if err != nil {
			fail(StageWrite, att.Filename, err)
			continue
		}
		written++
		out.files = append(out.files, path)
		logger.Debug("attachment written", zap.String("file", path))
		r.emit(event.Downloading(pos, r.total, filepath.Base(path)))
	}
	if written < len(msg.Attachments) {
		return
	}

	if !raw.HasUID() {
		fail(StageFlag, "", ErrUnknownUID)
		return
	}
	if err := r.mailbox.MarkRead(raw.UID); err != nil {
		fail(StageFlag, "", errors.Wrap(err, "mark read"))
		return
	}
	out.flagged = raw.UID
}

// emit serialises sink calls so sinks see one event at a time.
func (r *run) emit(p event.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink.Emit(p)
}
