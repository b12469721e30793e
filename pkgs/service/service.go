// Package service is the boundary used by front ends: connect with a
// user's credentials, download unread attachments, disconnect. Every call
// returns a plain reply value instead of an error.
package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/emx-mail/attachfetch/pkgs/download"
	"github.com/emx-mail/attachfetch/pkgs/email"
	"github.com/emx-mail/attachfetch/pkgs/event"
)

// Reply is the outcome of Connect and Disconnect.
type Reply struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// FailureReply is one contained per-item error.
type FailureReply struct {
	UID      uint32 `json:"uid,omitempty"`
	Filename string `json:"filename,omitempty"`
	Stage    string `json:"stage"`
	Error    string `json:"error"`
}

// DownloadReply is the outcome of DownloadUnreadAttachments.
type DownloadReply struct {
	Success          bool           `json:"success"`
	Message          string         `json:"message"`
	TotalEmails      int            `json:"totalEmails"`
	AttachmentsCount int            `json:"attachmentsCount"`
	DownloadedFiles  []string       `json:"downloadedFiles"`
	DownloadPath     string         `json:"downloadPath,omitempty"`
	Failures         []FailureReply `json:"failures,omitempty"`
}

// Options configures a Handler.
type Options struct {
	Session  email.SessionOptions
	Download download.Options
	Logger   *zap.Logger
}

// Handler holds at most one live session between Connect and the next
// download or Disconnect. Calls are expected to be serialised by the
// caller.
type Handler struct {
	mu      sync.Mutex
	session *email.Session
	opts    Options
	logger  *zap.Logger
}

// New returns a Handler.
func New(opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Session.Logger == nil {
		opts.Session.Logger = opts.Logger
	}
	if opts.Download.Logger == nil {
		opts.Download.Logger = opts.Logger
	}
	return &Handler{opts: opts, logger: opts.Logger}
}

// Connect opens a fresh session, dropping any previous one.
func (h *Handler) Connect(ctx context.Context, address, password string) Reply {
	h.Disconnect()

	s, err := email.Connect(ctx, email.Credentials{Email: address, Password: password}, h.opts.Session)
	if err != nil {
		h.logger.Warn("connect failed", zap.String("user", address), zap.Error(err))
		return Reply{Success: false, Message: "connection failed: " + err.Error()}
	}

	h.mu.Lock()
	h.session = s
	h.mu.Unlock()
	return Reply{Success: true, Message: "connected"}
}

// DownloadUnreadAttachments runs one download on the connected session.
// The session is torn down afterwards whatever the outcome, so the next
// download needs a new Connect.
func (h *Handler) DownloadUnreadAttachments(ctx context.Context, sink event.Sink) DownloadReply {
	h.mu.Lock()
	s := h.session
	h.session = nil
	h.mu.Unlock()

	if s == nil {
		return DownloadReply{Success: false, Message: "please connect to the mailbox first", DownloadedFiles: []string{}}
	}

	res, err := download.New(download.FromSession(s), h.opts.Download).DownloadUnread(ctx, sink)
	if err != nil {
		return DownloadReply{Success: false, Message: "download failed: " + err.Error(), DownloadedFiles: []string{}}
	}

	reply := DownloadReply{
		Success:          res.Success,
		Message:          res.Message,
		TotalEmails:      res.TotalEmails,
		AttachmentsCount: res.AttachmentsCount,
		DownloadedFiles:  res.DownloadedFiles,
		DownloadPath:     res.DownloadPath,
	}
	for _, f := range res.Failures {
		reply.Failures = append(reply.Failures, FailureReply{
			UID:      uint32(f.UID),
			Filename: f.Filename,
			Stage:    string(f.Stage),
			Error:    f.Err.Error(),
		})
	}
	return reply
}

// Disconnect drops the session if there is one. It always succeeds.
func (h *Handler) Disconnect() Reply {
	h.mu.Lock()
	s := h.session
	h.session = nil
	h.mu.Unlock()

	if err := s.Disconnect(); err != nil {
		h.logger.Debug("disconnect failed", zap.Error(err))
	}
	return Reply{Success: true}
}

// Connected reports whether a session is held.
func (h *Handler) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session.Connected()
}
