// Package scheduler implements the Inbox Scheduler (§4.G): an
// fsnotify-driven watcher over the terminal log directory that delivers
// PENDING inbox messages as soon as a terminal's log shows its idle
// pattern, grounded on
// original_source/services/inbox_service.py's LogFileHandler /
// check_and_send_pending_messages.
package scheduler

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/yubing744/cli-agent-orchestrator/src/handler/constants"
	"github.com/yubing744/cli-agent-orchestrator/src/handler/logreader"
	"github.com/yubing744/cli-agent-orchestrator/src/handler/multiplexer"
	"github.com/yubing744/cli-agent-orchestrator/src/handler/provider"
	"github.com/yubing744/cli-agent-orchestrator/src/handler/store"
)

// Scheduler watches logDir for modifications to <terminal-id>.log files and
// attempts delivery of the oldest PENDING message for that terminal once it
// looks idle.
type Scheduler struct {
	logDir    string
	logs      *logreader.Reader
	store     *store.Store
	providers *provider.Manager
	mux       multiplexer.Multiplexer

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// New constructs a Scheduler watching logDir.
func New(logDir string, logs *logreader.Reader, st *store.Store, providers *provider.Manager, mux multiplexer.Multiplexer) *Scheduler {
	return &Scheduler{
		logDir:    logDir,
		logs:      logs,
		store:     st,
		providers: providers,
		mux:       mux,
		done:      make(chan struct{}),
	}
}

// Start begins watching logDir in a background goroutine. Callers should
// call Stop to release the fsnotify watcher.
func (s *Scheduler) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(s.logDir); err != nil {
		watcher.Close()
		return err
	}
	s.watcher = watcher

	go s.loop(ctx)
	return nil
}

// Stop releases the fsnotify watcher and terminates the watch loop.
func (s *Scheduler) Stop() {
	if s.watcher != nil {
		s.watcher.Close()
	}
	close(s.done)
}

// loop is the watcher's event pump. A deferred recover per event keeps one
// bad event from killing the whole goroutine, matching gin.Recovery()'s
// stance on handler panics (§7).
func (s *Scheduler) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(ctx, event)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logrus.WithError(err).Warn("log watcher error")
		}
	}
}

func (s *Scheduler) handleEvent(ctx context.Context, event fsnotify.Event) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("panic", r).Error("recovered from panic handling log event")
		}
	}()

	if !event.Has(fsnotify.Write) {
		return
	}
	if !strings.HasSuffix(event.Name, ".log") {
		return
	}

	terminalID := strings.TrimSuffix(filepath.Base(event.Name), ".log")
	s.handleLogChange(ctx, terminalID)
}

// handleLogChange mirrors _handle_log_change: cheap DB check first, then
// the O(1) idle-pattern check, then delivery.
func (s *Scheduler) handleLogChange(ctx context.Context, terminalID string) {
	messages, err := s.store.GetPendingMessages(terminalID, 1)
	if err != nil {
		logrus.WithError(err).WithField("terminal_id", terminalID).Error("error checking pending messages")
		return
	}
	if len(messages) == 0 {
		return
	}

	if !s.hasIdlePattern(ctx, terminalID) {
		return
	}

	if _, err := s.CheckAndSendPendingMessages(ctx, terminalID); err != nil {
		logrus.WithError(err).WithField("terminal_id", terminalID).Error("error delivering pending message")
	}
}

// hasIdlePattern performs the O(1) sync-and-check against the provider's
// log-specific idle pattern.
func (s *Scheduler) hasIdlePattern(ctx context.Context, terminalID string) bool {
	p, err := s.providers.GetProvider(ctx, terminalID)
	if err != nil {
		logrus.WithError(err).WithField("terminal_id", terminalID).Debug("error checking idle pattern")
		return false
	}

	_, ok := s.logs.SyncAndCheck(terminalID, p.IdlePatternForLog())
	return ok
}

// CheckAndSendPendingMessages is also exposed directly so a manual
// "nudge" (e.g. after SendInput) can trigger the same delivery attempt
// without waiting on the filesystem watcher.
func (s *Scheduler) CheckAndSendPendingMessages(ctx context.Context, terminalID string) (bool, error) {
	messages, err := s.store.GetPendingMessages(terminalID, 1)
	if err != nil {
		return false, err
	}
	if len(messages) == 0 {
		return false, nil
	}
	message := messages[0]

	p, err := s.providers.GetProvider(ctx, terminalID)
	if err != nil {
		return false, err
	}

	status, err := p.GetStatus(ctx, constants.InboxTailLines)
	if err != nil {
		return false, err
	}
	if status != provider.StatusIdle && status != provider.StatusCompleted {
		logrus.WithFields(logrus.Fields{"terminal_id": terminalID, "status": status}).Debug("terminal not ready")
		return false, nil
	}

	t, err := s.store.GetTerminal(terminalID)
	if err != nil {
		return false, err
	}
	if t == nil {
		return false, nil
	}

	if err := s.deliver(ctx, t, message); err != nil {
		if _, markErr := s.store.UpdateMessageStatus(message.ID, constants.MessageStatusFailed); markErr != nil {
			logrus.WithError(markErr).WithField("message_id", message.ID).Error("failed to mark message failed")
		}
		return false, err
	}

	if _, err := s.store.UpdateMessageStatus(message.ID, constants.MessageStatusDelivered); err != nil {
		return false, err
	}

	logrus.WithFields(logrus.Fields{"message_id": message.ID, "terminal_id": terminalID}).Info("delivered pending message")
	return true, nil
}

func (s *Scheduler) deliver(ctx context.Context, t *store.Terminal, message *store.InboxMessage) error {
	return s.mux.SendKeys(ctx, t.Session, t.Window, message.Body)
}
