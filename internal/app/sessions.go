package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/vocaprep/vocaprep/internal/interview"
	"github.com/vocaprep/vocaprep/internal/session"
	"github.com/vocaprep/vocaprep/internal/store"
	"github.com/vocaprep/vocaprep/pkg/audio"
	"github.com/vocaprep/vocaprep/pkg/audio/playback"
	"github.com/vocaprep/vocaprep/pkg/provider/vad"
)

// sessionSeq disambiguates session IDs created within the same second.
var sessionSeq atomic.Int64

// StartSession launches an interview session against the configured
// providers. The capture source and output line belong to the caller's audio
// channel; the app owns everything in between. The returned controller is
// already running and registered; it removes itself from the registry when it
// reaches a terminal state.
func (a *App) StartSession(ctx context.Context, iv interview.Interview, capture audio.CaptureSource, line playback.Line) (*session.Controller, error) {
	if a.providers.Feedback == nil {
		return nil, fmt.Errorf("app: feedback provider is required to run interviews")
	}

	if err := a.ensureInterview(ctx, iv); err != nil {
		return nil, err
	}

	sessionID := newSessionID(iv)
	startedAt := time.Now()

	ctrl, err := session.NewController(session.Config{
		SessionID:        sessionID,
		Interview:        iv,
		Realtime:         a.providers.Realtime,
		Voice:            a.cfg.Providers.Realtime.Voice,
		VAD:              a.providers.VAD,
		VADConfig:        a.vadConfig(),
		Capture:          capture,
		Line:             line,
		Store:            a.store,
		Feedback:         a.providers.Feedback,
		TargetSampleRate: a.cfg.Session.TargetSampleRate,
		HandshakeTimeout: a.cfg.Session.HandshakeTimeout,
		InterruptFade:    a.cfg.Session.InterruptFade,
		OnTerminal:       func(c *session.Controller) { a.sessionEnded(c, startedAt) },
	})
	if err != nil {
		return nil, fmt.Errorf("app: create session: %w", err)
	}

	if err := a.sessions.Add(ctrl); err != nil {
		return nil, fmt.Errorf("app: register session: %w", err)
	}

	handshakeStart := time.Now()
	if err := ctrl.Start(ctx); err != nil {
		a.sessions.Remove(sessionID)
		return nil, fmt.Errorf("app: start session: %w", err)
	}

	a.metrics.RecordHandshake(ctx, a.cfg.Providers.Realtime.Name, time.Since(handshakeStart))
	a.metrics.ActiveSessions.Add(ctx, 1)

	slog.Info("interview session started",
		"session_id", sessionID,
		"interview_id", iv.ID,
		"role", iv.Role,
		"questions", len(iv.Questions),
	)
	return ctrl, nil
}

// ensureInterview persists the interview plan if the store does not have it
// yet, so the transcript rows always have a parent to join against.
func (a *App) ensureInterview(ctx context.Context, iv interview.Interview) error {
	_, err := a.store.Interview(ctx, iv.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("app: look up interview %q: %w", iv.ID, err)
	}
	if err := a.store.CreateInterview(ctx, iv); err != nil {
		return fmt.Errorf("app: persist interview %q: %w", iv.ID, err)
	}
	return nil
}

// sessionEnded bridges the finished session's counters into metrics and drops
// the registry entry. Runs on the session's run loop goroutine, so it must
// not block.
func (a *App) sessionEnded(c *session.Controller, startedAt time.Time) {
	a.sessions.Remove(c.ID())

	ctx := context.Background()
	outcome := "ended"
	if c.State() == session.StateErrored {
		outcome = "errored"
	}
	a.metrics.RecordSessionEnd(ctx, outcome, time.Since(startedAt))

	stats := c.Stats()
	if stats.Interruptions > 0 {
		a.metrics.Interruptions.Add(ctx, stats.Interruptions)
	}
	if stats.DroppedFrames > 0 {
		a.metrics.DroppedFrames.Add(ctx, stats.DroppedFrames)
	}
	if stats.DecodeErrors > 0 {
		a.metrics.DecodeErrors.Add(ctx, stats.DecodeErrors)
	}
	for _, turn := range c.Turns() {
		a.metrics.RecordTurn(ctx, string(turn.Role))
	}
}

// vadConfig maps the configured VAD tuning to a per-session provider config.
func (a *App) vadConfig() vad.Config {
	v := a.cfg.Session.VAD
	return vad.Config{
		SampleRate:       a.cfg.Session.TargetSampleRate,
		FrameSizeMs:      v.FrameSizeMs,
		SpeechThreshold:  v.SpeechThreshold,
		SilenceThreshold: v.SilenceThreshold,
		MinSpeechFrames:  v.MinSpeechFrames,
		MinSilenceFrames: v.MinSilenceFrames,
	}
}

// newSessionID derives a unique, readable session identifier from the
// interview role and the start time.
func newSessionID(iv interview.Interview) string {
	role := sanitizeName(iv.Role)
	if role == "" {
		role = "interview"
	}
	return fmt.Sprintf("session-%s-%s-%04d",
		role,
		time.Now().UTC().Format("20060102T150405Z"),
		sessionSeq.Add(1),
	)
}

// sanitizeName lowercases a name and replaces spaces with hyphens for use in
// session IDs.
func sanitizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.ReplaceAll(name, " ", "-")
}
