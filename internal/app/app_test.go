package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/vocaprep/vocaprep/internal/config"
	"github.com/vocaprep/vocaprep/internal/interview"
	"github.com/vocaprep/vocaprep/internal/session"
	"github.com/vocaprep/vocaprep/internal/store"
	"github.com/vocaprep/vocaprep/pkg/audio"
	fbmock "github.com/vocaprep/vocaprep/pkg/provider/feedback/mock"
	"github.com/vocaprep/vocaprep/pkg/provider/realtime"
	rtmock "github.com/vocaprep/vocaprep/pkg/provider/realtime/mock"
	"github.com/vocaprep/vocaprep/pkg/provider/vad"
	vadmock "github.com/vocaprep/vocaprep/pkg/provider/vad/mock"
)

// ── Test doubles ─────────────────────────────────────────────────────────────

type fakeCapture struct {
	frames    chan audio.FloatFrame
	closeOnce sync.Once
}

func newFakeCapture() *fakeCapture {
	return &fakeCapture{frames: make(chan audio.FloatFrame, 16)}
}

func (c *fakeCapture) Frames() <-chan audio.FloatFrame { return c.frames }
func (c *fakeCapture) Err() error                      { return nil }
func (c *fakeCapture) Close() error {
	c.closeOnce.Do(func() { close(c.frames) })
	return nil
}

type fakeLine struct{}

func (l *fakeLine) Now() time.Duration                      { return 0 }
func (l *fakeLine) PlayAt([]byte, int, time.Duration) error { return nil }
func (l *fakeLine) Stop(time.Duration)                      {}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{ListenAddr: ":0", LogLevel: config.LogInfo},
		Providers: config.ProvidersConfig{
			Realtime: config.ProviderEntry{Name: "gemini-live", Voice: "Puck"},
			Feedback: config.ProviderEntry{Name: "openai"},
			VAD:      config.ProviderEntry{Name: "rms"},
		},
		Session: config.SessionConfig{
			TargetSampleRate: 16000,
			HandshakeTimeout: time.Second,
			InterruptFade:    150 * time.Millisecond,
			VAD: config.VADConfig{
				FrameSizeMs:      20,
				SpeechThreshold:  0.015,
				SilenceThreshold: 0.008,
				MinSpeechFrames:  3,
				MinSilenceFrames: 25,
			},
		},
	}
}

func testInterview() interview.Interview {
	return interview.Interview{
		ID:   "iv-1",
		Role: "Backend Engineer",
		Type: "technical",
		Questions: []interview.Question{
			{ID: "q1", Text: "Tell me about your background", Order: 1},
		},
	}
}

func newTestApp(t *testing.T, rt *rtmock.Provider) *App {
	t.Helper()
	a, err := New(context.Background(), testConfig(), &Providers{
		Realtime: rt,
		Feedback: &fbmock.Provider{Report: "Good interview."},
		VAD:      &vadmock.Engine{Session: &vadmock.Session{EventResult: vad.VADEvent{Type: vad.VADSilence}}},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

// ── Construction ─────────────────────────────────────────────────────────────

func TestNew_RequiresRealtimeProvider(t *testing.T) {
	t.Parallel()
	_, err := New(context.Background(), testConfig(), &Providers{})
	if err == nil {
		t.Fatal("expected error when realtime provider is missing")
	}
}

func TestNew_MemStoreFallback(t *testing.T) {
	t.Parallel()
	a := newTestApp(t, &rtmock.Provider{})
	if _, ok := a.Store().(*store.MemStore); !ok {
		t.Errorf("store = %T, want *store.MemStore when no DSN is configured", a.Store())
	}
}

// ── Session lifecycle ────────────────────────────────────────────────────────

func TestStartSession_PersistsInterviewAndRuns(t *testing.T) {
	t.Parallel()
	rts := rtmock.NewSession()
	a := newTestApp(t, &rtmock.Provider{Session: rts})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	ctrl, err := a.StartSession(ctx, testInterview(), newFakeCapture(), &fakeLine{})
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if a.Sessions().Len() != 1 {
		t.Errorf("registry len = %d, want 1 while running", a.Sessions().Len())
	}

	// The interview plan was persisted before the session started.
	if _, err := a.Store().Interview(ctx, "iv-1"); err != nil {
		t.Errorf("interview not persisted: %v", err)
	}

	// Agent speaks once, then the model concludes.
	rts.Emit(realtime.Event{Kind: realtime.EventAgentTranscript, Text: "Hello there."})
	rts.Emit(realtime.Event{Kind: realtime.EventTurnComplete})
	rts.Emit(realtime.Event{Kind: realtime.EventToolCall, Tool: realtime.ToolCall{
		ID:   "fc-1",
		Name: "conclude_interview",
	}})

	if err := ctrl.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got := ctrl.State(); got != session.StateEnded {
		t.Fatalf("state = %s, want ended", got)
	}

	turns, err := a.Store().Turns(ctx, ctrl.ID())
	if err != nil {
		t.Fatalf("Turns: %v", err)
	}
	if len(turns) != 1 || turns[0].Text != "Hello there." {
		t.Errorf("stored turns = %+v, want one agent turn", turns)
	}
	if fb, err := a.Store().Feedback(ctx, ctrl.ID()); err != nil || fb != "Good interview." {
		t.Errorf("feedback = %q, %v; want %q", fb, err, "Good interview.")
	}

	if a.Sessions().Len() != 0 {
		t.Errorf("registry len = %d, want 0 after terminal state", a.Sessions().Len())
	}
}

func TestStartSession_HandshakeFailure(t *testing.T) {
	t.Parallel()
	a := newTestApp(t, &rtmock.Provider{ConnectErr: errors.New("dial refused")})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := a.StartSession(ctx, testInterview(), newFakeCapture(), &fakeLine{})
	if err == nil {
		t.Fatal("expected error for handshake failure")
	}
	if a.Sessions().Len() != 0 {
		t.Errorf("registry len = %d, want 0 after failed start", a.Sessions().Len())
	}
}

func TestStartSession_RequiresFeedbackProvider(t *testing.T) {
	t.Parallel()
	a, err := New(context.Background(), testConfig(), &Providers{
		Realtime: &rtmock.Provider{},
		VAD:      &vadmock.Engine{Session: &vadmock.Session{}},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = a.StartSession(context.Background(), testInterview(), newFakeCapture(), &fakeLine{})
	if err == nil {
		t.Fatal("expected error when feedback provider is missing")
	}
}

// ── HTTP surface ─────────────────────────────────────────────────────────────

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()
	a := newTestApp(t, &rtmock.Provider{})

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest("GET", path, nil)
			rec := httptest.NewRecorder()
			a.srv.Handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Errorf("GET %s = %d, want %d", path, rec.Code, http.StatusOK)
			}
		})
	}
}

// ── Config reload ────────────────────────────────────────────────────────────

func TestOnConfigChange_UpdatesLogLevel(t *testing.T) {
	t.Parallel()
	level := &slog.LevelVar{}
	level.Set(slog.LevelInfo)

	old := testConfig()
	a, err := New(context.Background(), old, &Providers{Realtime: &rtmock.Provider{}}, WithLogLevelVar(level))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	updated := testConfig()
	updated.Server.LogLevel = config.LogDebug
	a.OnConfigChange(old, updated)

	if got := level.Level(); got != slog.LevelDebug {
		t.Errorf("level = %s, want DEBUG", got)
	}
}

func TestOnConfigChange_SessionTuningAppliesToNewSessions(t *testing.T) {
	t.Parallel()
	old := testConfig()
	a, err := New(context.Background(), old, &Providers{Realtime: &rtmock.Provider{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	updated := testConfig()
	updated.Session.VAD.SpeechThreshold = 0.05
	a.OnConfigChange(old, updated)

	if got := a.vadConfig().SpeechThreshold; got != 0.05 {
		t.Errorf("speech threshold = %g, want 0.05", got)
	}
}
