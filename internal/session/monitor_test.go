package session_test

import (
	"testing"

	"github.com/vocaprep/vocaprep/internal/session"
	"github.com/vocaprep/vocaprep/pkg/provider/vad"
	vadmock "github.com/vocaprep/vocaprep/pkg/provider/vad/mock"
)

func monitorCfg() vad.Config {
	// 20ms at 16kHz: 640 bytes per classifier frame.
	return vad.Config{SampleRate: 16000, FrameSizeMs: 20}
}

func TestSpeechMonitor_FiresEdges(t *testing.T) {
	t.Parallel()
	vs := &vadmock.Session{Events: []vad.VADEvent{
		{Type: vad.VADSilence},
		{Type: vad.VADSpeechStart},
		{Type: vad.VADSpeechContinue},
		{Type: vad.VADSpeechEnd},
	}}

	var starts, ends int
	m := session.NewSpeechMonitor(vs, monitorCfg(),
		func() { starts++ },
		func() { ends++ },
	)

	for range 4 {
		if err := m.Process(make([]byte, 640)); err != nil {
			t.Fatalf("Process: %v", err)
		}
	}
	if starts != 1 || ends != 1 {
		t.Errorf("starts = %d, ends = %d; want one edge each", starts, ends)
	}
}

func TestSpeechMonitor_BuffersPartialFrames(t *testing.T) {
	t.Parallel()
	vs := &vadmock.Session{EventResult: vad.VADEvent{Type: vad.VADSilence}}
	m := session.NewSpeechMonitor(vs, monitorCfg(), nil, nil)

	// Three 256-byte deliveries make 768 bytes: exactly one 640-byte
	// classifier frame plus a 128-byte remainder.
	for range 3 {
		if err := m.Process(make([]byte, 256)); err != nil {
			t.Fatalf("Process: %v", err)
		}
	}
	if got := len(vs.ProcessFrameCalls); got != 1 {
		t.Fatalf("classifier saw %d frames; want 1", got)
	}
	if got := len(vs.ProcessFrameCalls[0].Frame); got != 640 {
		t.Errorf("classifier frame size = %d; want 640", got)
	}

	// The remainder completes on the next delivery.
	if err := m.Process(make([]byte, 512)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got := len(vs.ProcessFrameCalls); got != 2 {
		t.Errorf("classifier saw %d frames; want 2", got)
	}
}

func TestSpeechMonitor_OversizedDeliverySlicesAll(t *testing.T) {
	t.Parallel()
	vs := &vadmock.Session{EventResult: vad.VADEvent{Type: vad.VADSilence}}
	m := session.NewSpeechMonitor(vs, monitorCfg(), nil, nil)

	if err := m.Process(make([]byte, 640*3)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got := len(vs.ProcessFrameCalls); got != 3 {
		t.Errorf("classifier saw %d frames; want 3", got)
	}
}

func TestSpeechMonitor_StopClosesSessionOnce(t *testing.T) {
	t.Parallel()
	vs := &vadmock.Session{}
	m := session.NewSpeechMonitor(vs, monitorCfg(), nil, nil)

	m.Stop()
	m.Stop()
	if vs.CloseCallCount != 1 {
		t.Errorf("close calls = %d; want 1", vs.CloseCallCount)
	}

	// Processing after Stop is a silent no-op.
	if err := m.Process(make([]byte, 640)); err != nil {
		t.Fatalf("Process after Stop: %v", err)
	}
	if got := len(vs.ProcessFrameCalls); got != 0 {
		t.Errorf("classifier saw %d frames after Stop; want 0", got)
	}
}
