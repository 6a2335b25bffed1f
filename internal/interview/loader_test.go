package interview_test

import (
	"strings"
	"testing"

	"github.com/vocaprep/vocaprep/internal/interview"
)

const validPlanYAML = `
interview:
  id: backend-2026-01
  role: "Backend Engineer"
  type: technical
questions:
  - id: q1
    text: "Tell me about a system you designed."
  - text: "How do you handle backpressure?"
`

const minimalPlanYAML = `
interview:
  id: quick
  role: "SRE"
questions:
  - text: "What does a healthy on-call rotation look like?"
`

func TestLoadFromReader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		wantID    string
		wantRole  string
		wantCount int
	}{
		{
			name:      "valid plan",
			input:     validPlanYAML,
			wantID:    "backend-2026-01",
			wantRole:  "Backend Engineer",
			wantCount: 2,
		},
		{
			name:      "minimal plan",
			input:     minimalPlanYAML,
			wantID:    "quick",
			wantRole:  "SRE",
			wantCount: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			iv, err := interview.LoadFromReader(strings.NewReader(tc.input))
			if err != nil {
				t.Fatalf("LoadFromReader: unexpected error: %v", err)
			}
			if iv.ID != tc.wantID {
				t.Errorf("id: expected %q, got %q", tc.wantID, iv.ID)
			}
			if iv.Role != tc.wantRole {
				t.Errorf("role: expected %q, got %q", tc.wantRole, iv.Role)
			}
			if len(iv.Questions) != tc.wantCount {
				t.Errorf("question count: expected %d, got %d", tc.wantCount, len(iv.Questions))
			}
		})
	}
}

func TestLoadFromReader_AppliesDefaults(t *testing.T) {
	t.Parallel()

	iv, err := interview.LoadFromReader(strings.NewReader(validPlanYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	// The second question has no explicit id or order.
	q := iv.Questions[1]
	if q.ID != "q2" {
		t.Errorf("defaulted id: expected %q, got %q", "q2", q.ID)
	}
	if q.Order != 2 {
		t.Errorf("defaulted order: expected 2, got %d", q.Order)
	}
	if iv.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set on load")
	}
}

func TestLoadFromReader_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "completely invalid YAML",
			input: ":::not valid yaml:::",
		},
		{
			name:  "unknown top-level key",
			input: "interview:\n  id: x\n  role: y\nquetsions: []\n",
		},
		{
			name:  "no questions",
			input: "interview:\n  id: x\n  role: y\nquestions: []\n",
		},
		{
			name:  "missing role",
			input: "interview:\n  id: x\nquestions:\n  - text: hi\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := interview.LoadFromReader(strings.NewReader(tc.input))
			if err == nil {
				t.Fatal("LoadFromReader: expected error for invalid input, got nil")
			}
		})
	}
}

func TestValidate_ReportsAllFailures(t *testing.T) {
	t.Parallel()

	err := interview.Validate(interview.Interview{
		Questions: []interview.Question{
			{ID: "q1", Text: ""},
			{ID: "q1", Text: "duplicate id"},
		},
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"id must not be empty", "role must not be empty", "text must not be empty", "duplicate id"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := interview.LoadFile("/does/not/exist.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
