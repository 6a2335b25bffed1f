package interview

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidTypes lists the interview styles the built-in instructions know how to
// run. Other values are allowed but logged as a warning, since they are most
// likely typos.
var ValidTypes = []string{"technical", "behavioral", "system-design"}

// planFile is the on-disk YAML structure of an interview plan.
//
// Example:
//
//	interview:
//	  id: backend-2026-01
//	  role: "Backend Engineer"
//	  type: technical
//	questions:
//	  - id: q1
//	    text: "Tell me about a system you designed."
//	  - text: "How do you handle backpressure?"
type planFile struct {
	Interview planMeta       `yaml:"interview"`
	Questions []planQuestion `yaml:"questions"`
}

type planMeta struct {
	ID   string `yaml:"id"`
	Role string `yaml:"role"`
	Type string `yaml:"type"`
}

type planQuestion struct {
	ID    string `yaml:"id"`
	Text  string `yaml:"text"`
	Order int    `yaml:"order"`
}

// LoadFile reads and parses an interview plan YAML file from disk.
func LoadFile(path string) (*Interview, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("interview: open plan file %q: %w", path, err)
	}
	defer f.Close()

	iv, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("interview: parse plan file %q: %w", path, err)
	}
	return iv, nil
}

// LoadFromReader parses an interview plan from an [io.Reader], fills in
// defaults, and validates the result. The reader is consumed entirely; the
// caller is responsible for closing it.
func LoadFromReader(r io.Reader) (*Interview, error) {
	var pf planFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // reject unknown keys to catch typos
	if err := dec.Decode(&pf); err != nil {
		return nil, fmt.Errorf("interview: decode plan yaml: %w", err)
	}

	iv := Interview{
		ID:        pf.Interview.ID,
		Role:      pf.Interview.Role,
		Type:      pf.Interview.Type,
		CreatedAt: time.Now(),
	}
	for i, q := range pf.Questions {
		id := q.ID
		if id == "" {
			id = fmt.Sprintf("q%d", i+1)
		}
		order := q.Order
		if order == 0 {
			order = i + 1
		}
		iv.Questions = append(iv.Questions, Question{ID: id, Text: q.Text, Order: order})
	}

	if err := Validate(iv); err != nil {
		return nil, err
	}
	return &iv, nil
}

// Validate checks an [Interview] plan for required fields. All failures are
// reported at once via [errors.Join].
//
// Rules:
//   - ID and Role must be non-empty.
//   - At least one question is required.
//   - Every question needs non-empty text and a unique ID.
func Validate(iv Interview) error {
	var errs []error

	if iv.ID == "" {
		errs = append(errs, errors.New("interview id must not be empty"))
	}
	if iv.Role == "" {
		errs = append(errs, errors.New("interview role must not be empty"))
	}
	if len(iv.Questions) == 0 {
		errs = append(errs, errors.New("at least one question is required"))
	}

	if iv.Type != "" && !slices.Contains(ValidTypes, iv.Type) {
		slog.Warn("unknown interview type — may be a typo",
			"type", iv.Type,
			"known", ValidTypes)
	}

	seen := make(map[string]bool, len(iv.Questions))
	for i, q := range iv.Questions {
		if q.Text == "" {
			errs = append(errs, fmt.Errorf("question[%d]: text must not be empty", i))
		}
		if seen[q.ID] {
			errs = append(errs, fmt.Errorf("question[%d]: duplicate id %q", i, q.ID))
		}
		seen[q.ID] = true
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("interview: invalid plan: %w", errors.Join(errs...))
}
