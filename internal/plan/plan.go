// Package plan reads declarative migration plans and applies them to a
// catalog.
//
// A plan is a YAML document naming a sequence of structural edits. Each step
// runs in its own transaction together with the journal entry that records
// it, so re-running a plan after a failure skips the steps already applied.
package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Operations understood by the runner.
const (
	OpMoveIndex       = "move_index"
	OpMoveCategory    = "move_category"
	OpMoveChildren    = "move_children"
	OpCreateCategory  = "create_category"
	OpRenameCategory  = "rename_category"
	OpRenameSegment   = "rename_segment"
	OpRewritePrefix   = "rewrite_prefix"
	OpDeleteCategory  = "delete_category"
	OpSetTermPrimary  = "set_term_primary"
	OpSetOrder        = "set_order"
	OpHideIndex       = "hide_index"
	OpClearDependence = "clear_dependence"
	OpRebuild         = "rebuild"
)

// Plan validation errors.
var (
	ErrNoName       = errors.New("plan has no name")
	ErrNoSteps      = errors.New("plan has no steps")
	ErrUnknownOp    = errors.New("unknown operation")
	ErrMissingField = errors.New("missing required field")
)

// Plan is a named sequence of steps.
type Plan struct {
	Name   string `yaml:"name"`
	Atomic bool   `yaml:"atomic,omitempty"`
	Steps  []Step `yaml:"steps"`
}

// Step is one edit. Which fields apply depends on Op.
type Step struct {
	Op       string   `yaml:"op"`
	Index    string   `yaml:"index,omitempty"`
	Category []string `yaml:"category,omitempty"`
	Into     []string `yaml:"into,omitempty"` // empty moves to the top level
	Path     []string `yaml:"path,omitempty"`
	En       string   `yaml:"en,omitempty"`
	He       string   `yaml:"he,omitempty"`
	Name     string   `yaml:"name,omitempty"`
	From     []string `yaml:"from,omitempty"`
	To       []string `yaml:"to,omitempty"`
	Term     string   `yaml:"term,omitempty"`
	Scope    []string `yaml:"scope,omitempty"`
	Lang     string   `yaml:"lang,omitempty"`
	Title    string   `yaml:"title,omitempty"`
	Order    []int    `yaml:"order,omitempty"`
}

// Load reads and validates the plan file at path.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML plan. Unknown keys are rejected so a
// misspelled field does not silently drop part of a step.
func Parse(data []byte) (*Plan, error) {
	var p Plan
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decoding plan: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks that every step names a known operation and carries the
// fields that operation needs.
func (p *Plan) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrNoName
	}
	if len(p.Steps) == 0 {
		return ErrNoSteps
	}
	for i, s := range p.Steps {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, s.Op, err)
		}
	}
	return nil
}

// Validate checks the fields required by the step's operation.
func (s Step) Validate() error {
	var missing []string
	need := func(ok bool, field string) {
		if !ok {
			missing = append(missing, field)
		}
	}

	switch s.Op {
	case OpMoveIndex:
		need(s.Index != "", "index")
		need(len(s.Into) > 0, "into")
	case OpMoveCategory, OpMoveChildren:
		need(len(s.Category) > 0, "category")
	case OpCreateCategory:
		need(len(s.Path) > 0, "path")
	case OpRenameCategory, OpRenameSegment:
		need(len(s.Category) > 0, "category")
		need(s.Name != "", "name")
	case OpRewritePrefix:
		need(len(s.From) > 0, "from")
		need(len(s.To) > 0, "to")
	case OpDeleteCategory:
		need(len(s.Category) > 0, "category")
	case OpSetTermPrimary:
		need(s.Term != "", "term")
		need(s.Lang != "", "lang")
		need(s.Title != "", "title")
	case OpSetOrder:
		need(s.Index != "", "index")
		need(len(s.Order) > 0, "order")
	case OpHideIndex, OpClearDependence:
		need(s.Index != "", "index")
	case OpRebuild:
	default:
		return fmt.Errorf("%w %q", ErrUnknownOp, s.Op)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}
	return nil
}

// Key identifies an applied step in the journal. It covers the plan name,
// the step number and the step's content, so editing a step in place makes
// it run again.
func (s Step) Key(planName string, n int) string {
	data, err := yaml.Marshal(s)
	if err != nil {
		data = []byte(fmt.Sprintf("%#v", s))
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s#%d:%s:%s", planName, n, s.Op, hex.EncodeToString(sum[:8]))
}
