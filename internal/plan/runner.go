package plan

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/librarian/internal/reorg"
	"github.com/mesh-intelligence/librarian/internal/toc"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

// Result summarizes a plan run.
type Result struct {
	Applied int              `json:"applied"`
	Skipped int              `json:"skipped"`
	Moved   reorg.MoveReport `json:"moved"`
	TOC     *toc.Report      `json:"toc,omitempty"` // set when the plan rebuilt the table of contents
}

// Runner applies plans to an attached library.
type Runner struct {
	lib types.Library
	log logrus.FieldLogger
	rz  *reorg.Reorganizer // unbound; each step binds it to its transaction
}

// NewRunner returns a Runner for lib. The reorganizer options are applied to
// every step; the runner's logger is passed on unless an option overrides it.
func NewRunner(lib types.Library, log logrus.FieldLogger, opts ...reorg.Option) *Runner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Runner{
		lib: lib,
		log: log,
		rz:  reorg.New(nil, append([]reorg.Option{reorg.WithLogger(log)}, opts...)...),
	}
}

// Run applies the steps of p in order. Each step and its journal entry are
// committed together, and steps already in the journal are skipped, so a
// run that stopped on an error can be repeated once the cause is fixed.
//
// When p is atomic every step runs in one transaction and a failure leaves
// the catalog and the journal as they were. The context is checked between
// steps.
func (r *Runner) Run(ctx context.Context, p *Plan) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	res := &Result{}
	log := r.log.WithField("plan", p.Name)

	if p.Atomic {
		rebuild := false
		err := r.lib.Transaction(func(tx types.TableSource) error {
			for i, s := range p.Steps {
				if err := ctx.Err(); err != nil {
					return err
				}
				applied, err := r.step(tx, log, p.Name, i+1, s, res)
				if err != nil {
					return fmt.Errorf("step %d (%s): %w", i+1, s.Op, err)
				}
				if applied && s.Op == OpRebuild {
					rebuild = true
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		if rebuild {
			if err := r.rebuild(res); err != nil {
				return res, err
			}
		}
		return res, nil
	}

	for i, s := range p.Steps {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		var applied bool
		err := r.lib.Transaction(func(tx types.TableSource) error {
			var err error
			applied, err = r.step(tx, log, p.Name, i+1, s, res)
			return err
		})
		if err != nil {
			return res, fmt.Errorf("step %d (%s): %w", i+1, s.Op, err)
		}
		if applied && s.Op == OpRebuild {
			if err := r.rebuild(res); err != nil {
				return res, fmt.Errorf("step %d (%s): %w", i+1, s.Op, err)
			}
		}
	}
	return res, nil
}

// step applies s through tx unless its key is already journaled, then
// records it. It reports whether the step was applied.
func (r *Runner) step(tx types.TableSource, log logrus.FieldLogger, planName string, n int, s Step, res *Result) (bool, error) {
	key := s.Key(planName, n)
	log = log.WithFields(logrus.Fields{"step": n, "op": s.Op, "key": key})

	journal, err := tx.GetTable(types.TableJournal)
	if err != nil {
		return false, err
	}
	done, err := journal.Fetch(types.Filter{types.FilterKey: key})
	if err != nil {
		return false, err
	}
	if len(done) > 0 {
		log.Debug("step already applied")
		res.Skipped++
		return false, nil
	}

	moved, err := apply(r.rz.Bind(tx), s)
	if err != nil {
		return false, err
	}

	entry := &types.JournalEntry{Plan: planName, Step: n, Op: s.Op, Key: key}
	if _, err := journal.Set("", entry); err != nil {
		return false, fmt.Errorf("recording step: %w", err)
	}
	res.Applied++
	res.Moved.Add(moved)
	log.WithFields(logrus.Fields{
		"categories": moved.Categories,
		"indexes":    moved.Indexes,
	}).Info("applied step")
	return true, nil
}

func (r *Runner) rebuild(res *Result) error {
	tree, err := toc.Rebuild(r.lib, r.lib.DataDir())
	if err != nil {
		return fmt.Errorf("rebuilding toc: %w", err)
	}
	rep := tree.Report()
	res.TOC = &rep
	if !rep.Clean() {
		r.log.WithFields(logrus.Fields{
			"orphan_indexes":    len(rep.OrphanIndexes),
			"orphan_categories": len(rep.OrphanCategories),
			"empty_categories":  len(rep.EmptyCategories),
		}).Warn("table of contents has problems")
	}
	return nil
}

// apply dispatches one step to the reorganizer.
func apply(rz *reorg.Reorganizer, s Step) (reorg.MoveReport, error) {
	var none reorg.MoveReport

	switch s.Op {
	case OpMoveIndex:
		idx, err := rz.Index(s.Index)
		if err != nil {
			return none, err
		}
		cat, err := rz.Category(types.Path(s.Into))
		if err != nil {
			return none, err
		}
		if err := rz.MoveIndexInto(idx, cat); err != nil {
			return none, err
		}
		return reorg.MoveReport{Indexes: 1}, nil

	case OpMoveCategory, OpMoveChildren:
		cat, err := rz.Category(types.Path(s.Category))
		if err != nil {
			return none, err
		}
		var parent *types.Category
		if len(s.Into) > 0 {
			if parent, err = rz.Category(types.Path(s.Into)); err != nil {
				return none, err
			}
		}
		if s.Op == OpMoveChildren {
			return rz.MoveChildrenInto(cat, parent)
		}
		return rz.MoveCategoryInto(cat, parent)

	case OpCreateCategory:
		if _, err := rz.CreateCategory(types.NewPath(s.Path...), s.En, s.He); err != nil {
			return none, err
		}
		return reorg.MoveReport{Categories: 1}, nil

	case OpRenameCategory:
		cat, err := rz.Category(types.Path(s.Category))
		if err != nil {
			return none, err
		}
		if err := rz.RenameCategory(cat, s.Name); err != nil {
			return none, err
		}
		return reorg.MoveReport{Categories: 1}, nil

	case OpRenameSegment:
		cat, err := rz.Category(types.Path(s.Category))
		if err != nil {
			return none, err
		}
		return rz.RenameSegment(cat, s.Name)

	case OpRewritePrefix:
		return rz.RewritePrefix(types.NewPath(s.From...), types.NewPath(s.To...))

	case OpDeleteCategory:
		cat, err := rz.Category(types.Path(s.Category))
		if err != nil {
			return none, err
		}
		return none, rz.DeleteCategory(cat)

	case OpSetTermPrimary:
		return none, rz.SetTermPrimary(s.Term, types.NewPath(s.Scope...), s.Lang, s.Title)

	case OpSetOrder, OpHideIndex, OpClearDependence:
		idx, err := rz.Index(s.Index)
		if err != nil {
			return none, err
		}
		switch s.Op {
		case OpSetOrder:
			err = rz.SetIndexOrder(idx, s.Order)
		case OpHideIndex:
			err = rz.HideIndex(idx)
		default:
			err = rz.ClearDependence(idx)
		}
		return none, err

	case OpRebuild:
		return none, nil
	}
	return none, fmt.Errorf("%w %q", ErrUnknownOp, s.Op)
}
