package reorg

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

// CreateTerm creates a category term named name in scope with English and
// Hebrew primary titles.
func (r *Reorganizer) CreateTerm(name string, scope types.Path, en, he string) (*types.Term, error) {
	terms, err := r.table(types.TableTerms)
	if err != nil {
		return nil, err
	}

	term := &types.Term{
		Name:   name,
		Scheme: types.SchemeTOCCategories,
		Scope:  scope.Clone(),
	}
	if err := term.AddPrimaryTitles(en, he); err != nil {
		return nil, fmt.Errorf("creating term %q: %w", name, err)
	}
	if _, err := terms.Set("", term); err != nil {
		return nil, fmt.Errorf("creating term %q: %w", name, err)
	}

	r.log.WithFields(logrus.Fields{
		"op":   "create_term",
		"term": name,
		"en":   en,
		"he":   he,
	}).Info("created term")
	return term, nil
}

// SetTermPrimary makes title the primary title of the term in lang. The
// previous primary title of that language is removed from the term.
func (r *Reorganizer) SetTermPrimary(name string, scope types.Path, lang, title string) error {
	term, err := r.Term(name, scope)
	if err != nil {
		return err
	}

	previous := term.PrimaryTitle(lang)
	if err := term.AddTitle(title, lang, true, true); err != nil {
		return fmt.Errorf("setting primary title of %q: %w", name, err)
	}
	if previous != "" && previous != title {
		if err := term.RemoveTitle(previous, lang); err != nil {
			return fmt.Errorf("setting primary title of %q: %w", name, err)
		}
	}

	terms, err := r.table(types.TableTerms)
	if err != nil {
		return err
	}
	if _, err := terms.Set(term.TermID, term); err != nil {
		return fmt.Errorf("setting primary title of %q: %w", name, err)
	}

	r.log.WithFields(logrus.Fields{
		"op":   "set_term_primary",
		"term": name,
		"lang": lang,
		"from": previous,
		"to":   title,
	}).Info("changed primary title")
	return nil
}
