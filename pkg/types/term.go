package types

import (
	"strings"
	"time"
)

// Language codes used for term titles.
const (
	LangEnglish = "en"
	LangHebrew  = "he"
)

// SchemeTOCCategories is the scheme of terms that back catalog categories.
const SchemeTOCCategories = "toc_categories"

// Title is one name of a Term in one language.
type Title struct {
	Text    string `json:"text"`
	Lang    string `json:"lang"`
	Primary bool   `json:"primary,omitempty"`
}

// Term is a shared, language-indexed name. Categories refer to it through
// SharedTitle. A term has exactly one primary title in every language for
// which it has titles at all.
type Term struct {
	TermID    string    `json:"term_id"` // UUID v7, generated on creation.
	Name      string    `json:"name"`    // Lookup key; unique within Scope.
	Scheme    string    `json:"scheme"`
	Scope     Path      `json:"scope"` // Empty for global terms.
	Titles    []Title   `json:"titles"`
	CreatedAt time.Time `json:"created_at"`
}

// PrimaryTitle returns the primary title for lang, or "" if there is none.
func (t *Term) PrimaryTitle(lang string) string {
	for _, tt := range t.Titles {
		if tt.Lang == lang && tt.Primary {
			return tt.Text
		}
	}
	return ""
}

// HasTitle reports whether text is a title of t in lang.
func (t *Term) HasTitle(text, lang string) bool {
	return t.indexOf(text, lang) >= 0
}

func (t *Term) indexOf(text, lang string) int {
	for i, tt := range t.Titles {
		if tt.Text == text && tt.Lang == lang {
			return i
		}
	}
	return -1
}

// AddTitle adds text as a title in lang. When primary is set and lang already
// has a primary title, replacePrimary demotes the old one; otherwise
// ErrDuplicatePrimary is returned. Adding an existing title is not an error;
// with primary set it promotes that title.
func (t *Term) AddTitle(text, lang string, primary, replacePrimary bool) error {
	if strings.TrimSpace(text) == "" {
		return ErrInvalidTitle
	}
	if lang == "" {
		return ErrInvalidLanguage
	}

	if primary {
		current := t.PrimaryTitle(lang)
		if current != "" && current != text {
			if !replacePrimary {
				return ErrDuplicatePrimary
			}
			for i := range t.Titles {
				if t.Titles[i].Lang == lang {
					t.Titles[i].Primary = false
				}
			}
		}
	}

	if i := t.indexOf(text, lang); i >= 0 {
		if primary {
			t.Titles[i].Primary = true
		}
		return nil
	}
	t.Titles = append(t.Titles, Title{Text: text, Lang: lang, Primary: primary})
	return nil
}

// RemoveTitle deletes text from lang. Removing the primary title leaves the
// language without one until another title is promoted; Validate catches a
// term saved in that state.
func (t *Term) RemoveTitle(text, lang string) error {
	i := t.indexOf(text, lang)
	if i < 0 {
		return ErrTitleNotFound
	}
	t.Titles = append(t.Titles[:i], t.Titles[i+1:]...)
	return nil
}

// AddPrimaryTitles sets the English and Hebrew primary titles.
func (t *Term) AddPrimaryTitles(en, he string) error {
	if err := t.AddTitle(en, LangEnglish, true, true); err != nil {
		return err
	}
	return t.AddTitle(he, LangHebrew, true, true)
}

// Validate checks the name and the one-primary-per-language rule.
func (t *Term) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrInvalidName
	}
	primaries := make(map[string]int)
	for _, tt := range t.Titles {
		if tt.Text == "" {
			return ErrInvalidTitle
		}
		if tt.Lang == "" {
			return ErrInvalidLanguage
		}
		if _, ok := primaries[tt.Lang]; !ok {
			primaries[tt.Lang] = 0
		}
		if tt.Primary {
			primaries[tt.Lang]++
		}
	}
	for _, n := range primaries {
		switch {
		case n == 0:
			return ErrMissingPrimary
		case n > 1:
			return ErrDuplicatePrimary
		}
	}
	return nil
}
