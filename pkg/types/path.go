package types

import "strings"

// Path addresses a category in the catalog tree: an ordered list of segment
// names from the root to the node. The empty Path is the root itself.
type Path []string

// NewPath copies segs into a new Path.
func NewPath(segs ...string) Path {
	return Path(segs).Clone()
}

// Clone returns an independent copy of p. A nil Path clones to an empty,
// non-nil Path so that it serializes as [] rather than null.
func (p Path) Clone() Path {
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// Len returns the number of segments.
func (p Path) Len() int { return len(p) }

// IsRoot reports whether p has no segments.
func (p Path) IsRoot() bool { return len(p) == 0 }

// Last returns the terminal segment, or "" for the root.
func (p Path) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Parent returns a copy of p without its terminal segment. The parent of the
// root is the root.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return Path{}
	}
	return p[:len(p)-1].Clone()
}

// Child returns a copy of p extended with name.
func (p Path) Child(name string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, name)
}

// Equal reports whether p and q have the same segments.
func (p Path) Equal(q Path) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix is a leading subsequence of p. Every path
// has the root as a prefix, and every path is a prefix of itself.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	return p[:len(prefix)].Equal(prefix)
}

// ReplacePrefix substitutes the leading oldPrefix of p with newPrefix and
// keeps the remaining suffix verbatim. It returns p unchanged (as a copy)
// and false when p does not start with oldPrefix.
func (p Path) ReplacePrefix(oldPrefix, newPrefix Path) (Path, bool) {
	if !p.HasPrefix(oldPrefix) {
		return p.Clone(), false
	}
	out := make(Path, 0, len(newPrefix)+len(p)-len(oldPrefix))
	out = append(out, newPrefix...)
	out = append(out, p[len(oldPrefix):]...)
	return out, true
}

// Validate checks that p has at least one segment and no empty segments.
func (p Path) Validate() error {
	if len(p) == 0 {
		return ErrInvalidPath
	}
	for _, s := range p {
		if strings.TrimSpace(s) == "" {
			return ErrInvalidPath
		}
	}
	return nil
}

// String joins the segments with " / ".
func (p Path) String() string {
	return strings.Join(p, " / ")
}

// ParsePath reads the form written by String. Segments are separated by "/"
// and trimmed; empty segments are dropped, so "" and "/" parse to the root.
func ParsePath(s string) Path {
	out := Path{}
	for _, seg := range strings.Split(s, "/") {
		if seg = strings.TrimSpace(seg); seg != "" {
			out = append(out, seg)
		}
	}
	return out
}
