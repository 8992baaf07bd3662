// Package batch implements bulk acquisition of team submissions: packaging
// into a single archive or spaced per-item fetches.
package batch

import "github.com/hrhgit/loginweb-cli/internal/models"

// SelectionSet holds the submissions chosen for a batch operation. Insertion
// order is preserved and duplicate teams are ignored.
type SelectionSet struct {
	items []models.Submission
	seen  map[string]bool
}

func NewSelectionSet() *SelectionSet {
	return &SelectionSet{seen: make(map[string]bool)}
}

// Add appends a submission unless its team is already selected. Returns
// whether the submission was added.
func (s *SelectionSet) Add(sub models.Submission) bool {
	if s.seen[sub.TeamID] {
		return false
	}
	s.seen[sub.TeamID] = true
	s.items = append(s.items, sub)
	return true
}

// Contains reports whether the team is already selected.
func (s *SelectionSet) Contains(teamID string) bool {
	return s.seen[teamID]
}

// Items returns the selected submissions in insertion order.
func (s *SelectionSet) Items() []models.Submission {
	return s.items
}

func (s *SelectionSet) Len() int {
	return len(s.items)
}
