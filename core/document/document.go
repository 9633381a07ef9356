// Package document maintains each node's curated content sections,
// independent of raw chat history. Users promote generated text into
// sections, edit them with full version history, and roll back to any prior
// version.
//
// Version histories are append-only: updating a section adds a version and
// moves the active pointer; reverting only moves the pointer. Deleting a
// section removes it entirely.
package document

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eli0s78/Universal-Academic-Workflow/core/workflow"
)

var (
	// ErrSectionNotFound is returned when a section ID does not exist on the
	// node.
	ErrSectionNotFound = errors.New("document: section not found")

	// ErrVersionNotFound is returned when reverting to a version ID that is
	// not in the section's history.
	ErrVersionNotFound = errors.New("document: version not found")
)

// fallbackTitle is used when no heading-like line can be derived from content.
const fallbackTitle = "Untitled Section"

// Store performs section operations against the workflow's execution states.
type Store struct {
	workflow *workflow.Workflow
}

// NewStore creates a Store bound to the given workflow.
func NewStore(w *workflow.Workflow) *Store {
	return &Store{workflow: w}
}

// AddSection creates a new section from the given content, ordered after all
// existing sections, with a single initial version tagged with source. The
// title is auto-derived from the first heading-like or numbered line.
// sourceMessageID optionally links the section back to the conversation
// message it was promoted from.
func (store *Store) AddSection(nodeID, content string, source workflow.VersionSource, sourceMessageID string) (workflow.VersionedSection, error) {
	version := workflow.SectionVersion{
		ID:        uuid.NewString(),
		Content:   content,
		CreatedAt: time.Now(),
		Source:    source,
	}

	section := workflow.VersionedSection{
		ID:              uuid.NewString(),
		Title:           DeriveTitle(content),
		Versions:        []workflow.SectionVersion{version},
		ActiveVersionID: version.ID,
		SourceMessageID: sourceMessageID,
	}

	err := store.workflow.UpdateState(nodeID, func(state *workflow.ExecutionState) {
		section.Order = len(state.Sections) + 1
		state.Sections = append(state.Sections, section)
	})
	if err != nil {
		return workflow.VersionedSection{}, err
	}
	return section, nil
}

// UpdateSection appends a new user-edited version with the given content and
// makes it active. Prior versions are never mutated or removed.
func (store *Store) UpdateSection(nodeID, sectionID, content string) error {
	return store.mutateSection(nodeID, sectionID, func(section *workflow.VersionedSection) error {
		version := workflow.SectionVersion{
			ID:        uuid.NewString(),
			Content:   content,
			CreatedAt: time.Now(),
			Source:    workflow.SourceUserEdited,
		}
		section.Versions = append(section.Versions, version)
		section.ActiveVersionID = version.ID
		return nil
	})
}

// DeleteSection removes the section entirely.
func (store *Store) DeleteSection(nodeID, sectionID string) error {
	found := false
	err := store.workflow.UpdateState(nodeID, func(state *workflow.ExecutionState) {
		for index := range state.Sections {
			if state.Sections[index].ID == sectionID {
				state.Sections = append(state.Sections[:index], state.Sections[index+1:]...)
				found = true
				return
			}
		}
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrSectionNotFound, sectionID)
	}
	return nil
}

// RevertSection repoints the active version to an existing version in the
// section's history without creating a new version.
func (store *Store) RevertSection(nodeID, sectionID, versionID string) error {
	return store.mutateSection(nodeID, sectionID, func(section *workflow.VersionedSection) error {
		for _, version := range section.Versions {
			if version.ID == versionID {
				section.ActiveVersionID = versionID
				return nil
			}
		}
		return fmt.Errorf("%w: %s", ErrVersionNotFound, versionID)
	})
}

// Sections returns copies of the node's sections.
func (store *Store) Sections(nodeID string) ([]workflow.VersionedSection, error) {
	state, exists := store.workflow.State(nodeID)
	if !exists {
		return nil, fmt.Errorf("%w: %s", workflow.ErrNodeNotFound, nodeID)
	}
	return state.Sections, nil
}

func (store *Store) mutateSection(nodeID, sectionID string, mutate func(*workflow.VersionedSection) error) error {
	var mutateErr error
	found := false

	err := store.workflow.UpdateState(nodeID, func(state *workflow.ExecutionState) {
		for index := range state.Sections {
			if state.Sections[index].ID == sectionID {
				found = true
				mutateErr = mutate(&state.Sections[index])
				return
			}
		}
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrSectionNotFound, sectionID)
	}
	return mutateErr
}

// numberedLinePattern matches numbered headings like "1. Introduction",
// "2.3 Methods" or "4) Results".
var numberedLinePattern = regexp.MustCompile(`^\d+(\.\d+)*[.)]?\s+\S`)

// DeriveTitle extracts a display title from section content: the first
// markdown heading or numbered line, truncated to a reasonable length.
// Returns "Untitled Section" when nothing heading-like is found.
func DeriveTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if trimmed := strings.TrimLeft(line, "#"); trimmed != line {
			return clipTitle(strings.TrimSpace(trimmed))
		}
		if numberedLinePattern.MatchString(line) {
			return clipTitle(line)
		}
	}
	return fallbackTitle
}

func clipTitle(title string) string {
	const maxTitleLength = 80
	if title == "" {
		return fallbackTitle
	}
	if len(title) > maxTitleLength {
		return strings.TrimSpace(title[:maxTitleLength])
	}
	return title
}
