// Package resolve computes what a node should actually run with. Given a
// target node and the full graph, it overlays values inherited from upstream
// nodes onto the node's own configuration according to type-directed merge
// rules, and reports per-field provenance so the editor can mark inherited
// fields as locked.
//
// Resolution is pure: it never mutates stored node configs, and resolving the
// same graph snapshot twice yields structurally equal results. Persisting
// resolved values back onto a node is the execution controller's job, after a
// successful run.
package resolve

import (
	"fmt"
	"strings"

	"github.com/eli0s78/Universal-Academic-Workflow/core/workflow"
)

// Provenance field keys. They match the Config JSON field names.
const (
	FieldTitle            = "title"
	FieldSubtitle         = "subtitle"
	FieldWordCount        = "word_count"
	FieldLanguage         = "language"
	FieldInstructions     = "instructions"
	FieldOutline          = "outline"
	FieldDraft            = "draft"
	FieldReview           = "review"
	FieldBibliography     = "bibliography"
	FieldSecondarySources = "secondary_sources"
)

// Resolution is the outcome of resolving one node: the effective
// configuration the node should run with, and a map from inherited field name
// to the display name of the upstream node that supplied it.
type Resolution struct {
	Config     workflow.Config
	Provenance map[string]string
}

// Resolver computes effective configurations against a workflow graph.
type Resolver struct {
	workflow *workflow.Workflow
}

// New creates a Resolver bound to the given workflow.
func New(w *workflow.Workflow) *Resolver {
	return &Resolver{workflow: w}
}

// Resolve computes the effective configuration and provenance map for the
// node with the given ID.
//
// Edges whose source no longer exists are silently ignored: they are expected
// transient states during interactive editing. A node with no incoming edges
// resolves to its own config with an empty provenance map. A visited set
// guards every upstream traversal, so a user-constructed cycle degrades to
// ignored edges instead of unbounded recursion.
func (r *Resolver) Resolve(nodeID string) (*Resolution, error) {
	target, exists := r.workflow.Node(nodeID)
	if !exists {
		return nil, fmt.Errorf("%w: %s", workflow.ErrNodeNotFound, nodeID)
	}

	merge := &merger{
		target:     target,
		effective:  target.Config.Clone(),
		provenance: make(map[string]string),
	}

	visited := map[string]bool{nodeID: true}

	for _, edge := range r.workflow.IncomingEdges(nodeID) {
		source, sourceExists := r.workflow.Node(edge.Source)
		if !sourceExists || visited[source.ID] {
			continue
		}
		r.mergeEdge(merge, source, visited)
	}

	merge.compose()

	return &Resolution{
		Config:     merge.effective,
		Provenance: merge.provenance,
	}, nil
}

// mergeEdge applies the type-directed merge rules for one incoming edge.
func (r *Resolver) mergeEdge(merge *merger, source workflow.Node, visited map[string]bool) {
	switch source.Type {
	case workflow.TypeProjectDefinition:
		merge.applyProjectMetadata(source)
		return

	case workflow.TypeContextLibrary:
		content := r.producedContent(source.ID)
		if content == "" {
			return
		}
		merge.appendTaggedContext(source, content)
		return
	}

	// Already-resolved upstream bibliographies forward as-is, independent of
	// the content mapping below and of any tagged context blocks.
	if source.Config.Bibliography != "" {
		merge.forwardBibliography(source)
	}

	// Metadata-independent content inheritance for all remaining source types.
	content := r.producedContent(source.ID)
	if content == "" {
		return
	}

	switch {
	case source.Type == workflow.TypeOutline && merge.target.Type == workflow.TypeChapter:
		merge.setOutline(source, content)

	case merge.target.Type == workflow.TypeCritique || merge.target.Type == workflow.TypeCitationCheck:
		merge.setDraft(source, content, false)

	case merge.target.Type == workflow.TypeSynthesis:
		if source.Type == workflow.TypeCritique {
			merge.setReview(source, content)
			// Synthesis needs the original draft too, not just the critique,
			// so trace one hop further back to the critique's own upstream.
			r.traceDraftThroughCritique(merge, source, visited)
		} else {
			merge.setDraft(source, content, false)
		}

	case merge.target.Type == workflow.TypeNotes:
		merge.appendLabeledSource(source, content)
	}
}

// traceDraftThroughCritique populates the synthesis target's draft field from
// the critique node's own upstream draft source.
func (r *Resolver) traceDraftThroughCritique(merge *merger, critique workflow.Node, visited map[string]bool) {
	visited[critique.ID] = true

	for _, edge := range r.workflow.IncomingEdges(critique.ID) {
		upstream, exists := r.workflow.Node(edge.Source)
		if !exists || visited[upstream.ID] {
			continue
		}
		switch upstream.Type {
		case workflow.TypeProjectDefinition, workflow.TypeContextLibrary:
			continue
		}
		content := r.producedContent(upstream.ID)
		if content == "" {
			continue
		}
		merge.setDraft(upstream, content, true)
		return
	}
}

// producedContent resolves what a node has produced: the concatenation of its
// document sections (active versions, in order) when any exist, otherwise the
// concatenation of its visible assistant messages.
func (r *Resolver) producedContent(nodeID string) string {
	state, exists := r.workflow.State(nodeID)
	if !exists {
		return ""
	}
	if sectionText := state.SectionText(); sectionText != "" {
		return sectionText
	}
	return state.VisibleAssistantText()
}

// merger accumulates inherited values across incoming edges and composes the
// final effective config. Accumulation is separated from composition so that
// edge processing order never lets one channel silently overwrite another.
type merger struct {
	target     workflow.Node
	effective  workflow.Config
	provenance map[string]string

	// draftFromCritiqueChain marks a draft supplied by the two-hop synthesis
	// lookup, which takes precedence over direct draft inheritance.
	draftFromCritiqueChain bool

	forwardedBibliography string
	forwardedBibFrom      string

	taggedBlocks []string
	taggedFrom   []string

	secondaryBlocks []string
	secondaryFrom   []string
}

func (merge *merger) applyProjectMetadata(source workflow.Node) {
	sourceName := source.DisplayName()
	metadata := source.Config.Metadata

	if metadata.Title != "" {
		merge.effective.Title = metadata.Title
		merge.provenance[FieldTitle] = sourceName
	}
	if metadata.Subtitle != "" {
		merge.effective.Subtitle = metadata.Subtitle
		merge.provenance[FieldSubtitle] = sourceName
	}
	if metadata.WordCount > 0 {
		merge.effective.WordCount = metadata.WordCount
		merge.provenance[FieldWordCount] = sourceName
	}
	if metadata.Language != "" {
		merge.effective.Language = metadata.Language
		merge.provenance[FieldLanguage] = sourceName
	}
	if metadata.Instructions != "" {
		block := fmt.Sprintf("=== Project instructions (%s) ===\n%s", sourceName, metadata.Instructions)
		if merge.effective.Instructions == "" {
			merge.effective.Instructions = block
		} else {
			merge.effective.Instructions += "\n\n" + block
		}
		merge.provenance[FieldInstructions] = sourceName
	}
}

// appendTaggedContext wraps context-library content in an identifying
// envelope and routes it into both the bibliography and secondary-source
// channels. The envelope keeps multiple context sources distinguishable to a
// downstream consumer even after concatenation.
func (merge *merger) appendTaggedContext(source workflow.Node, content string) {
	sourceName := source.DisplayName()
	envelope := fmt.Sprintf("<context_source id=%q>\n%s\n</context_source>", sourceName, content)

	merge.taggedBlocks = append(merge.taggedBlocks, envelope)
	merge.taggedFrom = append(merge.taggedFrom, sourceName)

	merge.secondaryBlocks = append(merge.secondaryBlocks, envelope)
	merge.secondaryFrom = append(merge.secondaryFrom, sourceName)
}

func (merge *merger) appendLabeledSource(source workflow.Node, content string) {
	sourceName := source.DisplayName()
	block := fmt.Sprintf("=== %s (%s) ===\n%s", source.Type, sourceName, content)
	merge.secondaryBlocks = append(merge.secondaryBlocks, block)
	merge.secondaryFrom = append(merge.secondaryFrom, sourceName)
}

func (merge *merger) setOutline(source workflow.Node, content string) {
	merge.effective.Outline = content
	merge.provenance[FieldOutline] = source.DisplayName()
}

func (merge *merger) setDraft(source workflow.Node, content string, fromCritiqueChain bool) {
	if merge.draftFromCritiqueChain && !fromCritiqueChain {
		return
	}
	merge.effective.Draft = content
	merge.provenance[FieldDraft] = source.DisplayName()
	if fromCritiqueChain {
		merge.draftFromCritiqueChain = true
	}
}

func (merge *merger) setReview(source workflow.Node, content string) {
	merge.effective.Review = content
	merge.provenance[FieldReview] = source.DisplayName()
}

func (merge *merger) forwardBibliography(source workflow.Node) {
	if merge.forwardedBibliography != "" {
		return
	}
	merge.forwardedBibliography = source.Config.Bibliography
	merge.forwardedBibFrom = source.DisplayName()
}

// compose folds the accumulated channels into the effective config. The
// target's own values stay first in every concatenated field.
func (merge *merger) compose() {
	// Bibliography: own value, else forwarded upstream value, then tagged
	// context blocks. Tagged content combines with a forwarded bibliography
	// rather than replacing it.
	bibliography := merge.effective.Bibliography
	var bibliographyFrom []string

	if bibliography == "" && merge.forwardedBibliography != "" {
		bibliography = merge.forwardedBibliography
		bibliographyFrom = append(bibliographyFrom, merge.forwardedBibFrom)
	}
	if len(merge.taggedBlocks) > 0 {
		blocks := merge.taggedBlocks
		if bibliography != "" {
			blocks = append([]string{bibliography}, blocks...)
		}
		bibliography = strings.Join(blocks, "\n\n")
		bibliographyFrom = append(bibliographyFrom, merge.taggedFrom...)
	}
	merge.effective.Bibliography = bibliography
	if len(bibliographyFrom) > 0 {
		merge.provenance[FieldBibliography] = strings.Join(bibliographyFrom, ", ")
	}

	// Secondary sources: own value first, then every labeled block in edge
	// order. Accumulation never overwrites.
	if len(merge.secondaryBlocks) > 0 {
		blocks := merge.secondaryBlocks
		if merge.effective.SecondarySources != "" {
			blocks = append([]string{merge.effective.SecondarySources}, blocks...)
		}
		merge.effective.SecondarySources = strings.Join(blocks, "\n\n")
		merge.provenance[FieldSecondarySources] = strings.Join(merge.secondaryFrom, ", ")
	}
}
