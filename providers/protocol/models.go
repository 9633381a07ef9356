package protocol

/*
	##### CAPABILITY INPUT #####
*/

// RunRequest carries everything the generation capability needs for one
// protocol turn.
type RunRequest struct {
	Protocol string `json:"protocol"` // Protocol kind of the node being run (e.g. "chapter", "critique")
	Payload  string `json:"payload"`  // Serialized effective configuration for the run
}

// File is a named source document whose content has already been extracted
// to plain text or markdown.
type File struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Scope is the interpretive lens applied during extraction: what the target
// document is about and any extra steering instructions.
type Scope struct {
	ContextText  string `json:"context_text"`
	Instructions string `json:"instructions,omitempty"`
}

// Depth selects how aggressively the extraction capability compresses source
// material, trading completeness against token economy.
type Depth string

const (
	// DepthExhaustive keeps as much source detail as possible.
	DepthExhaustive Depth = "exhaustive"

	// DepthBalanced is the default trade-off between detail and cost.
	DepthBalanced Depth = "balanced"

	// DepthNotes produces high-compression study notes.
	DepthNotes Depth = "notes"
)

// ExtractRequest asks the extraction capability to digest the given files
// through the scope at the requested depth.
type ExtractRequest struct {
	Files []File `json:"files"`
	Scope Scope  `json:"scope"`
	Depth Depth  `json:"depth"`
}

/*
	##### CAPABILITY OUTPUT #####
*/

// Usage counts the tokens consumed by a capability call. Counts accumulate
// across chunked sub-calls and across the runs of a node.
type Usage struct {
	PromptTokens   int `json:"prompt_tokens,omitempty"`
	ResponseTokens int `json:"response_tokens,omitempty"`
	TotalTokens    int `json:"total_tokens,omitempty"`
}

// Add accumulates other into u.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.ResponseTokens += other.ResponseTokens
	u.TotalTokens += other.TotalTokens
}

// Citation is one grounding reference attached to a generated response.
type Citation struct {
	URI   string `json:"uri"`
	Title string `json:"title,omitempty"`
}

// RunResult is the outcome of a Run or Continue call.
type RunResult struct {
	// Handle identifies the conversation for subsequent Continue calls.
	Handle Handle `json:"-"`

	// PromptEcho is the full prompt the capability sent to the model.
	// Empty for Continue results.
	PromptEcho string `json:"prompt_echo,omitempty"`

	// ResponseText is the raw model output before any classification or
	// boilerplate stripping.
	ResponseText string `json:"response_text"`

	Usage         Usage      `json:"usage"`
	Citations     []Citation `json:"citations,omitempty"`
	SearchQueries []string   `json:"search_queries,omitempty"`
}

// ExtractResult is the outcome of an Extract call.
type ExtractResult struct {
	Text  string `json:"text"`
	Usage Usage  `json:"usage"`
}
