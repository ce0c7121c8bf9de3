package protocol

// Completion reference types
const (
	CompletionRefPrompt   = "ref/prompt"
	CompletionRefResource = "ref/resource"
)

// CompletionReference names the prompt or resource template a completion
// request targets. Type is ref/prompt (Name set) or ref/resource (URI set).
type CompletionReference struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
	URI  string `json:"uri,omitempty"`
}

// CompletionArgument is the argument being completed and its partial value
type CompletionArgument struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CompleteParams defines parameters for the completion/complete request
type CompleteParams struct {
	Ref      CompletionReference `json:"ref"`
	Argument CompletionArgument  `json:"argument"`
}

// CompletionResult carries the ranked candidate values for one request
type CompletionResult struct {
	Values  []string `json:"values"`
	Total   int      `json:"total,omitempty"`
	HasMore bool     `json:"hasMore"`
}

// CompleteResult defines the response for the completion/complete request
type CompleteResult struct {
	Completion CompletionResult `json:"completion"`
}
