package models

const (
	PlaceholderNamePrefix = "uploaded_file_"
	DefaultQuery          = "What are the documents about and who are the authors?"
	DefaultAPIKeyPrefix   = "sk-"
	DefaultTopK           = 4
	ContextSeparator      = "\n\n"
	MinTemperature        = 0.0
	MaxTemperature        = 2.0
	TemperatureStep       = 0.1
)

// DefaultDelimiters are the leftovers removed from every chunk: tab, newline and runs of
// three and two spaces, in that order.
var DefaultDelimiters = []string{"\t", "\n", "   ", "  "}

// SplitterSeparators is the priority list used by the recursive splitter.
var SplitterSeparators = []string{"\n\n", " "}

var (
	RestrictedPromptTemplate = `Use the following pieces of context to answer the question at the end. If you don't know the answer, just say that you don't know, don't try to make up an answer. Keep the answer as concise as possible.
Context: {{.context}}
Question: {{.question}}
Helpful Answer:`

	CreativePromptTemplate = `Use the following pieces of context to answer the question at the end. If you don't know the answer, you may make inferences, but make it clear in your answer. Keep the answer as concise as possible.
Context: {{.context}}
Question: {{.question}}
Helpful Answer:`
)
