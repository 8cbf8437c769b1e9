package genai

// Namespace is the first segment of every serialization id in this module.
const Namespace = "genbridge"

// Known cloud model identifiers.
const (
	ModelCohereCommand      = "cohere.command"
	ModelCohereCommandLight = "cohere.command-light"
	ModelCohereEmbedEnglish = "cohere.embed-english-v3.0"
	ModelCohereEmbedLight   = "cohere.embed-english-light-v2.0"
	ModelCohereEmbedMulti   = "cohere.embed-multilingual-v3.0"
)

// ModelInfo describes a known cloud model.
type ModelInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Tasks       []Task `json:"tasks,omitempty"`
	Embedding   bool   `json:"embedding"`
	MaxTokens   int    `json:"max_tokens,omitempty"`
}

// Supports reports whether the model serves the given task.
func (m ModelInfo) Supports(t Task) bool {
	for _, s := range m.Tasks {
		if s == t {
			return true
		}
	}
	return false
}

// Models is the built-in catalog of cloud models.
var Models = []ModelInfo{
	{
		ID: ModelCohereCommand, DisplayName: "Cohere Command",
		Tasks:     []Task{TaskTextGeneration, TaskSummarize},
		MaxTokens: 4096,
	},
	{
		ID: ModelCohereCommandLight, DisplayName: "Cohere Command Light",
		Tasks:     []Task{TaskTextGeneration, TaskSummarize},
		MaxTokens: 4096,
	},
	{ID: ModelCohereEmbedEnglish, DisplayName: "Cohere Embed English v3", Embedding: true},
	{ID: ModelCohereEmbedLight, DisplayName: "Cohere Embed English Light v2", Embedding: true},
	{ID: ModelCohereEmbedMulti, DisplayName: "Cohere Embed Multilingual v3", Embedding: true},
}

// ModelFor returns the catalog entry for id, or nil. Unknown ids are still
// accepted by the adapters.
func ModelFor(id string) *ModelInfo {
	for i := range Models {
		if Models[i].ID == id {
			return &Models[i]
		}
	}
	return nil
}
