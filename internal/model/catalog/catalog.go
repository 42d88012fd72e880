package catalog

// Model describes one selectable chat model.
type Model struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Reasoning   bool   `json:"reasoning"`
}

// Seed returns the built-in model catalog. The first entry is the default.
func Seed() []Model {
	return []Model{
		{
			ID:          "chat-model",
			Name:        "Chat model",
			Description: "Primary model for all-purpose chat",
		},
		{
			ID:          "chat-model-reasoning",
			Name:        "Reasoning model",
			Description: "Uses advanced reasoning with visible thinking",
			Reasoning:   true,
		},
	}
}
