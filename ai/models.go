package ai

// modelDimensions maps known embedding model identifiers to the vector
// width they produce. Used to size vectors without a probe call when the
// model is recognized.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
	"embeddinggemma":         768,
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"all-minilm":             384,
}

// DefaultModelDimension is assumed for models not present in the table.
const DefaultModelDimension = 768

// ModelDimension returns the vector width of a known embedding model, or
// DefaultModelDimension when the model is not recognized.
func ModelDimension(model string) int {
	if dim, ok := modelDimensions[model]; ok {
		return dim
	}
	return DefaultModelDimension
}
