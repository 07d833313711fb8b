// Package mock provides test double implementations of the ai interfaces.
//
// This package contains a mock implementation of ai.Embedder for use in unit
// tests. The mock allows tests to run without external embedding services
// and enables controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default deterministic vectors
//	mockEmbedder := mock.NewMockEmbedder()
//	vector, err := mockEmbedder.EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	mockEmbedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return nil, errors.New("provider down")
//	}
//
//	// Check call counts
//	count := mockEmbedder.CallCount()
//
// Default behavior produces a unit vector derived from an FNV hash of the
// text, so identical texts always embed identically and assertions on
// similarity ordering are stable across runs.
package mock
