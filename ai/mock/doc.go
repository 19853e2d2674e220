// Package mock provides test double implementations of AI service interfaces.
//
// The mocks allow tests to run without an embedding service and give
// controlled, deterministic behavior.
//
// # Usage in Tests
//
//	embedder := mock.NewMockEmbedderWithDimensions(3)
//	vector, err := embedder.EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return []float32{0.1, 0.2, 0.3}, nil
//	}
//
//	// Check call counts and inputs
//	count := embedder.CallCount()
//	texts := embedder.Texts()
package mock
