package generation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// StubAI returns deterministic content references without calling a real
// model. Used in development; the production Gemini client plugs in behind
// the AI interface.
type StubAI struct{}

func (StubAI) GenerateFashion(_ context.Context, prompt, _ string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("empty prompt")
	}
	return "https://cdn.traion.local/generated/" + uuid.NewString() + ".png", nil
}

func (StubAI) TryOn(_ context.Context, productImageURL, userImageURL string) (string, error) {
	if productImageURL == "" || userImageURL == "" {
		return "", fmt.Errorf("both product and user images are required")
	}
	return "https://cdn.traion.local/tryon/" + uuid.NewString() + ".png", nil
}
