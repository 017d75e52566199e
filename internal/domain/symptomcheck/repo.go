package symptomcheck

import "context"

// KnowledgeBaseRepository stores a knowledge base outside the binary.
type KnowledgeBaseRepository interface {
	// Load reads every condition and the vocabulary and validates them.
	Load(ctx context.Context) (*KnowledgeBase, error)
	// Replace swaps the stored knowledge base for kb in one step.
	Replace(ctx context.Context, kb *KnowledgeBase) error
}
