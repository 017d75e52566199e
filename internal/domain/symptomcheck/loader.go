package symptomcheck

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Knowledge-base sources accepted by LoadKnowledgeBase.
const (
	SourceEmbedded = "embedded"
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

//go:embed knowledge_base.yaml
var defaultKnowledgeBase []byte

type knowledgeBaseDocument struct {
	Conditions []Condition `yaml:"conditions"`
	Vocabulary []string    `yaml:"vocabulary"`
}

// ParseKnowledgeBase decodes a YAML knowledge base and validates it.
func ParseKnowledgeBase(data []byte) (*KnowledgeBase, error) {
	var doc knowledgeBaseDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode knowledge base: %w", err)
	}
	if len(doc.Conditions) == 0 {
		return nil, fmt.Errorf("knowledge base has no conditions: %w", ErrInvalidCondition)
	}
	return NewKnowledgeBase(doc.Conditions, doc.Vocabulary)
}

// MarshalKnowledgeBase encodes kb in the format ParseKnowledgeBase reads.
func MarshalKnowledgeBase(kb *KnowledgeBase) ([]byte, error) {
	return yaml.Marshal(knowledgeBaseDocument{
		Conditions: kb.Conditions(),
		Vocabulary: kb.Vocabulary(),
	})
}

// DefaultKnowledgeBase returns the knowledge base compiled into the binary.
func DefaultKnowledgeBase() (*KnowledgeBase, error) {
	return ParseKnowledgeBase(defaultKnowledgeBase)
}

// LoadKnowledgeBaseFile reads and validates a YAML knowledge base from disk.
func LoadKnowledgeBaseFile(path string) (*KnowledgeBase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base %s: %w", path, err)
	}
	kb, err := ParseKnowledgeBase(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return kb, nil
}

// LoadKnowledgeBase loads the knowledge base from the configured source.
// repo is only consulted for SourcePostgres.
func LoadKnowledgeBase(ctx context.Context, source, path string, repo KnowledgeBaseRepository) (*KnowledgeBase, error) {
	switch source {
	case "", SourceEmbedded:
		return DefaultKnowledgeBase()
	case SourceFile:
		if path == "" {
			return nil, errors.New("knowledge base path is required for the file source")
		}
		return LoadKnowledgeBaseFile(path)
	case SourcePostgres:
		if repo == nil {
			return nil, errors.New("knowledge base repository is required for the postgres source")
		}
		return repo.Load(ctx)
	default:
		return nil, fmt.Errorf("unknown knowledge base source %q", source)
	}
}
