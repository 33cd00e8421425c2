// Package llm provides chat-completion providers used for answer generation.
package llm

import (
	"context"
	"fmt"
	"sort"

	"github.com/citewise/citewise/internal/errs"
)

// Provider generates an answer for a user query given retrieved context.
type Provider interface {
	Generate(ctx context.Context, query, contextText string) (string, error)
}

// systemPrompt instructs the model to answer strictly from the supplied
// context with numbered inline citations.
const systemPrompt = `You are a helpful assistant that answers questions based ONLY on the provided context.

CRITICAL RULES:
1. Answer ONLY using information from the provided context
2. Use inline citations like [1], [2] for each fact
3. If the answer cannot be found in the context, respond with: "Not found in sources"
4. Do not use your own knowledge or make assumptions
5. Be concise and accurate`

// userPromptTemplate wraps the retrieved context and the query.
const userPromptTemplate = `Context:
%s

Question: %s

Please answer the question using ONLY the context above. Include citations [1], [2], etc.`

func userPrompt(query, contextText string) string {
	return fmt.Sprintf(userPromptTemplate, contextText, query)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func ragMessages(query, contextText string) []chatMessage {
	return []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt(query, contextText)},
	}
}

// Registry holds the providers constructed at startup, keyed by provider
// name. The default provider serves requests that name no provider.
type Registry struct {
	providers   map[string]Provider
	defaultName string
}

// NewRegistry creates a registry with the given default provider name.
func NewRegistry(defaultName string) *Registry {
	return &Registry{
		providers:   make(map[string]Provider),
		defaultName: defaultName,
	}
}

// Register adds a provider under the given name, replacing any previous
// registration.
func (r *Registry) Register(name string, p Provider) {
	r.providers[name] = p
}

// Get resolves a provider name. An empty name resolves to the default.
func (r *Registry) Get(name string) (Provider, error) {
	if name == "" {
		name = r.defaultName
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, errs.Validationf("unknown LLM provider: %s", name)
	}
	return p, nil
}

// DefaultName returns the default provider name.
func (r *Registry) DefaultName() string {
	return r.defaultName
}

// ResolveName maps an empty override to the default provider name.
func (r *Registry) ResolveName(name string) string {
	if name == "" {
		return r.defaultName
	}
	return name
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
