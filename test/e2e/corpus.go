// Package e2e provides end-to-end tests with a multi-document corpus and
// query test cases covering the full ingest, retrieve, and generate flow.
package e2e

import "fmt"

// E2EDocument is a document entry in the E2E corpus.
type E2EDocument struct {
	Filename string
	Content  string
}

// QueryTestCase defines a query and the document that must rank first.
// The deterministic test embedder maps identical text to identical
// vectors, so queries use the exact text of the target document's chunk.
type QueryTestCase struct {
	Query            string
	ExpectedFilename string
	Description      string
}

// Corpus holds documents and query test cases for E2E tests.
type Corpus struct {
	Documents    []E2EDocument
	TestCases    []QueryTestCase
	TotalDocs    int
	TotalQueries int
}

// BuildCorpus returns a corpus of short documents with distinct content and
// one query test case per document. Each document fits in a single chunk so
// its content doubles as the exact-match query text.
func BuildCorpus() *Corpus {
	topics := []string{
		"Python is a high-level programming language used for web development and data science.",
		"Kubernetes is an open-source platform that automates container deployment and scaling.",
		"React is a JavaScript library for building user interfaces with hooks and components.",
		"Go is a statically typed language where concurrency is achieved with goroutines and channels.",
		"PostgreSQL is an advanced relational database supporting JSON and full-text search.",
		"Docker container images are portable across environments.",
		"Machine learning algorithms learn patterns from data.",
		"Neural network deep learning powers modern AI.",
		"REST API endpoints use HTTP methods and status codes.",
		"GraphQL lets clients request exactly the fields they need.",
		"Redis is an in-memory data store used for sessions and caching.",
		"Semantic search uses embeddings to capture meaning beyond keywords.",
		"Vector databases compare embeddings with cosine or dot product similarity.",
		"Chunking splits long documents into overlapping segments to preserve context.",
		"Retrieval augmented generation grounds language models in source documents.",
		"Prompt engineering guides model behavior with examples in the prompt.",
		"Structured logging uses JSON or key-value pairs to aid debugging.",
		"Distributed tracing follows requests across services and shows latency breakdown.",
		"Rate limiting protects APIs and can be applied per user or globally.",
		"Circuit breakers stop cascading failures by failing fast.",
		"Graceful shutdown drains connections after receiving SIGTERM.",
		"Health checks indicate readiness and are used by orchestrators.",
		"Secrets must not live in code and should be encrypted and audited.",
		"Database migrations evolve schema and should be reversible when possible.",
		"Unit tests verify small units of code and use mocks to isolate dependencies.",
		"Integration tests verify that components work together across full flows.",
		"Fuzz testing feeds random input to find edge cases.",
		"Code review catches bugs early and is done through pull requests.",
		"Blue-green deployment keeps two environments to reduce release risk.",
		"Canary releases roll out to a subset of users to limit blast radius.",
	}
	exts := []string{".txt", ".md"}

	docs := make([]E2EDocument, 0, len(topics))
	cases := make([]QueryTestCase, 0, len(topics))
	for i, content := range topics {
		name := fmt.Sprintf("e2e-doc-%03d%s", i+1, exts[i%len(exts)])
		docs = append(docs, E2EDocument{Filename: name, Content: content})
		cases = append(cases, QueryTestCase{
			Query:            content,
			ExpectedFilename: name,
			Description:      fmt.Sprintf("query for %s ranks it first", name),
		})
	}
	return &Corpus{
		Documents:    docs,
		TestCases:    cases,
		TotalDocs:    len(docs),
		TotalQueries: len(cases),
	}
}
