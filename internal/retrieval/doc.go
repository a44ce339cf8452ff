// Package retrieval indexes emails into a vector store and answers semantic
// queries against it.
//
// Each email is rendered to a plain-text document, split into overlapping
// chunks, embedded and upserted under the "emails" collection. A chunk never
// spans two emails. Search embeds the query and returns the nearest chunks in
// the order the store reports them.
package retrieval
