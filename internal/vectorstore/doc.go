// Package vectorstore adapts external nearest-neighbour indexes.
//
// A Store holds Records (text, metadata and an embedding) grouped into named
// collections and answers k-nearest queries by cosine distance. Three
// backends are provided: ChromaStore talks to a Chroma server over its REST
// API, PostgresStore uses pgvector through a pgx pool and MemoryStore keeps
// everything in process for development and tests.
package vectorstore
