package domain

import "errors"

// ErrNotFound is returned when a referenced document or entry does not exist.
var ErrNotFound = errors.New("not found")

// Document is a single uploaded text file. The filename is the primary key
// at the application layer; the raw file is owned by the upload store while
// the vector index owns the derived chunks.
type Document struct {
	Filename string
	Content  string
}

// Chunk is a contiguous span of a document's text selected for independent
// retrieval. Its ID is derived from the document content hash and the chunk
// ordinal, so identical content always yields identical IDs.
type Chunk struct {
	ID       string
	Filename string
	Ordinal  int
	Text     string
}

// QueryResult is one ranked similarity hit. Similarity is in [0,1] and is
// computed as 1 - cosine distance.
type QueryResult struct {
	Filename   string
	Ordinal    int
	Text       string
	Similarity float64
}

// Chunker splits a document into retrievable chunks with stable IDs.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}
