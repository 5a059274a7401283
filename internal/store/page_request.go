package store

// PageRequest carries normalized pagination bounds into list queries.
// Handlers build it from query parameters via the shared normalizer.
type PageRequest struct {
	Offset int
	Limit  int
}
