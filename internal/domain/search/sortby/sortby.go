package sortby

// SortBy is the requested result ordering.
type SortBy string

// Orderings.
const (
	// Relevance orders by the blended composite score.
	Relevance SortBy = "relevance"
	// Distance orders nearest first; requires a user location.
	Distance SortBy = "distance"
	// Rating orders by place rating, missing ratings last.
	Rating SortBy = "rating"
)

// IsValid checks if the ordering is one of the supported values.
func (s SortBy) IsValid() bool {
	return s == Relevance || s == Distance || s == Rating
}
