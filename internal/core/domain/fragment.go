package domain

// LocationUnknown is used when a fragment has no page or section label.
const LocationUnknown = "unknown"

// Fragment is the retrievable unit of ingested text.
// Fragments are created once during ingestion and immutable thereafter;
// all query-time operations read them from persisted storage.
type Fragment struct {
	// ID is the stable, unique identifier assigned at ingestion.
	ID string

	// Text is the fragment content. Never empty for a valid fragment.
	Text string

	// SourceName identifies the originating document (e.g. a file name).
	SourceName string

	// Location is a page or section label, or LocationUnknown.
	Location string

	// ParentRef links back to the DocumentRef that produced this fragment.
	// Empty for explicitly orphaned fragments.
	ParentRef string

	// Metadata contains arbitrary key-value pairs attached at ingestion.
	Metadata map[string]any
}

// DocumentRef groups fragment IDs under one source document.
type DocumentRef struct {
	// RefID is the unique identifier for the source document.
	RefID string

	// Metadata contains document-level key-value pairs
	// (file size, creation date, etc).
	Metadata map[string]any

	// FragmentIDs lists member fragments in ingestion order.
	// Ingestion order is not necessarily page order.
	FragmentIDs []string
}

// Candidate is a transient retrieval hit prior to text resolution.
type Candidate struct {
	// FragmentID is the matched fragment.
	FragmentID string

	// Score is the similarity to the query. Higher is more similar;
	// scores are only comparable within one index.
	Score float64

	// Rank is the 0-based position after sorting.
	Rank int
}

// RankedFragment pairs a resolved fragment with its retrieval score.
type RankedFragment struct {
	Fragment Fragment
	Score    float64
}

// Citation attributes a retrieved fragment back to its source.
type Citation struct {
	// SourceName is the originating document identifier.
	SourceName string `json:"source_name"`

	// Location is the page or section label.
	Location string `json:"location"`

	// Score is the retrieval similarity score.
	Score float64 `json:"score"`

	// Preview is a short excerpt of the fragment text.
	Preview string `json:"preview"`
}

// previewLimit caps citation previews, matching the batch log format.
const previewLimit = 200

// NewCitation builds a Citation from a ranked fragment.
func NewCitation(rf RankedFragment) Citation {
	preview := rf.Fragment.Text
	if len(preview) > previewLimit {
		preview = preview[:previewLimit] + "..."
	}
	location := rf.Fragment.Location
	if location == "" {
		location = LocationUnknown
	}
	return Citation{
		SourceName: rf.Fragment.SourceName,
		Location:   location,
		Score:      rf.Score,
		Preview:    preview,
	}
}
