package entity

type CitationKind string

const (
	CitationWeb   CitationKind = "web"
	CitationPlace CitationKind = "place"
)

// ChatCitation is an attribution entry returned with a grounded answer.
type ChatCitation struct {
	Kind  CitationKind `json:"kind"`
	URI   string       `json:"uri"`
	Title string       `json:"title"`
}
