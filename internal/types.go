package internal

// EntityTypeNDC is the processor label for National Drug Code entities.
const EntityTypeNDC = "NDC"

type TextSegment struct {
	StartIndex int64
	EndIndex   int64
}

type TextAnchor struct {
	Segments []TextSegment
}

type Entity struct {
	Type        string
	MentionText string
	Confidence  float32
	Anchor      *TextAnchor
}

// Document is the subset of a Document AI result the pipeline reads.
type Document struct {
	Text     string
	Entities []Entity
}

type Translation struct {
	NDC      string  `json:"ndc"`
	RXCUI    *string `json:"rxcui"`
	DrugName *string `json:"drugName"`
}

type RxcuiRecord struct {
	RXCUI string
	Name  string
}

type NDCMapping struct {
	NDC   string
	RXCUI string
	Name  string
}
