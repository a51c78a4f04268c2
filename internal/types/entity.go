package types

// Ontology selects which medical entity inference to run.
type Ontology string

const (
	OntologyEntities Ontology = "entities"
	OntologyICD10CM  Ontology = "icd10cm"
	OntologyRxNorm   Ontology = "rxnorm"
	OntologySNOMEDCT Ontology = "snomedct"
)

// Entity is a medical entity returned by an inference call.
type Entity struct {
	Text       string            `json:"text"`
	Category   string            `json:"category"`
	Type       string            `json:"type"`
	Score      float64           `json:"score"`
	Attributes []EntityAttribute `json:"attributes,omitempty"`
	Concepts   []Concept         `json:"concepts,omitempty"`
}

// EntityAttribute is a trait or relationship attached to an entity.
type EntityAttribute struct {
	Type  string  `json:"type"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Concept is an ontology code linked to an entity.
type Concept struct {
	Code        string  `json:"code"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}
