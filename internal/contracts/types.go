// Package contracts holds the static reference data describing UPS Teamster
// contract documents and the resolver that maps a union Local number to the
// ordered set of documents that apply to its members.
package contracts

// Region is one of the five geographic bargaining regions.
type Region string

const (
	RegionWestern    Region = "western"
	RegionCentral    Region = "central"
	RegionSouthern   Region = "southern"
	RegionAtlantic   Region = "atlantic"
	RegionNewEngland Region = "new-england"
)

// DocumentType classifies a contract document.
type DocumentType string

const (
	TypeMaster     DocumentType = "master"
	TypeSupplement DocumentType = "supplement"
	TypeRider      DocumentType = "rider"
	TypeLocal      DocumentType = "local"
	TypeMOU        DocumentType = "mou"
)

// Local is a union local chapter. Immutable reference data.
type Local struct {
	Number int
	Name   string
	City   string
	State  string
	Region Region
}

// Document is a contract document. Immutable reference data.
type Document struct {
	ID          string
	Name        string
	ShortName   string
	Type        DocumentType
	Description string
}

// SupplementChain is the resolved applicability for one Local.
// The master agreement is never stored in the chain; every consumer
// prepends it implicitly.
type SupplementChain struct {
	Region      Region
	Supplements []string
	Riders      []string
}

// Applicable combines a resolved chain with full Document records for
// display. All is [master, supplements..., riders...] in that fixed order,
// so All[0] is always the master agreement.
type Applicable struct {
	Master      Document
	Supplements []Document
	Riders      []Document
	All         []Document
}
