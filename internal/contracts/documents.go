package contracts

// MasterID is the document ID of the National Master Agreement, the implicit
// first document in every Local's scope.
const MasterID = "master"

// documents is the registry of every contract document the system knows
// about, keyed by ID. Compiled-in reference data, never mutated at runtime.
var documents = map[string]Document{
	"master": {
		ID:          "master",
		Name:        "National Master United Parcel Service Agreement",
		ShortName:   "National Master",
		Type:        TypeMaster,
		Description: "The national agreement covering all UPS Teamsters; every supplement and rider builds on it.",
	},
	"western": {
		ID:        "western",
		Name:      "Western Region of Teamsters Supplemental Agreement",
		ShortName: "Western Supplement",
		Type:      TypeSupplement,
	},
	"central": {
		ID:        "central",
		Name:      "Central Region of Teamsters Supplemental Agreement",
		ShortName: "Central Supplement",
		Type:      TypeSupplement,
	},
	"southern": {
		ID:        "southern",
		Name:      "Southern Region Area Supplemental Agreement",
		ShortName: "Southern Supplement",
		Type:      TypeSupplement,
	},
	"atlantic": {
		ID:        "atlantic",
		Name:      "Atlantic Area Supplemental Agreement",
		ShortName: "Atlantic Supplement",
		Type:      TypeSupplement,
	},
	"new-england": {
		ID:        "new-england",
		Name:      "New England Supplemental Agreement",
		ShortName: "New England Supplement",
		Type:      TypeSupplement,
	},
	"local-705": {
		ID:          "local-705",
		Name:        "Teamsters Local 705 United Parcel Service Agreement",
		ShortName:   "Local 705 Agreement",
		Type:        TypeLocal,
		Description: "Standalone agreement for Chicago-area Local 705; replaces the Central Region supplement.",
	},
	"local-710": {
		ID:          "local-710",
		Name:        "Teamsters Local 710 United Parcel Service Agreement",
		ShortName:   "Local 710 Agreement",
		Type:        TypeLocal,
		Description: "Standalone agreement for Local 710; replaces the Central Region supplement.",
	},
	"local-804": {
		ID:          "local-804",
		Name:        "Teamsters Local 804 United Parcel Service Supplemental Agreement",
		ShortName:   "Local 804 Supplement",
		Type:        TypeLocal,
		Description: "Standalone supplement for New York City Local 804; replaces the Atlantic Area supplement.",
	},
	"northern-california": {
		ID:        "northern-california",
		Name:      "Northern California Supplemental Agreement Rider",
		ShortName: "NorCal Rider",
		Type:      TypeRider,
	},
	"southwest": {
		ID:        "southwest",
		Name:      "Southwest Package and Sort Rider",
		ShortName: "Southwest Rider",
		Type:      TypeRider,
	},
	"local-177": {
		ID:        "local-177",
		Name:      "Teamsters Local 177 Rider to the National Master Agreement",
		ShortName: "Local 177 Rider",
		Type:      TypeRider,
	},
	"louisville-air": {
		ID:        "louisville-air",
		Name:      "Louisville Air Hub Rider",
		ShortName: "Louisville Air Rider",
		Type:      TypeRider,
	},
	"upstate-west-ny": {
		ID:        "upstate-west-ny",
		Name:      "Upstate and West New York Rider",
		ShortName: "Upstate NY Rider",
		Type:      TypeRider,
	},
	"9-5-mou": {
		ID:        "9-5-mou",
		Name:      "Memorandum of Understanding on the 9.5 Excessive Overtime List",
		ShortName: "9.5 MOU",
		Type:      TypeMOU,
	},
}

// LookupDocument returns the document with the given ID.
func LookupDocument(id string) (Document, bool) {
	d, ok := documents[id]
	return d, ok
}

// Documents returns all known documents. The slice is freshly allocated;
// callers may reorder it.
func Documents() []Document {
	out := make([]Document, 0, len(documents))
	for _, d := range documents {
		out = append(out, d)
	}
	return out
}
