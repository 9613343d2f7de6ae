package contracts

// regionSupplements maps each region to its default supplement document.
var regionSupplements = map[Region]string{
	RegionWestern:    "western",
	RegionCentral:    "central",
	RegionSouthern:   "southern",
	RegionAtlantic:   "atlantic",
	RegionNewEngland: "new-england",
}

// chainOverrides lists the Locals whose applicability differs from their
// region's default. Three Locals (705, 710, 804) have fully standalone
// agreements replacing the regional supplement; the rest add riders on top
// of it. A Local listed here with zero riders still carries exactly one
// supplement — never zero.
var chainOverrides = map[int]SupplementChain{
	70:   {Region: RegionWestern, Supplements: []string{"western"}, Riders: []string{"northern-california"}},
	89:   {Region: RegionCentral, Supplements: []string{"central"}, Riders: []string{"louisville-air"}},
	177:  {Region: RegionAtlantic, Supplements: []string{"atlantic"}, Riders: []string{"local-177"}},
	264:  {Region: RegionAtlantic, Supplements: []string{"atlantic"}, Riders: []string{"upstate-west-ny"}},
	396:  {Region: RegionWestern, Supplements: []string{"western"}, Riders: []string{"southwest"}},
	705:  {Region: RegionCentral, Supplements: []string{"local-705"}, Riders: []string{}},
	710:  {Region: RegionCentral, Supplements: []string{"local-710"}, Riders: []string{}},
	804:  {Region: RegionAtlantic, Supplements: []string{"local-804"}, Riders: []string{}},
	952:  {Region: RegionWestern, Supplements: []string{"western"}, Riders: []string{"southwest"}},
	2785: {Region: RegionWestern, Supplements: []string{"western"}, Riders: []string{"northern-california"}},
}

// ResolveChain computes the supplement chain for a Local number.
//
// Explicit overrides win; otherwise the Local's region yields the default
// chain of one supplement and no riders. Unknown Local numbers return
// ok=false — not an error, callers degrade to master-only scope.
func ResolveChain(localNumber int) (SupplementChain, bool) {
	if chain, ok := chainOverrides[localNumber]; ok {
		return copyChain(chain), true
	}
	local, ok := locals[localNumber]
	if !ok {
		return SupplementChain{}, false
	}
	return SupplementChain{
		Region:      local.Region,
		Supplements: []string{regionSupplements[local.Region]},
		Riders:      []string{},
	}, true
}

// DocumentScope returns the ordered document IDs a member of the given
// Local may read and search: the master agreement followed by the chain's
// supplements and riders. Unknown Locals fail open to master-only scope.
//
// The result is deterministic and order-stable; both the retrieval filter
// and the document-serving endpoint treat it as an authorization boundary.
func DocumentScope(localNumber int) []string {
	chain, ok := ResolveChain(localNumber)
	if !ok {
		return []string{MasterID}
	}
	scope := make([]string, 0, 1+len(chain.Supplements)+len(chain.Riders))
	scope = append(scope, MasterID)
	scope = append(scope, chain.Supplements...)
	scope = append(scope, chain.Riders...)
	return scope
}

// ApplicableDocuments resolves a Local's chain into full Document records.
// All[0] is always the master agreement. Chain IDs missing from the
// registry are skipped; a validated data set never hits that path.
func ApplicableDocuments(localNumber int) Applicable {
	master := documents[MasterID]
	app := Applicable{Master: master}
	app.All = append(app.All, master)

	chain, ok := ResolveChain(localNumber)
	if !ok {
		return app
	}
	for _, id := range chain.Supplements {
		if d, ok := documents[id]; ok {
			app.Supplements = append(app.Supplements, d)
			app.All = append(app.All, d)
		}
	}
	for _, id := range chain.Riders {
		if d, ok := documents[id]; ok {
			app.Riders = append(app.Riders, d)
			app.All = append(app.All, d)
		}
	}
	return app
}

// copyChain returns a defensive copy so callers cannot mutate the override
// table through the returned slices.
func copyChain(c SupplementChain) SupplementChain {
	out := SupplementChain{Region: c.Region}
	out.Supplements = append([]string{}, c.Supplements...)
	out.Riders = append([]string{}, c.Riders...)
	return out
}
