package contracts

// locals is the directory of known union Locals, keyed by Local number.
// Compiled-in reference data covering the Locals with active ShopTalk
// membership; a Local absent from this table degrades to master-only scope.
var locals = map[int]Local{
	63:   {Number: 63, Name: "Teamsters Local 63", City: "Rialto", State: "CA", Region: RegionWestern},
	70:   {Number: 70, Name: "Teamsters Local 70", City: "Oakland", State: "CA", Region: RegionWestern},
	89:   {Number: 89, Name: "Teamsters Local 89", City: "Louisville", State: "KY", Region: RegionCentral},
	104:  {Number: 104, Name: "Teamsters Local 104", City: "Phoenix", State: "AZ", Region: RegionWestern},
	135:  {Number: 135, Name: "Teamsters Local 135", City: "Indianapolis", State: "IN", Region: RegionCentral},
	174:  {Number: 174, Name: "Teamsters Local 174", City: "Tukwila", State: "WA", Region: RegionWestern},
	177:  {Number: 177, Name: "Teamsters Local 177", City: "Hillside", State: "NJ", Region: RegionAtlantic},
	251:  {Number: 251, Name: "Teamsters Local 251", City: "East Providence", State: "RI", Region: RegionNewEngland},
	264:  {Number: 264, Name: "Teamsters Local 264", City: "Cheektowaga", State: "NY", Region: RegionAtlantic},
	344:  {Number: 344, Name: "Teamsters Local 344", City: "Milwaukee", State: "WI", Region: RegionCentral},
	355:  {Number: 355, Name: "Teamsters Local 355", City: "Baltimore", State: "MD", Region: RegionAtlantic},
	396:  {Number: 396, Name: "Teamsters Local 396", City: "Covina", State: "CA", Region: RegionWestern},
	404:  {Number: 404, Name: "Teamsters Local 404", City: "Springfield", State: "MA", Region: RegionNewEngland},
	509:  {Number: 509, Name: "Teamsters Local 509", City: "West Columbia", State: "SC", Region: RegionSouthern},
	512:  {Number: 512, Name: "Teamsters Local 512", City: "Jacksonville", State: "FL", Region: RegionSouthern},
	623:  {Number: 623, Name: "Teamsters Local 623", City: "Philadelphia", State: "PA", Region: RegionAtlantic},
	651:  {Number: 651, Name: "Teamsters Local 651", City: "Lexington", State: "KY", Region: RegionCentral},
	657:  {Number: 657, Name: "Teamsters Local 657", City: "San Antonio", State: "TX", Region: RegionSouthern},
	667:  {Number: 667, Name: "Teamsters Local 667", City: "Memphis", State: "TN", Region: RegionSouthern},
	705:  {Number: 705, Name: "Teamsters Local 705", City: "Chicago", State: "IL", Region: RegionCentral},
	710:  {Number: 710, Name: "Teamsters Local 710", City: "Mokena", State: "IL", Region: RegionCentral},
	728:  {Number: 728, Name: "Teamsters Local 728", City: "Atlanta", State: "GA", Region: RegionSouthern},
	767:  {Number: 767, Name: "Teamsters Local 767", City: "Forest Hill", State: "TX", Region: RegionSouthern},
	804:  {Number: 804, Name: "Teamsters Local 804", City: "Long Island City", State: "NY", Region: RegionAtlantic},
	952:  {Number: 952, Name: "Teamsters Local 952", City: "Orange", State: "CA", Region: RegionWestern},
	2785: {Number: 2785, Name: "Teamsters Local 2785", City: "San Francisco", State: "CA", Region: RegionWestern},
}

// LookupLocal returns the directory entry for the given Local number.
func LookupLocal(number int) (Local, bool) {
	l, ok := locals[number]
	return l, ok
}

// Locals returns all known Locals. The slice is freshly allocated.
func Locals() []Local {
	out := make([]Local, 0, len(locals))
	for _, l := range locals {
		out = append(out, l)
	}
	return out
}
