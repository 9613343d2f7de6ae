package contracts

import (
	"reflect"
	"testing"
)

func TestResolveChainOverride(t *testing.T) {
	tests := []struct {
		name        string
		local       int
		supplements []string
		riders      []string
	}{
		{"standalone 705", 705, []string{"local-705"}, []string{}},
		{"standalone 710", 710, []string{"local-710"}, []string{}},
		{"standalone 804", 804, []string{"local-804"}, []string{}},
		{"rider on top of region", 396, []string{"western"}, []string{"southwest"}},
		{"norcal rider", 70, []string{"western"}, []string{"northern-california"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain, ok := ResolveChain(tt.local)
			if !ok {
				t.Fatalf("ResolveChain(%d) not found", tt.local)
			}
			if !reflect.DeepEqual(chain.Supplements, tt.supplements) {
				t.Errorf("supplements = %v, want %v", chain.Supplements, tt.supplements)
			}
			if !reflect.DeepEqual(chain.Riders, tt.riders) {
				t.Errorf("riders = %v, want %v", chain.Riders, tt.riders)
			}
		})
	}
}

func TestResolveChainRegionDefault(t *testing.T) {
	// Every Local in the directory without an override resolves to exactly
	// its region's supplement and no riders.
	for number, local := range locals {
		if _, overridden := chainOverrides[number]; overridden {
			continue
		}
		chain, ok := ResolveChain(number)
		if !ok {
			t.Fatalf("ResolveChain(%d) not found", number)
		}
		want := []string{regionSupplements[local.Region]}
		if !reflect.DeepEqual(chain.Supplements, want) {
			t.Errorf("Local %d: supplements = %v, want %v", number, chain.Supplements, want)
		}
		if len(chain.Riders) != 0 {
			t.Errorf("Local %d: riders = %v, want none", number, chain.Riders)
		}
	}
}

func TestResolveChainUnknownLocal(t *testing.T) {
	if _, ok := ResolveChain(9999); ok {
		t.Error("expected unknown Local to resolve to no chain")
	}
}

func TestDocumentScopeFallback(t *testing.T) {
	// Unknown Locals fail open to master-only scope, never an error.
	for _, n := range []int{0, -5, 9999} {
		got := DocumentScope(n)
		if !reflect.DeepEqual(got, []string{"master"}) {
			t.Errorf("DocumentScope(%d) = %v, want [master]", n, got)
		}
	}
}

func TestDocumentScopeOrder(t *testing.T) {
	got := DocumentScope(70)
	want := []string{"master", "western", "northern-california"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DocumentScope(70) = %v, want %v", got, want)
	}

	// Deterministic and order-stable across calls (used as a cache key).
	again := DocumentScope(70)
	if !reflect.DeepEqual(got, again) {
		t.Errorf("DocumentScope not stable: %v then %v", got, again)
	}
}

func TestDocumentScopeNeverZeroSupplements(t *testing.T) {
	for number := range locals {
		scope := DocumentScope(number)
		if len(scope) < 2 {
			t.Errorf("Local %d: scope %v has no supplement", number, scope)
		}
		if scope[0] != "master" {
			t.Errorf("Local %d: scope %v does not start with master", number, scope)
		}
	}
}

func TestChainDataIntegrity(t *testing.T) {
	// Every ID referenced by an override must resolve to a known document,
	// and the master must never be listed inside a chain.
	for number, chain := range chainOverrides {
		for _, id := range append(append([]string{}, chain.Supplements...), chain.Riders...) {
			if id == MasterID {
				t.Errorf("Local %d: chain lists the master agreement", number)
			}
			if _, ok := documents[id]; !ok {
				t.Errorf("Local %d: chain references unknown document %q", number, id)
			}
		}
		if len(chain.Supplements) != 1 {
			t.Errorf("Local %d: %d supplements, want exactly 1", number, len(chain.Supplements))
		}
	}
	for region, id := range regionSupplements {
		if _, ok := documents[id]; !ok {
			t.Errorf("region %s: default supplement %q unknown", region, id)
		}
	}
}

func TestApplicableDocuments(t *testing.T) {
	app := ApplicableDocuments(396)
	if app.All[0].ID != "master" {
		t.Fatalf("All[0] = %s, want master", app.All[0].ID)
	}
	if len(app.All) != 3 {
		t.Fatalf("len(All) = %d, want 3", len(app.All))
	}
	if app.All[1].ID != "western" || app.All[2].ID != "southwest" {
		t.Errorf("All order = [%s %s %s]", app.All[0].ID, app.All[1].ID, app.All[2].ID)
	}

	unknown := ApplicableDocuments(9999)
	if len(unknown.All) != 1 || unknown.All[0].ID != "master" {
		t.Errorf("unknown Local: All = %v, want just master", unknown.All)
	}
}

func TestResolveChainReturnsCopy(t *testing.T) {
	chain, _ := ResolveChain(396)
	chain.Riders[0] = "tampered"

	fresh, _ := ResolveChain(396)
	if fresh.Riders[0] != "southwest" {
		t.Error("override table mutated through returned chain")
	}
}
