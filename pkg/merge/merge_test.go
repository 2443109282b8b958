package merge

import (
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/seedkeeper/seedkeeper/pkg/normalize"
	"github.com/seedkeeper/seedkeeper/pkg/schema"
)

func normalized(t *testing.T, raw normalize.RawResult) normalize.Result {
	t.Helper()
	return normalize.New(schema.Default(), nil).Normalize(raw, "")
}

func TestMergeScenario(t *testing.T) {
	reg := schema.Default()
	state := FormState{
		Values:  map[string]any{"seed_name": "Tomato", "variety_name": ""},
		Touched: map[string]bool{"seed_name": true},
	}
	res := normalized(t, normalize.RawResult{
		{Key: "variety_name", Value: "Brandywine"},
		{Key: "sunlight", Value: "full sun and some shade"},
	})

	out := Merge(reg, state, res, Options{SeedName: "Tomato"})

	want := ChangeSet{
		{Key: "variety_name", OldValue: "", NewValue: "Brandywine", Reason: ReasonAIPopulated},
		{Key: "sunlight", OldValue: nil, NewValue: "Partial Sun", Reason: ReasonAIPopulated},
	}
	if !reflect.DeepEqual(out.Changes, want) {
		t.Fatalf("changes mismatch\nwant:\n%s\ngot:\n%s", spew.Sdump(want), spew.Sdump(out.Changes))
	}
	if got := out.State.Values["variety_name"]; got != "Brandywine" {
		t.Errorf("variety_name = %v", got)
	}
	if got := out.State.Values["sunlight"]; got != "Partial Sun" {
		t.Errorf("sunlight = %v", got)
	}
	if got := out.State.Values["seed_name"]; got != "Tomato" {
		t.Errorf("seed_name = %v", got)
	}
	if !out.State.IsTouched("seed_name") || out.State.IsTouched("variety_name") {
		t.Errorf("touched flags changed: %v", out.State.Touched)
	}

	// the caller's snapshot is untouched
	if _, ok := state.Values["sunlight"]; ok {
		t.Fatalf("Merge mutated its input state")
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	reg := schema.Default()
	res := normalized(t, normalize.RawResult{
		{Key: "variety_name", Value: "Cherokee Purple"},
		{Key: "categories", Value: "Vegetables, Herbs"},
		{Key: "days_to_maturity", Value: "80 days"},
		{Key: "container_suitability", Value: nil},
		{Key: "description", Value: "A dusky heirloom."},
	})

	first := Merge(reg, NewFormState(), res, Options{})
	if len(first.Changes) != 5 {
		t.Fatalf("first merge changes = %d, want 5: %s", len(first.Changes), spew.Sdump(first.Changes))
	}

	second := Merge(reg, first.State, res, Options{})
	if !second.NoOp() {
		t.Fatalf("re-applying produced changes: %s", spew.Sdump(second.Changes))
	}
	if !reflect.DeepEqual(first.State, second.State) {
		t.Fatalf("state drifted on re-apply")
	}
}

func TestMergeNeverTouchesUserInput(t *testing.T) {
	reg := schema.Default()
	state := NewFormState()
	state.Set("sunlight", "Full Shade")
	state.Set("variety_name", "")
	state.Set("days_to_maturity", "")

	res := normalized(t, normalize.RawResult{
		{Key: "sunlight", Value: "Full Sun"},
		{Key: "variety_name", Value: "Brandywine"},
		{Key: "days_to_maturity", Value: 90.0},
		{Key: "water_needs", Value: "regular"},
	})
	out := Merge(reg, state, res, Options{})

	for key := range state.Touched {
		if !reflect.DeepEqual(out.State.Values[key], state.Values[key]) {
			t.Errorf("touched %s changed from %v to %v", key, state.Values[key], out.State.Values[key])
		}
	}
	if keys := out.Changes.Keys(); !reflect.DeepEqual(keys, []string{"water_needs"}) {
		t.Fatalf("changed keys = %v", keys)
	}
}

func TestMergeSelfEchoGuard(t *testing.T) {
	reg := schema.Default()
	res := normalized(t, normalize.RawResult{{Key: "variety_name", Value: "Tomato"}})

	tests := []struct {
		name  string
		state FormState
		opts  Options
	}{
		{
			name:  "matches sibling field",
			state: FormState{Values: map[string]any{"seed_name": "tomato"}},
		},
		{
			name:  "matches queried seed name",
			state: NewFormState(),
			opts:  Options{SeedName: " TOMATO "},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := Merge(reg, tc.state, res, tc.opts)
			if !out.NoOp() {
				t.Fatalf("variety echo was applied: %s", spew.Sdump(out.Changes))
			}
			if _, ok := out.State.Values["variety_name"]; ok {
				t.Fatalf("variety_name was set")
			}
		})
	}
}

func TestMergeComparesByKind(t *testing.T) {
	reg := schema.Default()
	state := FormState{Values: map[string]any{
		"categories":            []any{"herbs", "Vegetables"},
		"days_to_maturity":      float64(80),
		"container_suitability": "No",
		"sunlight":              "full sun",
		"seed_type":             "",
	}}
	res := normalized(t, normalize.RawResult{
		{Key: "categories", Value: []any{"Vegetables", "Herbs"}},
		{Key: "days_to_maturity", Value: "80"},
		{Key: "container_suitability", Value: false},
		{Key: "sunlight", Value: "Full Sun"},
		{Key: "seed_type", Value: "heirloom"},
	})

	out := Merge(reg, state, res, Options{})
	want := ChangeSet{{Key: "seed_type", OldValue: "", NewValue: "Heirloom", Reason: ReasonAIPopulated}}
	if !reflect.DeepEqual(out.Changes, want) {
		t.Fatalf("changes mismatch\nwant:\n%s\ngot:\n%s", spew.Sdump(want), spew.Sdump(out.Changes))
	}
}

func TestMergeCarriesDroppedCount(t *testing.T) {
	res := normalized(t, normalize.RawResult{{Key: "days_to_maturity", Value: "about two months"}})
	out := Merge(schema.Default(), NewFormState(), res, Options{})
	if out.Dropped != 1 || !out.NoOp() {
		t.Fatalf("dropped = %d, changes = %d", out.Dropped, len(out.Changes))
	}
}

func TestChangeSetSummary(t *testing.T) {
	reg := schema.Default()
	if got := (ChangeSet{}).Summary(reg); got != NoChangesMessage {
		t.Fatalf("empty summary = %q", got)
	}

	cs := ChangeSet{
		{Key: "variety_name", OldValue: "", NewValue: "Brandywine", Reason: ReasonAIPopulated},
		{Key: "container_suitability", OldValue: true, NewValue: false, Reason: ReasonAIPopulated},
		{Key: "categories", NewValue: []string{"Vegetables", "Herbs"}, Reason: ReasonAIPopulated},
	}
	want := "AI updated 3 fields:\n" +
		"  Variety: Brandywine\n" +
		"  Container Suitable: No (was Yes)\n" +
		"  Categories: Vegetables, Herbs"
	if got := cs.Summary(reg); got != want {
		t.Fatalf("summary mismatch\nwant:\n%s\ngot:\n%s", want, got)
	}
}
