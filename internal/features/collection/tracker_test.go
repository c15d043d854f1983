package collection

import (
	"context"
	"errors"
	"testing"
)

func TestEvaluate(t *testing.T) {
	full := []Entry{
		{Part1, RarityNormal, 1},
		{Part2, RarityNormal, 3},
		{Part3, RarityNormal, 1},
		{Part4, RarityNormal, 7},
	}

	cases := []struct {
		name         string
		entries      []Entry
		rarity       Rarity
		wantComplete bool
		wantProgress int
	}{
		{"empty", nil, RarityNormal, false, 0},
		{"full normal with duplicates", full, RarityNormal, true, 4},
		{"full normal does not complete exclusive", full, RarityExclusive, false, 0},
		{"three of four", full[:3], RarityNormal, false, 3},
		{"zero quantity ignored", append(full[:3:3], Entry{Part4, RarityNormal, 0}), RarityNormal, false, 3},
		{"unknown slot ignored", append(full[:3:3], Entry{"head", RarityNormal, 1}), RarityNormal, false, 3},
		{"mixed tiers", []Entry{
			{Part1, RarityExclusive, 1},
			{Part2, RarityExclusive, 1},
			{Part3, RarityNormal, 1},
			{Part4, RarityExclusive, 2},
		}, RarityExclusive, false, 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := Evaluate(tc.entries, tc.rarity)
			if st.Complete != tc.wantComplete || st.Progress != tc.wantProgress {
				t.Fatalf("got complete=%v progress=%d, want %v/%d", st.Complete, st.Progress, tc.wantComplete, tc.wantProgress)
			}
			if st.Total != 4 {
				t.Fatalf("total must be 4, got %d", st.Total)
			}
		})
	}
}

func TestBuildOverviewBothTiers(t *testing.T) {
	var entries []Entry
	for _, s := range Slots {
		entries = append(entries, Entry{s, RarityNormal, 1}, Entry{s, RarityExclusive, 2})
	}

	o := BuildOverview(entries)
	if !o.Collections.Normal.Complete || !o.Collections.Collection.Complete {
		t.Fatalf("both tiers must be complete: %+v", o.Collections)
	}
	if o.CollectibleCollection[Part3] != 2 {
		t.Fatalf("unexpected exclusive count: %v", o.CollectibleCollection)
	}
	if !o.AnyComplete() {
		t.Fatalf("AnyComplete must be true")
	}
}

func TestBuildOverviewFillsSlots(t *testing.T) {
	o := BuildOverview([]Entry{{Part2, RarityNormal, 1}})
	if len(o.NormalCollection) != 4 || len(o.CollectibleCollection) != 4 {
		t.Fatalf("all slots must be present: %v / %v", o.NormalCollection, o.CollectibleCollection)
	}
	if o.NormalCollection[Part2] != 1 || o.NormalCollection[Part1] != 0 {
		t.Fatalf("unexpected counts: %v", o.NormalCollection)
	}
	if o.AnyComplete() {
		t.Fatalf("nothing is complete yet")
	}
}

type listerFunc func(ctx context.Context, userID int64) ([]Entry, error)

func (f listerFunc) List(ctx context.Context, userID int64) ([]Entry, error) {
	return f(ctx, userID)
}

func TestTrackerPropagatesErrors(t *testing.T) {
	boom := errors.New("db down")
	tr := NewTracker(listerFunc(func(context.Context, int64) ([]Entry, error) { return nil, boom }))

	if _, err := tr.IsComplete(context.Background(), 1, RarityNormal); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}
