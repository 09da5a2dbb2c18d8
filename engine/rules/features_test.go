package rules

import "testing"

func TestFeatureSetStableIndices(t *testing.T) {
	fs := NewFeatureSet([]string{"login_count", "deposit_amount", "session_length"})
	if fs.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", fs.Len())
	}
	idx, ok := fs.Index("deposit_amount")
	if !ok {
		t.Fatal("expected deposit_amount to resolve")
	}
	// Sorted order: deposit_amount, login_count, session_length.
	if idx != 0 {
		t.Errorf("deposit_amount index = %d, want 0", idx)
	}
	if i, _ := fs.Index("login_count"); i != 1 {
		t.Errorf("login_count index = %d, want 1", i)
	}
	if i, _ := fs.Index("session_length"); i != 2 {
		t.Errorf("session_length index = %d, want 2", i)
	}
}

func TestFeatureSetUnknownName(t *testing.T) {
	fs := NewFeatureSet([]string{"a", "b"})
	if _, ok := fs.Index("nonexistent"); ok {
		t.Error("expected unknown feature name to not resolve")
	}
}

func TestFeatureSetOrderIndependentOfInput(t *testing.T) {
	a := NewFeatureSet([]string{"z", "a", "m"})
	b := NewFeatureSet([]string{"m", "z", "a"})
	for _, name := range []string{"z", "a", "m"} {
		ia, _ := a.Index(name)
		ib, _ := b.Index(name)
		if ia != ib {
			t.Errorf("index for %q differs by input order: %d vs %d", name, ia, ib)
		}
	}
}
