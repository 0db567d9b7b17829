package questions

import "testing"

func TestPickReturnsDistinctBankEntries(t *testing.T) {
	got := Pick(20)
	if len(got) != 20 {
		t.Fatalf("expected 20 questions, got %d", len(got))
	}

	inBank := make(map[string]bool, len(Bank))
	for _, q := range Bank {
		inBank[q] = true
	}
	seen := make(map[string]bool)
	for _, q := range got {
		if !inBank[q] {
			t.Fatalf("question not from bank: %q", q)
		}
		if seen[q] {
			t.Fatalf("duplicate question: %q", q)
		}
		seen[q] = true
	}
}

func TestPickClampsToBankSize(t *testing.T) {
	if got := Pick(10_000); len(got) != len(Bank) {
		t.Fatalf("expected %d, got %d", len(Bank), len(got))
	}
}

func TestShuffleLeavesInputUntouched(t *testing.T) {
	in := []string{"a", "b", "c", "d"}
	_ = Shuffle(in)
	for i, want := range []string{"a", "b", "c", "d"} {
		if in[i] != want {
			t.Fatalf("input mutated at %d: %q", i, in[i])
		}
	}
}
