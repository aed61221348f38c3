package merge

import "testing"

func TestBijectiveBase26BoundaryValues(t *testing.T) {
	cases := map[int]string{
		0:  "A",
		1:  "B",
		25: "Z",
		26: "AA",
		27: "AB",
		51: "AZ",
		52: "BA",
	}
	for ordinal, want := range cases {
		if got := bijectiveBase26(ordinal); got != want {
			t.Errorf("bijectiveBase26(%d) = %q, want %q", ordinal, got, want)
		}
	}
}

func TestLabelForOrdinal(t *testing.T) {
	if got, want := labelForOrdinal(0), "SPEAKER_A"; got != want {
		t.Errorf("labelForOrdinal(0) = %q, want %q", got, want)
	}
	if got, want := labelForOrdinal(26), "SPEAKER_AA"; got != want {
		t.Errorf("labelForOrdinal(26) = %q, want %q", got, want)
	}
}

func TestAssignLabelsOrdersByFirstAppearance(t *testing.T) {
	// Cluster 5 appears first, then cluster 2, then cluster 5 again.
	assignment := []int{5, 2, 5, 2, 9}
	labels := assignLabels(assignment)

	if labels[5] != "SPEAKER_A" {
		t.Errorf("cluster 5 (first seen) = %q, want SPEAKER_A", labels[5])
	}
	if labels[2] != "SPEAKER_B" {
		t.Errorf("cluster 2 (second seen) = %q, want SPEAKER_B", labels[2])
	}
	if labels[9] != "SPEAKER_C" {
		t.Errorf("cluster 9 (third seen) = %q, want SPEAKER_C", labels[9])
	}
}

func TestAssignLabelsIsDeterministicAcrossCalls(t *testing.T) {
	assignment := []int{3, 1, 3, 1, 0}
	first := assignLabels(assignment)
	second := assignLabels(assignment)
	for k, v := range first {
		if second[k] != v {
			t.Errorf("assignLabels not deterministic: cluster %d got %q then %q", k, v, second[k])
		}
	}
}
