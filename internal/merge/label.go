package merge

import "strings"

// labelForOrdinal produces SPEAKER_A, SPEAKER_B, …, SPEAKER_Z, SPEAKER_AA,
// SPEAKER_AB, … for ordinal 0, 1, …, 25, 26, 27, … — a base-26 bijective
// numeral system over A-Z, per spec §4.3 step 6 and §9's resolved open
// question on overflow past 26.
func labelForOrdinal(ordinal int) string {
	return "SPEAKER_" + bijectiveBase26(ordinal)
}

func bijectiveBase26(n int) string {
	var b strings.Builder
	letters := make([]byte, 0, 4)
	for n >= 0 {
		letters = append(letters, byte('A'+n%26))
		n = n/26 - 1
		if n < 0 {
			break
		}
	}
	for i := len(letters) - 1; i >= 0; i-- {
		b.WriteByte(letters[i])
	}
	return b.String()
}

// assignLabels sorts cluster ordinals by their first appearance in input
// order (the order speakerKeys are given in, which callers must preserve
// as chunk-then-local-speaker encounter order) and returns a mapping from
// the original clustering ordinal to its deterministic label.
func assignLabels(clusterAssignment []int) map[int]string {
	firstSeen := make(map[int]int) // cluster ordinal -> first index seen
	for idx, cluster := range clusterAssignment {
		if _, ok := firstSeen[cluster]; !ok {
			firstSeen[cluster] = idx
		}
	}

	clusters := make([]int, 0, len(firstSeen))
	for c := range firstSeen {
		clusters = append(clusters, c)
	}
	// Sort clusters by first-appearance index.
	for i := 1; i < len(clusters); i++ {
		for j := i; j > 0 && firstSeen[clusters[j-1]] > firstSeen[clusters[j]]; j-- {
			clusters[j-1], clusters[j] = clusters[j], clusters[j-1]
		}
	}

	labels := make(map[int]string, len(clusters))
	for ordinal, cluster := range clusters {
		labels[cluster] = labelForOrdinal(ordinal)
	}
	return labels
}
