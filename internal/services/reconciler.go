package services

import (
	"strings"

	"skillbridge/recommender/internal/models"
)

// ReconcileTechStack partitions a recommended stack against the user's
// recorded one. Comparison is case-insensitive after trimming; the order of
// the recommended input is preserved in both partitions, and every
// recommended entry lands in exactly one of them.
func ReconcileTechStack(recommended []string, current []string) models.StackDiff {
	held := make(map[string]bool, len(current))
	for _, tech := range current {
		held[normalizeTech(tech)] = true
	}

	diff := models.StackDiff{
		AlreadyHave: []string{},
		ToLearn:     []string{},
	}
	for _, tech := range recommended {
		if held[normalizeTech(tech)] {
			diff.AlreadyHave = append(diff.AlreadyHave, tech)
		} else {
			diff.ToLearn = append(diff.ToLearn, tech)
		}
	}
	return diff
}

func normalizeTech(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
