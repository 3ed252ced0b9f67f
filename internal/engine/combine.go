package engine

import (
	"sort"
	"strings"

	"github.com/marroweth/vigil/internal/model"
)

// Ensemble weights: the user's own transaction patterns dominate, with
// collaborative filtering as a supplement.
const (
	DefaultTransactionWeight   = 0.7
	DefaultCollaborativeWeight = 0.3
)

// titleSimilarityCutoff is the word-set Jaccard similarity above which
// two recommendation titles are considered duplicates.
const titleSimilarityCutoff = 0.6

// Combine merges transaction-based and collaborative recommendations
// into one ranked list. Transaction-based items are weighted by
// confidence, collaborative items by neighbor probability; near-duplicate
// titles collapse to the first-seen item (transaction-based items come
// first, so they win ties). The top six survive.
func Combine(transactionBased, collaborative []model.Recommendation, transactionWeight, collaborativeWeight float64) []model.Recommendation {
	all := make([]model.Recommendation, 0, len(transactionBased)+len(collaborative))

	for _, rec := range transactionBased {
		rec.Source = model.SourceTransactionAnalysis
		rec.FinalScore = rec.Confidence * transactionWeight
		all = append(all, rec)
	}
	for _, rec := range collaborative {
		rec.Source = model.SourceCollaborativeFiltering
		rec.FinalScore = rec.Probability * collaborativeWeight
		all = append(all, rec)
	}

	deduplicated := deduplicate(all)

	sort.SliceStable(deduplicated, func(i, j int) bool {
		return deduplicated[i].FinalScore > deduplicated[j].FinalScore
	})

	if len(deduplicated) > 6 {
		deduplicated = deduplicated[:6]
	}
	return deduplicated
}

func deduplicate(recs []model.Recommendation) []model.Recommendation {
	var seen []string
	var unique []model.Recommendation

	for _, rec := range recs {
		title := strings.ToLower(rec.Title)

		duplicate := false
		for _, existing := range seen {
			if titlesSimilar(title, existing) {
				duplicate = true
				break
			}
		}

		if !duplicate {
			seen = append(seen, title)
			unique = append(unique, rec)
		}
	}

	return unique
}

// titlesSimilar compares two lowercased titles by word-set Jaccard
// similarity.
func titlesSimilar(a, b string) bool {
	wordsA := wordSet(a)
	wordsB := wordSet(b)

	common := 0
	for w := range wordsA {
		if _, ok := wordsB[w]; ok {
			common++
		}
	}
	total := len(wordsA) + len(wordsB) - common
	if total == 0 {
		return false
	}

	return float64(common)/float64(total) > titleSimilarityCutoff
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}
