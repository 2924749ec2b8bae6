package summary

import (
	"sort"

	"finance/internal/core"
)

const (
	// TopCategories is how many categories are reported individually.
	TopCategories = 3
	OtherCategory = "Other"
)

// TopCategoriesWithOther keeps the largest n categories and folds the rest
// into one "Other" bucket. The input does not have to be sorted.
func TopCategoriesWithOther(totals []core.CategoryAmount, n int) []core.CategoryAmount {
	sorted := make([]core.CategoryAmount, len(totals))
	copy(sorted, totals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value > sorted[j].Value
	})

	if len(sorted) <= n {
		return sorted
	}

	out := make([]core.CategoryAmount, 0, n+1)
	out = append(out, sorted[:n]...)
	var other core.Money
	for _, c := range sorted[n:] {
		other += c.Value
	}
	return append(out, core.CategoryAmount{Name: OtherCategory, Value: other})
}
