package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// Statistics is the derived view shown next to the expense table.
type Statistics struct {
	Count      int
	Total      Money
	ByCategory []CategoryAmount // first-appearance order
}

// Summarize computes the grand total and per-category sums. Categories are
// grouped by exact string match and listed in order of first appearance.
func Summarize(expenses []Expense) Statistics {
	stats := Statistics{Count: len(expenses)}
	index := make(map[string]int)
	for _, e := range expenses {
		stats.Total = stats.Total.Add(e.Amount)
		i, ok := index[e.Category]
		if !ok {
			i = len(stats.ByCategory)
			index[e.Category] = i
			stats.ByCategory = append(stats.ByCategory, CategoryAmount{Name: e.Category})
		}
		stats.ByCategory[i].Amount = stats.ByCategory[i].Amount.Add(e.Amount)
	}
	return stats
}

// CategoryTotal returns the sum for name, or zero when absent.
func (s Statistics) CategoryTotal(name string) Money {
	for _, c := range s.ByCategory {
		if c.Name == name {
			return c.Amount
		}
	}
	return Money{}
}
