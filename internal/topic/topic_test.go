package topic

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func names(list []Topic) []string {
	out := make([]string, len(list))
	for i, t := range list {
		out[i] = t.Name
	}
	return out
}

func TestRankOrdersByCategoryThenName(t *testing.T) {
	all := []Topic{
		{Name: "Vedic Tricks", Grade: "5", Category: "Vedic Math"},
		{Name: "Ratios", Grade: "5", Category: "Upper Primary"},
		{Name: "Counting", Grade: "5", Category: "Foundational Skills"},
		{Name: "Algebra", Grade: "5", Category: "Upper Primary"},
		{Name: "Puzzles", Grade: "", Category: "Mental Ability"},
		{Name: "Calculus", Grade: "12", Category: "Senior Secondary"},
		{Name: "Misc", Grade: "5", Category: "Unlisted"},
	}
	got := Rank(all, "5", -1)
	require.Equal(t, []string{"Counting", "Algebra", "Ratios", "Puzzles", "Vedic Tricks", "Misc"}, names(got))
}

func TestRankWithoutGradeReturnsGeneralOnly(t *testing.T) {
	all := []Topic{
		{Name: "Fractions", Grade: "4", Category: "Primary Math"},
		{Name: "Speaking", Category: "Communication & Explanation Skills (PlanetSpark Style)"},
		{Name: "Logic", Category: "Mental Ability"},
	}
	require.Equal(t, []string{"Logic", "Speaking"}, names(Rank(all, "", -1)))
}

func TestRankDeduplicatesAndLimits(t *testing.T) {
	all := []Topic{
		{ID: "1", Name: "Fractions", Grade: "4", Category: "Primary Math"},
		{ID: "2", Name: "fractions", Grade: "4", Category: "Primary Math"},
		{ID: "3", Name: "Decimals", Grade: "4", Category: "Primary Math"},
		{ID: "4", Name: "Fractions", Grade: "", Category: "Primary Math"},
	}
	got := Rank(all, "4", -1)
	require.Len(t, got, 3)
	require.Equal(t, "Decimals", got[0].Name)

	require.Len(t, Rank(all, "4", 1), 1)
	require.Empty(t, Rank(all, "4", 0))
}

func TestFilterByGradeIsCaseInsensitive(t *testing.T) {
	all := []Topic{{Name: "A", Grade: "KG"}, {Name: "B", Grade: "1"}}
	require.Equal(t, []string{"A"}, names(FilterByGrade(all, "kg")))
	require.Len(t, FilterByGrade(all, " "), 2)
}
