package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSuggestPayeesRanksByCloseness(t *testing.T) {
	t.Parallel()

	known := []string{"Costco", "Costco Gas", "Target", "Trader Joes"}
	got := SuggestPayees("costc", known, 5)
	require.NotEmpty(t, got)
	require.Equal(t, "Costco", got[0])
	require.NotContains(t, got, "Trader Joes")
}

func TestSuggestPayeesExcludesExactMatch(t *testing.T) {
	t.Parallel()

	got := SuggestPayees("Costco", []string{"Costco", "Costco Gas"}, 5)
	require.NotContains(t, got, "Costco")
	require.Contains(t, got, "Costco Gas")
}

func TestSuggestPayeesCapAndDedup(t *testing.T) {
	t.Parallel()

	known := []string{"costco", "Costco", "COSTCO", "Costco Gas", "Costco Travel"}
	got := SuggestPayees("costko", known, 2)
	require.Len(t, got, 2)
	require.Equal(t, "costco", got[0]) // first spelling of the duplicate wins
}

func TestSuggestPayeesEmptyInput(t *testing.T) {
	t.Parallel()

	require.Nil(t, SuggestPayees("", []string{"Costco"}, 5))
	require.Nil(t, SuggestPayees("   ", []string{"Costco"}, 5))
	require.Nil(t, SuggestPayees("Costco", []string{"Costco Gas"}, 0))
}
