package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindAccountTypePreset(t *testing.T) {
	p, ok := FindAccountTypePreset("Discover Credit")
	require.True(t, ok)
	assert.True(t, p.PositiveExpense)
	assert.Equal(t, "Trans. Date", p.DateField)

	_, ok = FindAccountTypePreset("discover credit")
	assert.False(t, ok)
}

func TestPresetAccountType(t *testing.T) {
	p, ok := FindAccountTypePreset("Chase Checking")
	require.True(t, ok)

	at := p.AccountType(7)
	assert.Equal(t, int64(7), at.FamilyID)
	assert.Zero(t, at.ID)
	assert.Equal(t, "Chase Checking", at.Name)
	assert.Equal(t, "Posting Date", at.DateField)
	assert.Equal(t, "Type", at.CategoryField)
	assert.False(t, at.PositiveExpense)
}

func TestPresetNamesAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range AccountTypePresets {
		assert.False(t, seen[p.Name], p.Name)
		seen[p.Name] = true
	}
}
