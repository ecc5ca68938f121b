package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateUserDuplicate(t *testing.T) {
	s := newTestStore(t)

	created, err := s.CreateUser("u1", "Ana")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.CreateUser("u1", "Bob")
	require.NoError(t, err)
	assert.False(t, created, "duplicate id must be rejected without error")

	name, found, err := s.GetUsername("u1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Ana", name, "first registration wins")
}

func TestUserExists(t *testing.T) {
	s := newTestStore(t)

	exists, err := s.UserExists("u1")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = s.CreateUser("u1", "Ana")
	require.NoError(t, err)

	exists, err = s.UserExists("u1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMemoryAppendOrderWithInterleavedWriters(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateUser("u1", "Ana")
	require.NoError(t, err)
	_, err = s.CreateUser("u2", "Bob")
	require.NoError(t, err)

	for _, w := range []struct{ user, ctx string }{
		{"u1", "a"}, {"u2", "x"}, {"u1", "b"}, {"u2", "y"}, {"u1", "c"},
	} {
		_, err := s.SaveUserMemory(w.user, w.ctx)
		require.NoError(t, err)
	}

	got, err := s.ListUserMemory("u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)

	got, err = s.ListUserMemory("u2")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, got)
}

func TestGetUserMemoryFormatting(t *testing.T) {
	s := newTestStore(t)

	memory, err := s.GetUserMemory("u1")
	require.NoError(t, err)
	assert.Empty(t, memory, "no entries must yield an empty block, not a bare header")

	_, err = s.CreateUser("u1", "Ana")
	require.NoError(t, err)
	_, err = s.SaveUserMemory("u1", "Busca un SUV familiar")
	require.NoError(t, err)
	_, err = s.SaveUserMemory("u1", "Presupuesto $300k")
	require.NoError(t, err)

	memory, err = s.GetUserMemory("u1")
	require.NoError(t, err)
	assert.Equal(t, "HISTORIAL DE MEMORIA DEL USUARIO:\n- Busca un SUV familiar\n- Presupuesto $300k", memory)
}

func TestRulesInsertionOrder(t *testing.T) {
	s := newTestStore(t)

	for _, text := range []string{"regla uno", "regla dos", "regla tres"} {
		_, err := s.SaveRule(text, "general", 1.0)
		require.NoError(t, err)
	}

	all, err := s.GetAllRules()
	require.NoError(t, err)
	assert.Equal(t, "regla uno\nregla dos\nregla tres", all)
}

func TestRulesByCategoryAndHasRule(t *testing.T) {
	s := newTestStore(t)

	_, err := s.SaveRule("regla vaga", "vago", 1.0)
	require.NoError(t, err)
	_, err = s.SaveRule("regla incompleta", "incompleto", 0.5)
	require.NoError(t, err)

	vague, err := s.GetRulesByCategory("vago")
	require.NoError(t, err)
	assert.Equal(t, []string{"regla vaga"}, vague)

	has, err := s.HasRule("regla vaga")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = s.HasRule("regla inexistente")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestSystemStats(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateUser("u1", "Ana")
	require.NoError(t, err)
	_, err = s.SaveUserMemory("u1", "contexto")
	require.NoError(t, err)
	_, err = s.SaveRule("r1", "vago", 1.0)
	require.NoError(t, err)
	_, err = s.SaveRule("r2", "vago", 0.5)
	require.NoError(t, err)
	_, err = s.SaveRule("r3", "general", 0.0)
	require.NoError(t, err)

	stats, err := s.GetSystemStats()
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalRules)
	assert.Equal(t, 1, stats.TotalUsers)
	assert.Equal(t, 1, stats.TotalMemories)
	assert.Equal(t, map[string]int{"vago": 2, "general": 1}, stats.ErrorDistribution)
	// zero scores are excluded from the mean
	assert.InDelta(t, 0.75, stats.AvgValidationScore, 1e-9)
}

func TestResetAllRestartsSequences(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateUser("u1", "Ana")
	require.NoError(t, err)
	_, err = s.SaveUserMemory("u1", "contexto")
	require.NoError(t, err)
	id, err := s.SaveRule("r1", "general", 1.0)
	require.NoError(t, err)
	require.Equal(t, int64(1), id)
	_, err = s.SaveRule("r2", "general", 1.0)
	require.NoError(t, err)

	require.NoError(t, s.ResetAll())

	stats, err := s.GetSystemStats()
	require.NoError(t, err)
	assert.Zero(t, stats.TotalRules)
	assert.Zero(t, stats.TotalUsers)
	assert.Zero(t, stats.TotalMemories)
	assert.Zero(t, stats.AvgValidationScore)

	id, err = s.SaveRule("nueva", "general", 1.0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id, "id sequence must restart after a full reset")

	_, err = s.CreateUser("u1", "Ana")
	require.NoError(t, err)
	memID, err := s.SaveUserMemory("u1", "nuevo contexto")
	require.NoError(t, err)
	assert.Equal(t, int64(1), memID)
}

func TestPartialClears(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateUser("u1", "Ana")
	require.NoError(t, err)
	_, err = s.SaveUserMemory("u1", "contexto")
	require.NoError(t, err)
	_, err = s.SaveRule("r1", "general", 1.0)
	require.NoError(t, err)

	require.NoError(t, s.ClearRules())
	stats, err := s.GetSystemStats()
	require.NoError(t, err)
	assert.Zero(t, stats.TotalRules)
	assert.Equal(t, 1, stats.TotalMemories)

	require.NoError(t, s.ClearMemories())
	stats, err = s.GetSystemStats()
	require.NoError(t, err)
	assert.Zero(t, stats.TotalMemories)
	assert.Equal(t, 1, stats.TotalUsers, "partial clears keep users")
}

func TestListRulesRoundTrip(t *testing.T) {
	s := newTestStore(t)

	_, err := s.SaveRule("r1", "vago", 1.0)
	require.NoError(t, err)
	_, err = s.SaveRule("r2", "incompleto", 0.5)
	require.NoError(t, err)

	rules, err := s.ListRules()
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "r1", rules[0].Text)
	assert.Equal(t, "vago", rules[0].Category)
	assert.Equal(t, 1.0, rules[0].ValidationScore)
	assert.Equal(t, "r2", rules[1].Text)
}
