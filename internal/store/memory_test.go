package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/bidopt/internal/models"
)

func TestMemoryStore(t *testing.T) {
	st := NewMemoryStore()

	assert.True(t, st.Put(Run{ID: "a", CreatedAt: time.Now(), Summary: models.RunSummary{TotalRows: 1}}))
	assert.True(t, st.Put(Run{ID: "b", CreatedAt: time.Now(), Summary: models.RunSummary{TotalRows: 2}}))
	assert.False(t, st.Put(Run{ID: "a"}), "duplicate id must be refused")

	got, ok := st.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, got.Summary.TotalRows)

	_, ok = st.Get("missing")
	assert.False(t, ok)

	runs := st.List()
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].ID, "newest first")
	assert.Equal(t, "a", runs[1].ID)
}
