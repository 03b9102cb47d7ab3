package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/gradcafe-crawler/internal/survey"
)

func TestSnapshotStore(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore()

	empty, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.Zero(t, store.Saves())

	dataset := survey.Dataset{{Program: "Physics", Comments: "a < b"}}
	require.NoError(t, store.Save(ctx, dataset))
	assert.Equal(t, 1, store.Saves())
	assert.Contains(t, string(store.Bytes()), `"comments": "a < b"`)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, dataset, loaded)

	loaded[0].Program = "mutated"
	again, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Physics", again[0].Program)
}
