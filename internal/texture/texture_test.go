package texture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "terrain.png"), []byte("png"), 0o644))

	s := NewDirSource(dir, map[string]string{
		"terrain":      "terrain.png",
		"road_asphalt": "road_asphalt.png",
	})

	t.Run("existing file resolves to loaded", func(t *testing.T) {
		r := s.Resolve("terrain")
		assert.True(t, r.Loaded())
		assert.Equal(t, filepath.Join(dir, "terrain.png"), r.Path)
	})

	t.Run("missing file falls back to procedural", func(t *testing.T) {
		r := s.Resolve("road_asphalt")
		assert.False(t, r.Loaded())
		assert.Equal(t, "road_asphalt", r.Category)
	})

	t.Run("unknown key is procedural", func(t *testing.T) {
		r := s.Resolve("never_configured")
		assert.False(t, r.Loaded())
	})

	t.Run("all is sorted by key", func(t *testing.T) {
		all := s.All()
		require.Len(t, all, 2)
		assert.Equal(t, "road_asphalt", all[0].Key)
		assert.Equal(t, "terrain", all[1].Key)
	})
}
