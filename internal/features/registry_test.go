package features

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := Default()

	assert.Equal(t, Unlimited, r.Limit("lesson_browse", "free"))
	assert.Equal(t, int64(5), r.Limit("practice_attempts", "free"))
	assert.Equal(t, int64(100), r.Limit("practice_attempts", "plus"))
	assert.Equal(t, Unlimited, r.Limit("practice_attempts", "max"))
	assert.Equal(t, int64(0), r.Limit("video_hd", "free"))
	assert.Equal(t, int64(0), r.Limit("ai_tutor", "plus"))
	assert.Equal(t, int64(40), r.Limit("ai_tutor", "max"))
}

func TestRegistryUnknownResolvesToZero(t *testing.T) {
	r := Default()

	assert.Equal(t, int64(0), r.Limit("time_travel", "max"))
	assert.Equal(t, int64(0), r.Limit("practice_attempts", "platinum"))
	assert.False(t, r.Known("time_travel"))
	assert.True(t, r.Known("practice_attempts"))
}

func TestRegistrySetOverrides(t *testing.T) {
	r := Default()

	r.Set("practice_attempts", map[string]int64{"free": 10, "plus": 200, "max": Unlimited})
	assert.Equal(t, int64(10), r.Limit("practice_attempts", "free"))

	// The registry copies the map; later caller mutation must not leak in.
	limits := map[string]int64{"free": 1}
	r.Set("video_hd", limits)
	limits["free"] = 99
	assert.Equal(t, int64(1), r.Limit("video_hd", "free"))
}

func TestLoadFromFile(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "features.json")
		require.NoError(t, os.WriteFile(path, []byte(`{
			"features": [
				{"name": "practice_attempts", "limits": {"free": 3, "plus": 50, "max": -1}},
				{"name": "lesson_browse", "limits": {"free": -1, "plus": -1, "max": -1}}
			]
		}`), 0o644))

		r, err := LoadFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, int64(3), r.Limit("practice_attempts", "free"))
		assert.Equal(t, Unlimited, r.Limit("practice_attempts", "max"))
		assert.Len(t, r.All(), 2)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.json"))
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
		_, err := LoadFromFile(path)
		assert.Error(t, err)
	})
}
