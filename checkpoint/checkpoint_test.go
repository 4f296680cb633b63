package checkpoint

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitbucket.org/Davydov/mcx/kernel"
	"bitbucket.org/Davydov/mcx/rng"
)

func openDB(t *testing.T) *CheckpointIO {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "checkpoint.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewCheckpointIO(db, []byte("run"), 60)
}

func TestSaveLoad(t *testing.T) {
	cio := openDB(t)

	data, err := cio.Load()
	require.NoError(t, err)
	assert.Nil(t, data)

	saved := &CheckpointData{
		Target:    "banana",
		Kernel:    "hmc",
		Position:  kernel.Position{0.5, -1.25},
		LogProb:   -3.5,
		Key:       rng.New(17),
		Iter:      120,
		Accepted:  80,
		Divergent: 2,
		Reported:  true,
	}
	require.NoError(t, cio.Save(saved))

	data, err = cio.Load()
	require.NoError(t, err)
	assert.Equal(t, saved, data)
}

func TestLoadDataCopies(t *testing.T) {
	cio := openDB(t)
	require.NoError(t, SaveData(cio.db, []byte("a"), []byte("value")))
	b, err := LoadData(cio.db, []byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), b)

	b, err = LoadData(cio.db, []byte("missing"))
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestNilDB(t *testing.T) {
	cio := NewCheckpointIO(nil, []byte("run"), 0)
	assert.NoError(t, cio.Save(&CheckpointData{Position: kernel.Position{1}}))
	data, err := cio.Load()
	assert.NoError(t, err)
	assert.Nil(t, data)
}

func TestOld(t *testing.T) {
	cio := NewCheckpointIO(nil, nil, 60)
	assert.False(t, cio.Old())
	cio.last = time.Now().Add(-2 * time.Minute)
	assert.True(t, cio.Old())
	cio.SetNow()
	assert.False(t, cio.Old())
}
