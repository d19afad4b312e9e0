package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ooga-swap/pkg/types"
)

const hashA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
const hashB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"

func newRecord(hash string, submitted time.Time) *Record {
	return &Record{
		SwapStatus:  types.SwapStatus{TxHash: hash},
		Router:      "0xFd88aD4849BA0F729D6fF4bC27Ff948Ab1Ac3dE7",
		TokenIn:     "0x0555E30da8f98308EdB960aa94C0Db47230d2B9c",
		TokenOut:    "0x657e8C867D8B37dCC18fA4Caead9C45EB088C642",
		Amount:      "100000000",
		To:          "0xed63E871F5de87cb1919671eE9e2d331183Eda8f",
		SubmittedAt: submitted,
	}
}

func TestStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.json")

	store, err := Open(path)
	require.NoError(t, err)
	assert.Empty(t, store.List(""))
	assert.Equal(t, path, store.Path())

	require.NoError(t, store.Add(newRecord(hashA, time.Time{})))
	assert.Error(t, store.Add(newRecord(hashA, time.Time{})))

	reopened, err := Open(path)
	require.NoError(t, err)

	rec, err := reopened.Get(hashA)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, rec.Status)
	assert.Equal(t, "100000000", rec.Amount)
	assert.False(t, rec.SubmittedAt.IsZero())

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestStoreResolve(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)
	require.NoError(t, store.Add(newRecord(hashA, time.Time{})))

	found, err := store.Resolve(types.SwapStatus{TxHash: hashA, Status: StatusSuccess, BlockNumber: 12, GasUsed: 21000}, "99000000")
	require.NoError(t, err)
	assert.True(t, found)

	rec, err := store.Get(hashA)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, rec.Status)
	assert.Equal(t, uint64(12), rec.BlockNumber)
	assert.Equal(t, "99000000", rec.AmountOut)
	assert.Equal(t, "0x0555E30da8f98308EdB960aa94C0Db47230d2B9c", rec.TokenIn)

	found, err = store.Resolve(types.SwapStatus{TxHash: hashB, Status: StatusSuccess}, "")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStoreList(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)

	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Add(newRecord(hashA, older)))
	require.NoError(t, store.Add(newRecord(hashB, older.Add(time.Hour))))

	_, err = store.Resolve(types.SwapStatus{TxHash: hashA, Status: StatusReverted}, "")
	require.NoError(t, err)

	all := store.List("")
	require.Len(t, all, 2)
	assert.Equal(t, hashB, all[0].TxHash)

	reverted := store.List(StatusReverted)
	require.Len(t, reverted, 1)
	assert.Equal(t, hashA, reverted[0].TxHash)
}

func TestOpenCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := Open(path)
	assert.Error(t, err)
}

func TestStoreAddDuplicate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	store, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, store.Add(newRecord(hashA, time.Time{})))
	_, err = store.Resolve(types.SwapStatus{TxHash: hashA, Status: StatusSuccess}, "1")
	require.NoError(t, err)

	err = store.Add(newRecord(hashA, time.Time{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already recorded")

	// the first entry is untouched, on disk too
	reopened, err := Open(path)
	require.NoError(t, err)
	rec, err := reopened.Get(hashA)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, rec.Status)
	assert.Len(t, reopened.List(""), 1)
}
