package review

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

func fixedStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	root := t.TempDir()
	s := NewFileStore(root)
	s.now = func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }
	return s, root
}

func rules(keys ...string) *map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return &m
}

func TestFileStore_MissingFilesAreEmpty(t *testing.T) {
	s, _ := fixedStore(t)
	ctx := context.Background()

	st, err := s.ReviewState(ctx)
	require.NoError(t, err)
	assert.Empty(t, st.Resolved)
	assert.NotNil(t, st.Resolved)

	o, err := s.Overrides(ctx)
	require.NoError(t, err)
	assert.Empty(t, o.MerchantRules)
	assert.NotNil(t, o.TransferRules)
	assert.True(t, o.UpdatedAt.IsZero())
}

func TestFileStore_ResolveUnresolve(t *testing.T) {
	s, root := fixedStore(t)
	ctx := context.Background()

	st, err := s.Resolve(ctx, []string{"inb_a", "txn_b"}, "checked")
	require.NoError(t, err)
	assert.True(t, st.IsResolved("inb_a"))
	assert.Equal(t, "checked", st.Resolved["txn_b"].Note)

	_, err = os.Stat(filepath.Join(root, Dir, StateFile))
	require.NoError(t, err)

	st, err = s.Unresolve(ctx, []string{"inb_a"})
	require.NoError(t, err)
	assert.False(t, st.IsResolved("inb_a"))
	assert.True(t, st.IsResolved("txn_b"))

	reread, err := NewFileStore(root).ReviewState(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"txn_b"}, keys(reread.Resolved))
}

func TestFileStore_ResolveRejectsEmptyID(t *testing.T) {
	s, _ := fixedStore(t)
	_, err := s.Resolve(context.Background(), []string{""}, "")
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestFileStore_MergeOverrides(t *testing.T) {
	s, _ := fixedStore(t)
	ctx := context.Background()

	_, err := s.MergeOverrides(ctx, model.OverridesPatch{
		MerchantRules: rules("coffee"),
		TransferRules: rules("out:landlord"),
	})
	require.NoError(t, err)

	// nil leaves merchant rules alone, empty map clears transfer rules
	empty := map[string]bool{}
	o, err := s.MergeOverrides(ctx, model.OverridesPatch{
		TransferRules: &empty,
		ParseRules:    rules("commbank_auto_debit_credit:INVALID_DATE"),
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"coffee": true}, o.MerchantRules)
	assert.Empty(t, o.TransferRules)
	assert.Equal(t, map[string]bool{"commbank_auto_debit_credit:INVALID_DATE": true}, o.ParseRules)
	assert.False(t, o.UpdatedAt.IsZero())
}

func TestFileStore_EmptyPatchDoesNotWrite(t *testing.T) {
	s, root := fixedStore(t)

	o, err := s.MergeOverrides(context.Background(), model.OverridesPatch{})
	require.NoError(t, err)
	assert.True(t, o.UpdatedAt.IsZero())

	_, err = os.Stat(filepath.Join(root, Dir, OverridesFile))
	assert.True(t, os.IsNotExist(err))
}

func TestFileStore_SetRule(t *testing.T) {
	s, _ := fixedStore(t)
	ctx := context.Background()

	_, err := s.SetRule(ctx, model.KindUnknownMerchant, "coffee", true)
	require.NoError(t, err)
	o, err := s.SetRule(ctx, model.KindUnknownMerchant, "bakery", true)
	require.NoError(t, err)
	assert.Len(t, o.MerchantRules, 2)

	o, err = s.SetRule(ctx, model.KindUnknownMerchant, "coffee", false)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"bakery": true}, o.MerchantRules)
}

func TestFileStore_SetRuleErrors(t *testing.T) {
	s, _ := fixedStore(t)
	ctx := context.Background()

	_, err := s.SetRule(ctx, model.InboxKind("LOW_CONFIDENCE"), "x", true)
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = s.SetRule(ctx, model.KindParseIssue, "", true)
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestFileStore_ConcurrentMergesKeepEveryCategory(t *testing.T) {
	s, _ := fixedStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			_, err := s.SetRule(ctx, model.KindUnknownMerchant, fmt.Sprintf("m%d", i), true)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := s.SetRule(ctx, model.KindUncertainTransfer, fmt.Sprintf("t%d", i), true)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := s.SetRule(ctx, model.KindParseIssue, fmt.Sprintf("p%d", i), true)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	o, err := s.Overrides(ctx)
	require.NoError(t, err)
	assert.Len(t, o.MerchantRules, 10)
	assert.Len(t, o.TransferRules, 10)
	assert.Len(t, o.ParseRules, 10)
}

func TestFileStore_SeparateStoresKeepEveryCategory(t *testing.T) {
	ctx := context.Background()

	for round := 0; round < 50; round++ {
		root := t.TempDir()
		a, b := NewFileStore(root), NewFileStore(root)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := a.SetRule(ctx, model.KindUnknownMerchant, "coles", true)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := b.SetRule(ctx, model.KindParseIssue, "tpl:AMBIGUOUS_AMOUNT", true)
			assert.NoError(t, err)
		}()
		wg.Wait()

		o, err := NewFileStore(root).Overrides(ctx)
		require.NoError(t, err)
		require.Equal(t, map[string]bool{"coles": true}, o.MerchantRules, "round %d", round)
		require.Equal(t, map[string]bool{"tpl:AMBIGUOUS_AMOUNT": true}, o.ParseRules, "round %d", round)
	}
}

func TestFileStore_SeparateStoresKeepEveryResolution(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	stores := []*FileStore{NewFileStore(root), NewFileStore(root), NewFileStore(root)}

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := stores[i%len(stores)].Resolve(ctx, []string{fmt.Sprintf("inb_%d", i)}, "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	st, err := stores[0].ReviewState(ctx)
	require.NoError(t, err)
	assert.Len(t, st.Resolved, 30)
}

func TestFileStore_LockHonorsContext(t *testing.T) {
	s, root := fixedStore(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, Dir), 0o755))

	held := flock.New(filepath.Join(root, Dir, LockFile))
	require.NoError(t, held.Lock())
	defer held.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := s.SetRule(ctx, model.KindUnknownMerchant, "coles", true)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFileStore_CorruptFile(t *testing.T) {
	s, root := fixedStore(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, Dir), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, Dir, StateFile), []byte("resolved: [1, 2"), 0o644))

	_, err := s.ReviewState(context.Background())
	assert.ErrorContains(t, err, "parsing "+StateFile)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	st, closeFn, err := Open(ctx, "", t.TempDir(), "")
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &FileStore{}, st)

	_, _, err = Open(ctx, "sqlite", t.TempDir(), "")
	assert.ErrorContains(t, err, "unknown storage driver")

	_, _, err = Open(ctx, DriverPostgres, t.TempDir(), "")
	assert.Error(t, err)
}

func keys(m map[string]model.Resolution) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
