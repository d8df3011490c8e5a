package review

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

// Runs against a throwaway database, e.g.
// LEDGERLENS_TEST_DATABASE_URL=postgres://localhost/ledgerlens_test
func openTestPG(t *testing.T) *PGStore {
	t.Helper()
	dsn := os.Getenv("LEDGERLENS_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("LEDGERLENS_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := OpenPG(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	_, err = s.pool.Exec(ctx, `TRUNCATE review_resolutions, inbox_override_rules`)
	require.NoError(t, err)
	return s
}

func TestPGStore_Resolve(t *testing.T) {
	s := openTestPG(t)
	ctx := context.Background()

	st, err := s.Resolve(ctx, []string{"inb_a", "inb_b"}, "ok")
	require.NoError(t, err)
	assert.Len(t, st.Resolved, 2)
	assert.False(t, st.UpdatedAt.IsZero())

	st, err = s.Unresolve(ctx, []string{"inb_a"})
	require.NoError(t, err)
	assert.False(t, st.IsResolved("inb_a"))
	assert.True(t, st.IsResolved("inb_b"))
}

func TestPGStore_MergeOverrides(t *testing.T) {
	s := openTestPG(t)
	ctx := context.Background()

	_, err := s.MergeOverrides(ctx, model.OverridesPatch{MerchantRules: rules("coffee")})
	require.NoError(t, err)
	_, err = s.SetRule(ctx, model.KindUncertainTransfer, "out:landlord", true)
	require.NoError(t, err)

	empty := map[string]bool{}
	o, err := s.MergeOverrides(ctx, model.OverridesPatch{TransferRules: &empty})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"coffee": true}, o.MerchantRules)
	assert.Empty(t, o.TransferRules)
}
