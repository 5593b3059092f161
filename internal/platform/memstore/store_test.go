package memstore_test

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"inventoryledger/internal/fulfillment"
	"inventoryledger/internal/inventory"
	"inventoryledger/internal/platform/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestGetOrInitCreatesOnce(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	for i := 0; i < 3; i++ {
		qty, err := store.GetOrInit(ctx, "P")
		require.NoError(t, err)
		assert.Zero(t, qty)
	}
	assert.Equal(t, 1, store.Len())
}

func TestGetDoesNotCreate(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	_, err := store.Get(ctx, "P")
	require.ErrorIs(t, err, inventory.ErrProductNotRegistered)
	assert.Zero(t, store.Len())

	store.Set("P", -4)
	rec, err := store.Get(ctx, "P")
	require.NoError(t, err)
	assert.Equal(t, "P", rec.ProductID)
	assert.Equal(t, int64(-4), rec.Quantity)
}

func TestAdjustReturnsPreviousAndCurrent(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	prev, cur, err := store.Adjust(ctx, "P", -3)
	require.NoError(t, err)
	assert.Equal(t, int64(0), prev)
	assert.Equal(t, int64(-3), cur)

	prev, cur, err = store.Adjust(ctx, "P", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(-3), prev)
	assert.Equal(t, int64(0), cur)
}

func TestReserveThenCancelRestoresQuantity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		start := rapid.Int64Range(-1_000_000, 1_000_000).Draw(t, "start")
		k := rapid.Int64Range(1, 1_000_000).Draw(t, "k")

		ctx := context.Background()
		store := memstore.New()
		store.Set("P", start)

		prev, cur, err := store.Adjust(ctx, "P", -k)
		if err != nil {
			t.Fatal(err)
		}
		if prev != start || cur != start-k {
			t.Fatalf("reserve: got %d -> %d, want %d -> %d", prev, cur, start, start-k)
		}
		prev, cur, err = store.Adjust(ctx, "P", k)
		if err != nil {
			t.Fatal(err)
		}
		if prev != start-k || cur != start {
			t.Fatalf("cancel: got %d -> %d, want %d -> %d", prev, cur, start-k, start)
		}
	})
}

func TestAdjustRejectsOverflow(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	store.Set("HIGH", math.MaxInt64-1)
	_, _, err := store.Adjust(ctx, "HIGH", 2)
	require.ErrorIs(t, err, inventory.ErrQuantityOutOfRange)

	store.Set("LOW", math.MinInt64+1)
	_, _, err = store.Adjust(ctx, "LOW", -2)
	require.ErrorIs(t, err, inventory.ErrQuantityOutOfRange)

	rec, err := store.Get(ctx, "HIGH")
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64-1), rec.Quantity)
	rec, err = store.Get(ctx, "LOW")
	require.NoError(t, err)
	assert.Equal(t, int64(math.MinInt64+1), rec.Quantity)

	_, cur, err := store.Adjust(ctx, "HIGH", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), cur)
}

func TestAdjustHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := memstore.New().Adjust(ctx, "P", 1)
	require.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentAdjustmentsAreNotLost(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.Int64Range(-100, 100).Draw(t, "initial")
		deltas := rapid.SliceOfN(rapid.Int64Range(-50, 50), 1, 64).Draw(t, "deltas")

		ctx := context.Background()
		store := memstore.New()
		store.Set("P", initial)

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			errs []error
		)
		for _, d := range deltas {
			wg.Add(1)
			go func(d int64) {
				defer wg.Done()
				prev, cur, err := store.Adjust(ctx, "P", d)
				if err == nil && cur-prev != d {
					err = errors.New("previous and current do not differ by delta")
				}
				if err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
			}(d)
		}
		wg.Wait()

		if len(errs) > 0 {
			t.Fatalf("adjust: %v", errors.Join(errs...))
		}
		want := initial
		for _, d := range deltas {
			want += d
		}
		got, err := store.GetOrInit(ctx, "P")
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("quantity %d, want %d", got, want)
		}
	})
}

func TestWithinTxRollsBack(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	store.Set("P1", 10)

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(ctx context.Context, tx inventory.Ledger) error {
		if _, _, err := tx.Adjust(ctx, "P1", 5); err != nil {
			return err
		}
		if _, _, err := tx.Adjust(ctx, "P1", 5); err != nil {
			return err
		}
		if _, _, err := tx.Adjust(ctx, "NEW", 1); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	rec, err := store.Get(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), rec.Quantity)
	_, err = store.Get(ctx, "NEW")
	require.ErrorIs(t, err, inventory.ErrProductNotRegistered)
	assert.Equal(t, 1, store.Len())
}

func TestWithinTxCommits(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	err := store.WithinTx(ctx, func(ctx context.Context, tx inventory.Ledger) error {
		_, _, err := tx.Adjust(ctx, "P", 7)
		return err
	})
	require.NoError(t, err)

	qty, err := store.GetOrInit(ctx, "P")
	require.NoError(t, err)
	assert.Equal(t, int64(7), qty)
}

func TestLoadSeed(t *testing.T) {
	doc := `{
		"inventory": {"P1": 50, "P2": -3},
		"orders": {"O1": [{"product_id": "P1", "quantity": 5}, {"product_id": "P2", "quantity": 3}]}
	}`

	store, orders, err := memstore.LoadSeed(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())

	items, err := orders.LineItems(context.Background(), "O1")
	require.NoError(t, err)
	assert.Equal(t, []fulfillment.LineItem{{ProductID: "P1", Quantity: 5}, {ProductID: "P2", Quantity: 3}}, items)

	items, err = orders.LineItems(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestLoadSeedRejectsNonPositiveQuantity(t *testing.T) {
	_, _, err := memstore.LoadSeed(strings.NewReader(`{"orders": {"O1": [{"product_id": "P1", "quantity": 0}]}}`))
	require.Error(t, err)

	_, _, err = memstore.LoadSeed(strings.NewReader(`{`))
	require.Error(t, err)
}
