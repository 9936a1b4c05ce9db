package cart

import (
	"context"
	"testing"

	"github.com/DoyleJ11/hobuy-widget/internal/storage"
	"github.com/DoyleJ11/hobuy-widget/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func product(id string) types.Product {
	return types.Product{ID: types.ID(id), Name: "item " + id, Price: decimal.NewFromInt(10)}
}

func newStore(t *testing.T) (*Store, *storage.Managed, *storage.MemoryBackend) {
	t.Helper()
	backend := storage.NewMemoryBackend()
	managed := storage.New(backend, "hobuy", zap.NewNop())
	return New(managed, zap.NewNop()), managed, backend
}

func TestNewState_Defaults(t *testing.T) {
	s := NewState()
	assert.Equal(t, "USD", s.Currency)
	assert.Empty(t, s.Cart)
	assert.False(t, s.IsOpen)
}

func TestReduce_Flags(t *testing.T) {
	cases := []struct {
		name   string
		action Action
		check  func(State) bool
	}{
		{"open", SetOpen{Open: true}, func(s State) bool { return s.IsOpen }},
		{"info", SetInfoOpen{Open: true}, func(s State) bool { return s.IsInfoOpen }},
		{"custom url", SetCustomURLScreen{On: true}, func(s State) bool { return s.IsCustomURLScreen }},
		{"starting", SetAuctionStarting{Starting: true}, func(s State) bool { return s.IsAuctionStarting }},
		{"name", SetCustomerName{Name: "Olena"}, func(s State) bool { return s.CustomerName == "Olena" }},
		{"currency", SetCurrency{Currency: "UAH"}, func(s State) bool { return s.Currency == "UAH" }},
		{"cart", SetCart{Cart: []types.Product{product("a")}}, func(s State) bool { return len(s.Cart) == 1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, tc.check(Reduce(NewState(), tc.action)))
		})
	}
}

func TestStore_AddToCartIsIdempotent(t *testing.T) {
	s, managed, _ := newStore(t)

	for i := 0; i < 3; i++ {
		s.Dispatch(AddToCart{Product: product("p1")})
	}
	state := s.Dispatch(AddToCart{Product: product("p2")})

	require.Len(t, state.Cart, 2)
	assert.Equal(t, types.ID("p1"), state.Cart[0].ID)
	assert.Equal(t, types.ID("p2"), state.Cart[1].ID)
	assert.True(t, state.IsOpen, "adding opens the widget")

	var persisted []types.Product
	require.True(t, managed.Get(storage.KeyCart, &persisted))
	assert.Len(t, persisted, 2)
}

func TestStore_AddToCartReadsPersistedCart(t *testing.T) {
	s, managed, _ := newStore(t)

	// another tab wrote to the cart after mount
	managed.Set(storage.KeyCart, []types.Product{product("x")})

	state := s.Dispatch(AddToCart{Product: product("y")})
	require.Len(t, state.Cart, 2)
	assert.Equal(t, types.ID("x"), state.Cart[0].ID)
}

func TestStore_AddToCartStartsOverWithoutPersistedCart(t *testing.T) {
	s, managed, _ := newStore(t)
	s.Dispatch(AddToCart{Product: product("p1")})

	// the auction finished and wiped every managed key
	managed.Clear()

	state := s.Dispatch(AddToCart{Product: product("p2")})
	require.Len(t, state.Cart, 1)
	assert.Equal(t, types.ID("p2"), state.Cart[0].ID)

	var persisted []types.Product
	require.True(t, managed.Get(storage.KeyCart, &persisted))
	require.Len(t, persisted, 1)
	assert.Equal(t, types.ID("p2"), persisted[0].ID)
}

func TestStore_ClearCartRemovesPersistedKey(t *testing.T) {
	s, _, backend := newStore(t)
	s.Dispatch(AddToCart{Product: product("p1")}, SetOpen{Open: false})

	state := s.Dispatch(ClearCart{})
	assert.Empty(t, state.Cart)
	assert.True(t, state.IsOpen)

	_, err := backend.Get(context.Background(), "hobuy_cart")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_HydratesAtMount(t *testing.T) {
	backend := storage.NewMemoryBackend()
	require.NoError(t, backend.Set(context.Background(), "hobuy_cart", []byte(`[{"id":7,"name":"Lamp","price":"12.50"}]`)))

	s := New(storage.New(backend, "hobuy", zap.NewNop()), zap.NewNop())
	state := s.State()

	require.Len(t, state.Cart, 1)
	assert.Equal(t, types.ID("7"), state.Cart[0].ID)
	assert.True(t, decimal.RequireFromString("12.5").Equal(state.Cart[0].Price))
	assert.False(t, state.IsOpen, "hydration does not open the widget")
}

func TestStore_StateIsACopy(t *testing.T) {
	s, _, _ := newStore(t)
	state := s.Dispatch(AddToCart{Product: product("p1")})
	state.Cart[0].Name = "mutated"

	assert.Equal(t, "item p1", s.State().Cart[0].Name)
}
