package cart

import (
	"slices"
	"sync"

	"github.com/DoyleJ11/hobuy-widget/internal/storage"
	"github.com/DoyleJ11/hobuy-widget/pkg/types"
	"go.uber.org/zap"
)

// Store serialises dispatches and applies the persisted-cart side effects.
type Store struct {
	mu      sync.Mutex
	state   State
	storage storage.Store
	log     *zap.Logger
}

// New hydrates the cart from storage once.
func New(st storage.Store, log *zap.Logger) *Store {
	s := &Store{state: NewState(), storage: st, log: log.Named("cart")}

	var persisted []types.Product
	if st.Get(storage.KeyCart, &persisted) {
		s.state = Reduce(s.state, SetCart{Cart: persisted})
		s.log.Debug("cart restored", zap.Int("items", len(persisted)))
	}
	return s
}

func (s *Store) Dispatch(actions ...Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range actions {
		switch act := a.(type) {
		case AddToCart:
			s.addToCart(act.Product)
		case ClearCart:
			s.state = Reduce(s.state, act)
			s.storage.Remove(storage.KeyCart)
		default:
			s.state = Reduce(s.state, act)
		}
	}
	return s.snapshot()
}

// addToCart works from the persisted cart, which is the source of truth for adds.
// Without one the cart starts over from p alone.
func (s *Store) addToCart(p types.Product) {
	var persisted []types.Product
	if !s.storage.Get(storage.KeyCart, &persisted) {
		persisted = nil
	}
	s.state.Cart = persisted

	before := len(s.state.Cart)
	s.state = Reduce(s.state, AddToCart{Product: p})
	if len(s.state.Cart) != before || before == 0 {
		s.storage.Set(storage.KeyCart, s.state.Cart)
	}
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Store) snapshot() State {
	out := s.state
	out.Cart = slices.Clone(s.state.Cart)
	return out
}
