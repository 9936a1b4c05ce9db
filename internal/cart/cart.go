package cart

import (
	"slices"

	"github.com/DoyleJ11/hobuy-widget/pkg/types"
)

const DefaultCurrency = "USD"

// State is the pre-auction side of a widget. Only Cart is persisted.
type State struct {
	IsOpen            bool
	IsInfoOpen        bool
	IsCustomURLScreen bool
	IsAuctionStarting bool
	Currency          string
	CustomerName      string
	Cart              []types.Product
}

func NewState() State {
	return State{Currency: DefaultCurrency, Cart: []types.Product{}}
}

type Action interface{ isCartAction() }

type SetOpen struct{ Open bool }

type SetInfoOpen struct{ Open bool }

type SetCustomURLScreen struct{ On bool }

type SetAuctionStarting struct{ Starting bool }

type SetCustomerName struct{ Name string }

type SetCurrency struct{ Currency string }

type SetCart struct{ Cart []types.Product }

// AddToCart appends Product unless an entry with the same ID is present. It always
// opens the widget.
type AddToCart struct{ Product types.Product }

// ClearCart empties the cart and opens the widget.
type ClearCart struct{}

func (SetOpen) isCartAction()            {}
func (SetInfoOpen) isCartAction()        {}
func (SetCustomURLScreen) isCartAction() {}
func (SetAuctionStarting) isCartAction() {}
func (SetCustomerName) isCartAction()    {}
func (SetCurrency) isCartAction()        {}
func (SetCart) isCartAction()            {}
func (AddToCart) isCartAction()          {}
func (ClearCart) isCartAction()          {}

func Reduce(s State, a Action) State {
	switch act := a.(type) {
	case SetOpen:
		s.IsOpen = act.Open
	case SetInfoOpen:
		s.IsInfoOpen = act.Open
	case SetCustomURLScreen:
		s.IsCustomURLScreen = act.On
	case SetAuctionStarting:
		s.IsAuctionStarting = act.Starting
	case SetCustomerName:
		s.CustomerName = act.Name
	case SetCurrency:
		s.Currency = act.Currency
	case SetCart:
		s.Cart = slices.Clone(act.Cart)
		if s.Cart == nil {
			s.Cart = []types.Product{}
		}
	case AddToCart:
		s.IsOpen = true
		s.Cart = withProduct(s.Cart, act.Product)
	case ClearCart:
		s.IsOpen = true
		s.Cart = []types.Product{}
	}
	return s
}

func withProduct(cart []types.Product, p types.Product) []types.Product {
	if Contains(cart, p.ID) {
		return cart
	}
	next := make([]types.Product, 0, len(cart)+1)
	next = append(next, cart...)
	return append(next, p)
}

func Contains(cart []types.Product, id types.ID) bool {
	return slices.ContainsFunc(cart, func(p types.Product) bool { return p.ID == id })
}
