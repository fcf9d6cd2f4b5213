package pipeline

import (
	"errors"
	"iter"
	"slices"
	"testing"

	"github.com/aretw0/testctx/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type greeter interface {
	Greet() error
}

var greeterFamily = domain.NewFamily[greeter]("greeter", "greet", "wave")

type typeOne struct{ calls *[]string }

func (l *typeOne) Greet() error { *l.calls = append(*l.calls, "A"); return nil }
func (l *typeOne) Order() int   { return 1 }

type noOrder struct{ calls *[]string }

func (l *noOrder) Greet() error { *l.calls = append(*l.calls, "B"); return nil }

type eventOrdered struct{ calls *[]string }

func (l *eventOrdered) Greet() error { *l.calls = append(*l.calls, "C"); return nil }
func (l *eventOrdered) Orders() []domain.Order {
	return []domain.Order{{Value: 5}, {Event: "greet", Value: 0}}
}

type failing struct{}

func (failing) Greet() error { return errors.New("nope") }

type named struct{}

func (named) Greet() error          { return nil }
func (named) ListenerName() string { return "custom-name" }

type doubled struct{}

func (doubled) Greet() error { return nil }
func (doubled) Orders() []domain.Order {
	return []domain.Order{{Event: "greet", Value: 1}, {Event: "greet", Value: 2}}
}

type notGreeter struct{}

type discoveryFunc func(domain.Family) []any

func (f discoveryFunc) Discover(family domain.Family) iter.Seq[any] {
	return slices.Values(f(family))
}

type mockFactory struct{ mock.Mock }

func (m *mockFactory) Instantiate(ref string) (any, error) {
	args := m.Called(ref)
	return args.Get(0), args.Error(1)
}

type ordersScanner map[string][]domain.Order

func (s ordersScanner) GroupOf(string) (string, bool)                    { return "", false }
func (s ordersScanner) Policy(string) domain.ReloadPolicy                { return domain.ReloadNone }
func (s ordersScanner) Declarations(string) []domain.ListenerDeclaration { return nil }
func (s ordersScanner) Orders(ref string) []domain.Order                 { return s[ref] }
func (s ordersScanner) Extensions(string) []domain.Extension             { return nil }

func refs(ls []any) []string {
	out := make([]string, 0, len(ls))
	for _, l := range ls {
		out = append(out, Ref(l))
	}
	return out
}

func TestListeners_OrderingLaw(t *testing.T) {
	var calls []string
	a, b, c := &typeOne{&calls}, &noOrder{&calls}, &eventOrdered{&calls}
	p := New()
	require.NoError(t, p.Register(b, c, a))

	require.NoError(t, Fire(p, greeterFamily, "greet", func(g greeter) error { return g.Greet() }))
	assert.Equal(t, []string{"C", "A", "B"}, calls)

	calls = nil
	require.NoError(t, Fire(p, greeterFamily, "wave", func(g greeter) error { return g.Greet() }))
	assert.Equal(t, []string{"A", "C", "B"}, calls, "type-level order applies when the event has no declaration")
}

func TestRegister_DeduplicatesByConcreteType(t *testing.T) {
	var calls []string
	p := New()
	require.NoError(t, p.Register(&noOrder{&calls}, &noOrder{&calls}))
	require.NoError(t, p.Register(&noOrder{&calls}))

	assert.Len(t, p.All(), 1)
}

func TestRegister_StableForEqualOrders(t *testing.T) {
	p := New()
	require.NoError(t, p.Register(named{}, failing{}, notGreeter{}))

	ls, err := p.Listeners(greeterFamily, "greet")
	require.NoError(t, err)
	assert.Equal(t, []string{"custom-name", RefOf[failing]()}, refs(ls))
}

func TestLoad_ExclusionScenario(t *testing.T) {
	var calls []string
	x, y := &typeOne{&calls}, &noOrder{&calls}
	p := New(WithDiscovery(discoveryFunc(func(domain.Family) []any { return []any{x, y} })))

	p.Exclude(RefOf[*typeOne]())
	require.NoError(t, p.Load(greeterFamily))

	ls, err := p.Listeners(greeterFamily, "greet")
	require.NoError(t, err)
	assert.Equal(t, []any{y}, ls)
	assert.True(t, p.Excluded(x))
}

func TestExclude_RemovesRegisteredListenerByName(t *testing.T) {
	p := New()
	require.NoError(t, p.Register(named{}, failing{}))
	_, err := p.Listeners(greeterFamily, "greet")
	require.NoError(t, err)

	p.Exclude("custom-name")

	ls, err := p.Listeners(greeterFamily, "greet")
	require.NoError(t, err)
	assert.Equal(t, []string{RefOf[failing]()}, refs(ls))
}

func TestLoad_SkipsForeignImplementations(t *testing.T) {
	p := New(WithDiscovery(discoveryFunc(func(domain.Family) []any { return []any{notGreeter{}, named{}} })))
	require.NoError(t, p.Load(greeterFamily))

	assert.Equal(t, []any{named{}}, p.All())
	assert.Len(t, p.Families(), 1)
}

func TestLoad_RejectsNonInterfaceFamily(t *testing.T) {
	p := New()
	err := p.Load(domain.NewFamily[named]("concrete", "greet"))
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestListeners_UnknownEvent(t *testing.T) {
	p := New()
	_, err := p.Listeners(greeterFamily, "dance")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestListeners_DuplicateEventOrder(t *testing.T) {
	p := New()
	require.NoError(t, p.Register(doubled{}))

	_, err := p.Listeners(greeterFamily, "greet")
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = p.Listeners(greeterFamily, "wave")
	assert.NoError(t, err, "the duplicate only affects its own event")
}

func TestListeners_CacheInvalidatedOnRegister(t *testing.T) {
	var calls []string
	p := New()
	require.NoError(t, p.Register(&noOrder{&calls}))
	ls, err := p.Listeners(greeterFamily, "greet")
	require.NoError(t, err)
	require.Len(t, ls, 1)

	require.NoError(t, p.Register(&typeOne{&calls}))

	ls, err = p.Listeners(greeterFamily, "greet")
	require.NoError(t, err)
	assert.Len(t, ls, 2)
	assert.IsType(t, &typeOne{}, ls[0])
}

func TestScannerOrdersMerge(t *testing.T) {
	var calls []string
	scanner := ordersScanner{
		RefOf[*noOrder](): {{Event: "greet", Value: -1}},
	}
	p := New(WithScanner(scanner))
	require.NoError(t, p.Register(&typeOne{&calls}, &noOrder{&calls}))

	require.NoError(t, Fire(p, greeterFamily, "greet", func(g greeter) error { return g.Greet() }))
	assert.Equal(t, []string{"B", "A"}, calls)
}

func TestFire_StopsAtFirstFailure(t *testing.T) {
	var calls []string
	p := New()
	require.NoError(t, p.Register(&typeOne{&calls}, failing{}, &noOrder{&calls}))

	err := Fire(p, greeterFamily, "greet", func(g greeter) error { return g.Greet() })

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrListenerFailure)
	var lf *domain.ListenerFailure
	require.ErrorAs(t, err, &lf)
	assert.Equal(t, "greet", lf.Event)
	assert.Equal(t, RefOf[failing](), lf.Listener)
	assert.Equal(t, []string{"A"}, calls)
}

func TestDeclare_IncludeAndExclude(t *testing.T) {
	factory := new(mockFactory)
	factory.On("Instantiate", "app.Named").Return(named{}, nil)
	factory.On("Instantiate", "app.Missing").Return(nil, errors.New("unknown"))

	var calls []string
	p := New(WithFactory(factory))
	require.NoError(t, p.Register(&noOrder{&calls}))

	require.NoError(t, p.Declare(
		domain.ListenerDeclaration{Include: "app.Named"},
		domain.ListenerDeclaration{Exclude: RefOf[*noOrder]()},
		domain.ListenerDeclaration{Instance: failing{}},
	))
	assert.Equal(t, []string{"custom-name", RefOf[failing]()}, refs(p.All()))

	err := p.Declare(domain.ListenerDeclaration{Include: "app.Missing"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	factory.AssertExpectations(t)
}

func TestDeclare_IncludeWithoutFactory(t *testing.T) {
	p := New()
	err := p.Declare(domain.ListenerDeclaration{Include: "app.Named"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestWarm_SurfacesOrderErrors(t *testing.T) {
	p := New(WithDiscovery(discoveryFunc(func(domain.Family) []any { return []any{doubled{}} })))
	require.NoError(t, p.Load(greeterFamily))

	assert.ErrorIs(t, p.Warm(), domain.ErrConfiguration)
}

func TestMembers_Typed(t *testing.T) {
	var calls []string
	p := New()
	require.NoError(t, p.Register(&noOrder{&calls}, &typeOne{&calls}))

	ms, err := Members[greeter](p, greeterFamily, "greet")
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.IsType(t, &typeOne{}, ms[0])
}

func TestRef(t *testing.T) {
	assert.Equal(t, "custom-name", Ref(named{}))
	assert.Equal(t, "github.com/aretw0/testctx/pkg/pipeline.failing", Ref(failing{}))
	assert.Equal(t, "github.com/aretw0/testctx/pkg/pipeline.noOrder", Ref(&noOrder{}))
	assert.Equal(t, "int", Ref(1))
	assert.Equal(t, "<nil>", TypeRef(nil))
}
