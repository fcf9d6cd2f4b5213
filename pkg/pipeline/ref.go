package pipeline

import (
	"reflect"

	"github.com/aretw0/testctx/pkg/domain"
)

// Named lets a listener choose the reference it is known by.
type Named interface {
	ListenerName() string
}

// Ordered declares a type-level order for a listener.
type Ordered interface {
	Order() int
}

// OrderDeclarer declares orders for individual events.
// An entry with an empty Event is a type-level order.
type OrderDeclarer interface {
	Orders() []domain.Order
}

// Ref returns the reference a listener is registered and excluded by.
func Ref(listener any) string {
	if n, ok := listener.(Named); ok {
		return n.ListenerName()
	}
	return TypeRef(reflect.TypeOf(listener))
}

// TypeRef returns the fully qualified name of t, ignoring pointer indirection.
func TypeRef(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" || t.Name() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// RefOf returns the type reference of T, for exact-type exclusions.
func RefOf[T any]() string {
	return TypeRef(reflect.TypeFor[T]())
}
