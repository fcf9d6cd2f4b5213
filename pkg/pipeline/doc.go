/*
Package pipeline implements the ordered listener registry testctx fires every phase through.

Listeners are plain values. Which phases a listener takes part in is decided by
capability families (domain.Family): a listener belongs to every family whose
interface it implements.

# Ordering

For a given (family, event) pair the pipeline returns the family's members sorted by:

 1. an order declared for that exact event (at most one per listener and event),
 2. otherwise the listener's type-level order,
 3. otherwise domain.DefaultOrder, which sorts last.

Sorting is stable, so registration order breaks ties. Orders come from the
listener itself (Ordered, OrderDeclarer) and from metadata
(ports.MetadataScanner.Orders) keyed by the listener reference.

# References

A listener's reference is its ListenerName when it implements Named, otherwise
the fully qualified name of its concrete type. Exclusions match either form.
*/
package pipeline
