/*
Package domain contains the value types shared by every testctx component.

It is kept pure and free of I/O, following the same hexagonal layout as the
rest of the module: adapters and coordinators depend on domain, never the
other way around.

# Key Entities

  - Unit: one schedulable test execution (a test, a container, a dynamic test).
  - ReloadPolicy: whether a unit needs a fresh shared context before or after it runs.
  - Family: a named capability family of listeners and the events it declares.
  - Order / ListenerDeclaration / Extension: declarative metadata consumed by the pipeline.
  - Snapshot / LockEvent: observability outputs.
*/
package domain
