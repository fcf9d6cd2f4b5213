/*
Package testctx shares expensive test fixtures between test executions.

A group of tests declares a shared context: a database container, a server, a
warmed cache. The first test of the group starts it, later tests reuse it and the
last test to finish stops it. Tests that leave the context dirty, or need a fresh
one, declare a reload policy and the context restarts around them without racing
the tests running alongside.

# Concept

Everything is driven by listeners. A listener is any value implementing one of
the listener interfaces (lifecycle.Listener, reload.Listener, injector.Resolver).
The pipeline orders listeners per event, the injector hands listeners the objects
they need, and the shared context fires lifecycle, restart and boundary events
through the pipeline. Metadata (a scanner or a YAML, TOML or JSON file) assigns
tests to groups, declares reload policies, includes or excludes listeners and
overrides their order.

# Usage

	var engine *testctx.Engine

	func TestMain(m *testing.M) {
		var err error
		engine, err = testctx.New(
			testctx.WithMetadataFile("testctx.yaml"),
			testctx.WithListeners(&postgres{}),
		)
		if err != nil {
			log.Fatal(err)
		}
		code := m.Run()
		_ = engine.Close()
		os.Exit(code)
	}

	func TestUsers(t *testing.T) {
		engine.Run(t, domain.Unit{ID: t.Name()}, func(t testing.TB, inj *injector.Injector) {
			db := injector.MustGet[*sql.DB](inj)
			// ...
		})
	}

Test runners with their own plan callbacks use Engine.Runner instead of Run.
*/
package testctx
