package testctx_test

import (
	"fmt"
	"log"

	"github.com/aretw0/testctx"
	"github.com/aretw0/testctx/pkg/adapters/memory"
	"github.com/aretw0/testctx/pkg/domain"
	"github.com/aretw0/testctx/pkg/injector"
	"github.com/aretw0/testctx/pkg/reload"
)

// server prints its lifecycle so the example output shows when the shared context moves.
type server struct {
	reload.BaseListener
}

func (server) StartContext(*injector.Injector) error {
	fmt.Println("server started")
	return nil
}

func (server) StopContext(*injector.Injector) error {
	fmt.Println("server stopped")
	return nil
}

func (server) RestartStartContext(_ *injector.Injector, _ *reload.Hold, u domain.Unit, waiting []domain.Unit) error {
	fmt.Printf("server restarted before %s (%d waiting)\n", u.ID, len(waiting))
	return nil
}

// ExampleEngine_Runner drives a plan the way a test runner would: every unit of the
// group shares one server, and a unit declared AFTER makes the next one see a fresh server.
func ExampleEngine_Runner() {
	// 1. Declare the group layout in memory instead of a metadata file.
	scanner := memory.NewScanner().
		SetGroup("TestSignup", "api").
		SetGroup("TestDeleteAll", "api").
		SetGroup("TestLogin", "api").
		SetPolicy("TestDeleteAll", domain.ReloadAfter)

	engine, err := testctx.New(
		testctx.WithScanner(scanner),
		testctx.WithListeners(server{}),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer engine.Close()

	units := []domain.Unit{{ID: "TestSignup"}, {ID: "TestDeleteAll"}, {ID: "TestLogin"}}

	// 2. Announce the plan so the server survives between units.
	r := engine.Runner()
	r.PlanStarted(units)

	// 3. Run each unit through its boundaries.
	for _, u := range units {
		c, err := r.Started(u)
		if err != nil {
			log.Fatal(err)
		}
		h := reload.NewHold(u.ID)
		if err := c.BeforeEach(h, u); err != nil {
			log.Fatal(err)
		}
		fmt.Println("running", u.ID)
		if err := c.AfterEach(h, u); err != nil {
			log.Fatal(err)
		}
		if _, err := r.Finished(u, nil); err != nil {
			log.Fatal(err)
		}
	}

	// Output:
	// server started
	// running TestSignup
	// running TestDeleteAll
	// server restarted before TestLogin (1 waiting)
	// running TestLogin
	// server stopped
}
