package testclient

import (
	"fmt"
	"io"
	"slices"
	"sync"
	"time"
)

// TestResult is the outcome of one scenario.
type TestResult struct {
	Name    string
	Passed  bool
	Message string
}

type scenario struct {
	name string
	run  func(address string) error
}

var scenarios = []scenario{
	{"Welcome", testWelcome},
	{"StepBatch", testStepBatch},
	{"RunToCompletion", testRunToCompletion},
	{"ResetReproducible", testResetReproducible},
	{"CommandErrors", testCommandErrors},
	{"ConcurrentSessions", testConcurrentSessions},
}

// Timeout bounds every read and write made by the scenarios.
var Timeout = 10 * time.Second

// RunAllTests runs every scenario against the server at address.
func RunAllTests(address string) []TestResult {
	results := make([]TestResult, 0, len(scenarios))
	for _, s := range scenarios {
		result := TestResult{Name: s.name, Passed: true, Message: "ok"}
		if err := s.run(address); err != nil {
			result.Passed = false
			result.Message = err.Error()
		}
		results = append(results, result)
	}
	return results
}

// PrintResults writes a summary of results to w.
func PrintResults(w io.Writer, results []TestResult) {
	passed := 0
	for _, r := range results {
		status := "PASS"
		if r.Passed {
			passed++
		} else {
			status = "FAIL"
		}
		fmt.Fprintf(w, "[%s] %s: %s\n", status, r.Name, r.Message)
	}
	fmt.Fprintf(w, "\n%d/%d scenarios passed\n", passed, len(results))
}

func withClient(address string, fn func(c *TestClient) error) error {
	c, err := Dial(address, Timeout)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}

func testWelcome(address string) error {
	return withClient(address, func(c *TestClient) error {
		w := c.Welcome
		if w.Session == "" || w.State != "running" || w.Rounds != 0 {
			return fmt.Errorf("unexpected welcome %+v", w)
		}
		if len(w.Grid) != w.Rows {
			return fmt.Errorf("welcome grid has %d rows, want %d", len(w.Grid), w.Rows)
		}
		return nil
	})
}

func testStepBatch(address string) error {
	return withClient(address, func(c *TestClient) error {
		snap, err := c.Send("step 3")
		if err != nil {
			return err
		}
		if snap.Error != "" {
			return fmt.Errorf("step 3: %s", snap.Error)
		}
		if snap.Rounds != len(snap.Steps) || len(snap.Steps) == 0 || len(snap.Steps) > 3 {
			return fmt.Errorf("step 3 performed %d rounds with %d steps", snap.Rounds, len(snap.Steps))
		}
		return nil
	})
}

func testRunToCompletion(address string) error {
	return withClient(address, func(c *TestClient) error {
		snap, err := c.Send("run")
		if err != nil {
			return err
		}
		if snap.State != "done" || !Resolved(snap) {
			return fmt.Errorf("run left state %q with grid %v", snap.State, snap.Grid)
		}
		if snap.Rounds > snap.Rows*snap.Cols {
			return fmt.Errorf("%d rounds for %d cells", snap.Rounds, snap.Rows*snap.Cols)
		}
		return nil
	})
}

func testResetReproducible(address string) error {
	return withClient(address, func(c *TestClient) error {
		var grids [2][]string
		for i := range grids {
			if _, err := c.Send("reset 1234"); err != nil {
				return err
			}
			snap, err := c.Send("run")
			if err != nil {
				return err
			}
			grids[i] = snap.Grid
		}
		if !slices.Equal(grids[0], grids[1]) {
			return fmt.Errorf("same seed produced different grids")
		}
		return nil
	})
}

func testCommandErrors(address string) error {
	return withClient(address, func(c *TestClient) error {
		for _, cmd := range []string{"fly", "step zero", "place 1", "reset later"} {
			snap, err := c.Send(cmd)
			if err != nil {
				return err
			}
			if snap.Error == "" {
				return fmt.Errorf("%q was accepted", cmd)
			}
			if snap.Rounds != 0 {
				return fmt.Errorf("%q changed the grid", cmd)
			}
		}
		return nil
	})
}

func testConcurrentSessions(address string) error {
	const n = 2
	var wg sync.WaitGroup
	ids := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = withClient(address, func(c *TestClient) error {
				ids[i] = c.Welcome.Session
				snap, err := c.Send("run")
				if err != nil {
					return err
				}
				if snap.State != "done" {
					return fmt.Errorf("session %d ended in %q", i, snap.State)
				}
				return nil
			})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	slices.Sort(ids)
	if len(slices.Compact(ids)) != n {
		return fmt.Errorf("sessions share ids: %v", ids)
	}
	return nil
}
