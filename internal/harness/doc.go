// Package harness runs scripted candidate scenarios against the delivery
// engine.
//
// A scenario names a CUE content package and a list of steps. Each step is
// one candidate request (launch, attempt, select_item, render, ...) on a
// named session, optionally with an expect clause checked against the
// outcome: the appended event type, the error kind and privilege of a
// refusal, the session flags, or the rendered output.
//
// # Assertions
//
// After the steps, assertions check the run as a whole:
//   - event_order: event types appear in order, gaps allowed
//   - event_count: an event type appears exactly N times
//   - final_state: closed, terminated, ended, num_attempts, score, results
//   - chain_intact: the session's event digest chain verifies
//
// # Determinism
//
// Every run uses a fresh in-memory SQLite database, a step clock starting
// at testutil.Epoch, sequential or seeded template seeds and one fixed
// session token. The trace of a scenario is therefore stable and is
// compared against a golden file in canonical JSON.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/practice.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, msg := range result.Errors {
//	    log.Println(msg)
//	}
package harness
