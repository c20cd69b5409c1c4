// Package harness runs notebook scenarios through the whole compilation
// pipeline and checks the outcome.
//
// # Scenario Format
//
// Scenarios are YAML files describing the cells of a notebook:
//
//	name: exercise_with_hints
//	description: "Hints hang off the exercise they belong to"
//	labels:                      # optional, kind -> label text
//	  exercise: Exercice
//	cells:
//	  - markdown: "**Exercise [042].** how?"
//	  - sql: "SELECT foo, salt_042 as token"
//	    token: "4547"
//	  - code: "raise EOFError"
//	expect:                      # optional, the compilation must fail
//	  error: E205
//	  message: "Unknown label"
//	assertions:
//	  - type: keys
//	    keys: ["042", "4547"]
//	  - type: token_row
//	    token: "4547"
//	    expect: { action: exit, source: 1 }
//
// An sql cell with a token gets an executed output holding a one-row
// result table; html replaces that output verbatim.
//
// # Assertion Types
//
//   - keys: the record keys, in order
//   - kind: the kind of the record stored under a token
//   - alias: the token is an alias or an exit leading to target
//   - warning: lint reported the code (for token when given)
//   - no_warnings: lint reported nothing
//   - token_row: the stored token table row of a token has the expected fields
//
// # Deterministic Testing
//
// Each run persists the compilation into a fresh in-memory SQLite store
// with sequential compilation IDs and testutil.DeterministicClock, so the
// stored compilation and the snapshot are identical across runs.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/complex_graph.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
