// Package harness replays ingestion scenarios against a fresh database and
// checks what readers see afterwards.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: recalibration
//	description: "A newer version wins for overlapping runs"
//	tables:
//	  - path: /test/test_vars/test_table
//	    columns: [x, y, "z:int"]
//	variations:
//	  - name: mc
//	    parent: default
//	steps:
//	  - add:
//	      table: /test/test_vars/test_table
//	      runs: 0-100
//	      contents: |
//	        1 2 3
//	    expect: { version: 1 }
//	  - get:
//	      request: /test/test_vars/test_table:50
//	    expect: { version: 1, values: [["1", "2", "3"]] }
//	assertions:
//	  - type: version_count
//	    table: /test/test_vars/test_table
//	    count: 1
//
// Each step is exactly one of add, get or mkvar. An expect clause is a
// subset match: only the fields it sets are checked. Setting error expects
// that error code instead of success.
//
// # Assertion Types
//
//   - version_count: number of assignments of (table, variation)
//   - lookup: the version (or error) a lookup of (table, run, variation) yields
//
// # Deterministic Testing
//
// Every scenario runs in its own in-memory SQLite database with a
// testutil.DeterministicClock and sequential assignment IDs, so the trace
// written for golden comparison is identical across runs.
package harness
