// Package history records setup runs in a SQLite database.
//
// Each invocation of the run command creates a row in runs; the steps it
// executed are recorded in run_steps. The Store also implements log.Logger
// so it can be attached to the event stream next to the CBOR file log.
package history
