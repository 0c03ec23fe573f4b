// Package action models build pipeline steps.
//
// An Action runs against an Env that bundles the capabilities a step may
// use: a shell runner, the mutable project configuration, a fixture
// spawner and the supervisor that owns spawned fixtures. Actions are
// looked up by name in a Registry and executed in order by RunStage.
//
// Every side effect performed through Env is recorded as a log.Event so
// that a run can be inspected afterwards with the mocksetup events command.
package action
