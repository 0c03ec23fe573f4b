// Package log records what a setup run did to the machine.
//
// Every command the action executes, each change to the project's build
// configuration and the life of the fixture process (spawn, exit,
// terminate) becomes an Event. Events go to a Logger; slog output is for
// people watching the run, the event log is for tools reading it later.
//
// Sinks combine with Tee:
//
//	fl, err := log.NewFileLogger("setup.evlog")
//	if err != nil {
//		return err
//	}
//	defer fl.Close()
//	env.Events = log.Tee(log.NewSlogAdapter(logger), fl)
//
// An event log file is a sequence of CBOR maps with small integer keys.
// Read it back with NewReader or NewFilteredReader, or with the
// "mocksetup events" subcommands.
package log
