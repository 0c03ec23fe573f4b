// Package fixture starts and supervises test-fixture processes such as a
// mock server.
//
// A Spawner starts a child process and returns a Handle. Handles are
// tracked by a Supervisor whose lifetime bounds the children: closing the
// supervisor sends a termination signal to every live child and escalates
// to a kill after a grace period. CloseOnSignal extends that scope to
// SIGINT/SIGTERM for long-running commands.
//
// WaitReady polls a TCP address with exponential backoff so callers can
// block until a spawned server accepts connections, and Watcher restarts
// a fixture when its script changes on disk.
package fixture
