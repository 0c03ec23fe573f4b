// Package shell runs external commands on behalf of setup actions.
//
// Runner is the environment's shell capability: actions install packages
// and probe imports through it, so tests can substitute a stub and a dry
// run can print commands instead of executing them. A command that exits
// non-zero is reported as *ExitError, and Check turns any non-zero exit
// into a failure.
package shell
