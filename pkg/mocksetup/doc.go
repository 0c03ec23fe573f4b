// Package mocksetup implements the mock-server-setup build action.
//
// The action prepares a build machine for the mock S3 server test suite:
//
//  1. install the fixture's interpreter packages with pip
//  2. verify that they import
//  3. append the flag that enables the suite to the project's cmake_args
//  4. start the fixture script from its own directory
//  5. hand the process to the environment's supervisor, which terminates
//     it when the owning scope closes
//
// Steps 1 and 2 are fatal on failure and nothing is started in that case.
// When ready_addr is configured the action also waits for the fixture to
// accept TCP connections before returning, so dependent tests do not race
// the server's startup.
package mocksetup
