// Package discovery advertises running mock server fixtures over mDNS.
//
// A fixture that listens on a known port is registered as an instance of
// the _mocks3._tcp service in the local. domain, so test processes on the
// same host or network can find it without hard-coding an address. The
// TXT record carries the setup run id and the fixture's process id:
//
//	run=<uuid>
//	pid=<process id>
//	script=<fixture script name>
package discovery
