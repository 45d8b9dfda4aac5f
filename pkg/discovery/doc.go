// Package discovery advertises and browses namespace hosts over mDNS/DNS-SD.
//
// # Service (_sysattr._tcp)
//
// A process serving a published namespace over HTTP advertises one
// instance. The instance name defaults to "<base>-<host>".
// TXT records include: base (directory name), root (absolute path of the
// directory), n (entry count), and optionally ver (server version) and
// sid (publication session ID).
//
// Browsers aggregate addresses per instance name, so a host reachable on
// several interfaces shows up once.
package discovery
