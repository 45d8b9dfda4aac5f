// Package transport serves a namespace tree over HTTP and provides a client
// for it.
//
// # Routes
//
//	GET  /healthz          liveness and node count (JSON)
//	GET  /ns/<path>        entry text, or a JSON listing for directories
//	PUT  /ns/<path>        write the request body, returns {"consumed": n}
//	POST /ns/<path>        same as PUT
//	GET  /watch            WebSocket stream of accepted changes (JSON)
//
// <path> is relative to the tree root, or absolute when it starts with the
// root path (for example /ns/sys/module/simple_sysfs_mod/simple_sysfs).
//
// Writes follow entry semantics: a rejected value is still reported as
// consumed. Only a missing node, a permission mismatch or a malformed
// request produces an error status. Every response carries an
// X-Request-ID header that is also recorded in the access log.
//
// /watch sends one Change per accepted write that altered a value.
// ?attr=<name> may be repeated to watch a subset. A watcher that falls
// behind loses changes; the next Change it receives reports how many.
package transport
