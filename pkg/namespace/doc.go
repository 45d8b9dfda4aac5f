// Package namespace publishes an attribute store as a directory of text
// entries on a host namespace.
//
// # Layout
//
// A Publisher creates one directory under its parent scope and one entry per
// attribute inside it:
//
//	<parent>/<baseName>/<attr_1>   (rw-rw-r--)
//	<parent>/<baseName>/<attr_2>
//
// Each entry is bound at registration time to the *attr.Attribute it
// exposes, so reads and writes go straight to that attribute without any
// name lookup.
//
// # Hosts
//
// The Host interface is the only thing a transport has to provide: create a
// directory, create an entry backed by a Handler, remove a node with
// everything under it. Tree is the in-memory Host used by the sysattr-device
// command, by the HTTP transport and by tests.
//
// # Lifecycle
//
//	Unpublished --Publish--> Published --Teardown--> Unpublished
//
// Publish is all-or-nothing: when any node fails to register, every node
// already created is removed again, newest first, before the error is
// returned. Teardown removes the directory and its entries as a unit.
package namespace
