// Package design implements the client-side assembly model: a tree of
// Design -> Component -> {Body, Beam, CoordinateSystem, DesignPoint}
// nodes mirroring state owned by a remote modeling service.
//
// The tree is single-owner and acyclic. Components support instancing:
// occurrences created from a template share the template's master
// geometry definitions while owning their own placement transform and
// tree position. Bodies split the same way into a shared MasterBody
// (authoritative geometry identity) and per-tree occurrences.
//
// Every mutating operation issues exactly one service call and applies
// the local mutation only after the call succeeds, so a failed call
// leaves the tree unchanged. The model is synchronous and guarded by a
// single per-design mutex; it is not meant for concurrent structural
// modification.
package design
