/*
Package sync keeps the persistent store converged across browsing
contexts sharing one logical timer session.

A Context wraps a storage.Store plus a bus.Endpoint. Every mutation
serializes the full envelope to the local store, notifies same-origin
peers through the LocalSignal (the storage-change signal), and
broadcasts a STORAGE_SYNC message to the parent and all children. An
embedded context bootstraps with one STORAGE_REQUEST to its parent on
construction.

# Consistency model

Last-writer-wins, wholesale replacement. Adoption of an inbound
envelope replaces preferences and state entirely; there is no
field-level merge and no vector clock. A write from context A can be
clobbered by a slightly later sync from context B. This is acceptable
given the low write frequency (the engine throttles tick persistence to
once per ten seconds per timer) and the single-user nature of a
session. The wholesale-replace semantic is observable behavior; do not
"improve" it with merging.

# Scalar exchange

A narrower synchronous protocol resolves the servings multiplier
between a child and its parent: a correlation-id request with a 200 ms
timeout falling back to 1. It differs from the general broadcast by
being latency-sensitive and capped.
*/
package sync
