/*
Package reconcile keeps local timers aligned with a server-authoritative
clock over a lossy WebSocket connection.

The client opens one socket per anonymous user id. On open the server
sends an init frame with its current timer set; update frames follow
with partial views. Both merge into local state through the engine's
reconciliation rule: the server owns remaining and status, never the
recipe-derived duration and label.

A fixed-interval ping keeps the socket warm. An unexpected close
triggers exponential-backoff reconnects (base doubling per attempt,
capped delay) up to a maximum attempt count; after that the client goes
permanently local-only, which is indistinguishable to the user from
never having had a server.

Lifecycle commands (start, pause, delete) travel as point-to-point
HTTP POSTs, not over the socket. They are fire-and-forget: failures are
logged and counted, and local timer operation proceeds unaffected.
*/
package reconcile
