/*
Package metrics defines Prometheus collectors for the timer engine.

Collectors are package-level and registered in init; Handler exposes the
standard promhttp endpoint for scraping. The daemon mounts it next to
the health endpoint.

Key series:

  - stovetop_timers_active{status}: gauge of tracked timers
  - stovetop_ticks_total: per-second ticks delivered
  - stovetop_envelope_writes_total: full-envelope persistence writes
    (throttled ticks keep this roughly one write per timer per 10s)
  - stovetop_sync_messages_total{kind,direction}: cross-context traffic
  - stovetop_socket_connected / stovetop_reconnect_attempts_total:
    reconciliation channel health
*/
package metrics
