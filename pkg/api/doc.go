/*
Package api implements the reference timer authority.

The authority is the server half of the reconciliation wire contract:
a JSON command endpoint (POST /v1/timers/command) accepting start,
pause, and delete, and a WebSocket endpoint (GET /v1/timers/ws) that
sends an init frame on connect, answers ping with pong, and pushes
update frames as server-side timers tick down once per second.

The production deployment runs its own authority; this one exists so
the client can be exercised end to end and so the serve command has
something to run. State is in-memory and per anonymous user id.
*/
package api
