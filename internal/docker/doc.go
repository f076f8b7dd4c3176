// Package docker talks to the Docker engine and docker compose for the
// streaming stack commands.
//
// Client covers the engine API calls slipway needs: daemon liveness,
// container listing, log streaming, stats sampling, and disk usage.
// ComposeClient shells out to docker compose for stack lifecycle
// (up, down, restart, ps).
//
// The EngineAPI interface narrows the SDK client to that surface so
// tests can substitute a stub without a running daemon.
package docker
