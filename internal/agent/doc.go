// Package agent keeps the registry of game agents.
//
// # Overview
//
// Every agent is identified by a game.AgentID and declares a decision-unit
// kind and a team with REGISTER. The Registry records that, builds the live
// behavior.Unit on INIT and keeps a per-agent game counter that survives
// re-registration and re-initialization.
//
// # Teams
//
// Allies and Enemies partition the registered ids by team relative to one
// agent. The agent itself is never its own ally. Results are sorted.
//
// # Errors
//
//   - ErrUnregisteredAgent: the id never registered
//   - ErrUninitializedAgent: the id registered but has no live unit yet
//   - behavior.ErrUnknownKind: REGISTER named a kind outside the catalog
package agent
