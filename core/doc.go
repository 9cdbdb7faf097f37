// Package core defines the shared vocabulary of the finsight framework:
// conversation turns, tool calls, agent results, memory entries and the
// error taxonomy used across gateways, agents and the orchestrator.
//
// The types here are deliberately dependency-free so every other package can
// import core without cycles. Construction helpers enforce the structural
// invariants (a completed result carries insight text, a failed result
// carries error detail, a conversation is append-only).
package core
