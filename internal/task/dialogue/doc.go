// Package dialogue turns free-text commands into task operations across
// several turns.
//
// Each session holds at most one Flow. While a flow is active, input is
// consumed only as the answer the flow is waiting for; intent keywords are
// not looked at. Without a flow the input is classified in a fixed order:
// delete, edit, complete, then create. Anything else gets a help message with
// Handled=false so a transport can route it elsewhere.
//
// Sessions are serialized by a per-session mutex; different sessions are
// handled in parallel. Idle flows expire after the configured TTL.
package dialogue
