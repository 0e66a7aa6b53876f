// Package runner drives one user turn through the model and the tool registry.
//
// Invariant:
//   - a tool request Turn is always followed by the tool Turn answering it, so
//     the pair can be windowed and replayed together.
//
// Flow:
//
//	AwaitingModel -(reply)-> Done
//	AwaitingModel -(tool request)-> AwaitingTool -(tool turn)-> AwaitingModel
//
// The number of tool round-trips is bounded; a model that keeps asking for
// tools ends with a fallback assistant Turn instead of looping.
package runner
