// Package memory holds the in-process conversation state.
//
// Model:
//   - A Turn is one role-tagged message: user, assistant or tool.
//   - An assistant Turn with ToolName set is a tool request; the tool Turn
//     carrying its result follows it directly, sharing ToolCallID.
//   - Store is append-only; All returns a copy so callers never alias the log.
package memory
