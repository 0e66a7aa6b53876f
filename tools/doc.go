// Package tools defines tool contracts, the registry and the built-in tools.
//
// Includes:
//   - ToolDefinition: name, description, JSON input schema, handler.
//   - GenerateSchema[T](): derive JSON Schema from Go structs.
//   - Registry: unique names, registration order, validated invocation.
//   - File tools over a sandbox: read_file, list_files (non-recursive), edit_file.
//   - HTTP tools: search (Serper) and get_alerts (NWS).
package tools
