// Package output renders human-readable network identity reports.
//
// The Output interface has two implementations:
//
//   - StreamingOutput: writes lines directly to an io.Writer (CLI commands)
//   - BufferedOutput: collects lines in memory (MCP tool results)
//
// Report helpers (WriteStatus, WriteRecords) never print a raw network
// identifier unless the caller explicitly asks to reveal it on the local
// terminal.
//
//	out := output.NewStreamingOutput(os.Stdout, false)
//	output.WriteStatus(out, output.Status{Snapshot: snap, ID: id})
//
// All implementations are thread-safe with mutex protection.
package output
