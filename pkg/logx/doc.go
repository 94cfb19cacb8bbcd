// Package logx configures imgbot's structured logging.
//
// It is a small wrapper (logx.Logger) on top of zerolog that keeps:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - Outputs and level swappable at runtime via Service.Apply
package logx
