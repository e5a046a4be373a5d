// Package internal contains the implementation packages of canopy.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - kind: Immutable leaf kinds (intrinsic state) and positions (extrinsic state)
//   - flyweight: Generic registry handing out one canonical value per key
//   - tree: Leaf and Composite elements, the Visitor protocol and traversals
//   - visitor: Counting, collecting, outline and HTML visitors
//   - builder: Trees from YAML, JSON and compact notation documents
//   - errors: Structured errors for contract violations and bad documents
//   - logging: Structured logging over log/slog
//   - config: Viper backed configuration
//   - watcher: File system monitoring with debouncing
//   - di: Service container wiring the above for the CLI
//   - version: Build information
//
// # Dependencies
//
// The core packages kind, flyweight and tree are in-memory only; they do
// no I/O. builder, watcher and the cmd package sit on top of them.
package internal
