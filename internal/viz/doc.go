// Package viz draws runs in the terminal.
//
// The live view is a Bubble Tea program that steps a run on a timer:
//
//   - [Live]: storages drawn as braille tanks beside a stats panel and a
//     running hydrograph
//   - [App]: preset picker that opens a [Live] view
//   - [RenderHydrograph], [RenderSummary]: static output for the CLI
//
// # Key Bindings
//
//	Space - Pause/Resume stepping
//	R     - Reset to the initial state
//	T     - Cycle color themes
//	?     - Show help overlay
//	[]    - Time travel (rewind/forward)
package viz
