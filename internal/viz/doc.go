// Package viz renders stored trajectories in the terminal.
//
// [Replay] is a Bubble Tea model that plays a trajectory back: every
// oscillator moves along its own lane of a braille [Canvas], springs are drawn
// between neighbouring lanes and a side panel charts one channel and the
// total energy.
//
// # Key Bindings
//
//	Space   - Pause/Resume
//	[ ]     - Step back/forward
//	+ -     - Playback speed
//	Tab     - Cycle the charted channel
//	R       - Restart
//	?       - Help
//	Q       - Quit
package viz
