// Package viz draws a running metaball scene in the terminal.
//
// The live view is a Bubble Tea program:
//
//   - [Model]: steps a sim.Loop every tick and draws its frame
//   - [HalfBlock]: truecolour frame, two pixels per character cell
//   - [Canvas]: braille dot grid for the mono view and the top-down map
//   - [SpringRig]: orbit camera eased by harmonica springs
//   - [Picker]: preset menu in front of the live view
//
// # Key Bindings
//
//	Space  - Pause/Resume
//	R      - Reset the scene
//	+/-    - Raise/lower the surface threshold
//	←→↑↓   - Orbit and zoom the camera
//	A/X    - Add/remove a ball
//	P      - Pull balls toward the pointer (or click)
//	M      - Toggle colour/braille view
//	T      - Cycle themes
//	G      - Toggle GIF recording
//	?      - Show help overlay
package viz
