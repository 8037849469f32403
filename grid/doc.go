// Package grid models colour-grid programs.
//
// This package contains:
//   - the 20-colour palette (18 chromatic colours plus white and black)
//   - a flat row-major Grid with bucket fill
//   - block analysis (4-connected same-colour regions)
//   - exit location using the direction pointer and codel chooser
//   - Walker, the traversal state machine shared by the compiler and the
//     direct interpreter
//   - a plain-text grid format
package grid
