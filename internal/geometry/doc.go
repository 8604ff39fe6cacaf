// Package geometry provides the vector, rotation and angle primitives shared by
// the camera, projection and detection packages.
//
// Points are the github.com/golang/geo value types: r2.Point for image or
// ground-plane coordinates and r3.Vector for 3D positions. This package adds
// the axis rotations and small aggregate types the perception pipeline needs on
// top of them.
//
// # Conventions
//
// Robot and camera frames are right-handed with x forward, y left and z up.
// A positive rotation about an axis turns counter-clockwise when looking down
// that axis towards the origin, so a positive pitch (rotation about y) tilts the
// forward axis downwards and a positive roll (rotation about x) lifts the
// robot's left side.
//
// Image coordinates have their origin at the top-left corner with y growing
// downward. All angles are radians.
package geometry
