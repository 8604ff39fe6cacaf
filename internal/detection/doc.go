// Package detection wires the perception core into per-camera detectors.
//
// Each camera pipeline owns one BallDetector and one CenterCircleDetector.
// Detectors keep their scratch buffers between frames and are not safe for
// concurrent use; run one per pipeline goroutine.
//
// # Ball Detection
//
// BallDetector runs the integral scorer over a frame, then places every
// hypothesis on the field:
//
//  1. Scan: the scorer returns up to MaxHypotheses candidate centers, best first.
//  2. Ground: the center pixel is projected onto the plane at ball-radius height.
//  3. Plausibility: the scorer's radius is compared against the radius the
//     projection engine expects at that distance. Candidates whose ratio
//     exceeds RadiusTolerance are kept but marked implausible.
//  4. Patches: Patch cuts the square the external classifier consumes.
//
// # Center Circle
//
// CenterCircleDetector fits an ellipse to edge points found on the image of
// the center circle, projects it onto the ground and accepts it when the
// recovered radius matches the known field dimension.
//
// # Coordinate System
//
// Image positions are pixels with the origin at the top-left corner. Ground
// positions are meters in the robot frame: x forward, y left.
package detection
