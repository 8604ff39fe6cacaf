// Package imaging handles the pixel-level plumbing around the perception core.
//
// It loads recorded camera frames, cuts the square patches around ball
// hypotheses that the external classifiers consume, smooths frames before
// scanning, and renders debug overlays showing what the detectors saw.
// All operations work with standard Go image.Image types and use a coordinate
// system where (0,0) is at the top-left corner, X increases rightward, and Y
// increases downward.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, Min is inclusive and Max is exclusive, as in image.Rectangle
//
// # Thread Safety
//
// The FrameCache type is safe for concurrent use, so the upper and lower camera
// pipelines can share one. Individual image operations are stateless and never
// modify their input image.
//
// # Frame Formats
//
// Frames are decoded with github.com/disintegration/imaging. JPEG recordings
// decode to *image.YCbCr, which the integral scorer reads without conversion;
// prefer them over PNG for large replay sets.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Patches that fall completely outside the frame
//   - File I/O errors during frame loading
//   - Encoding errors during image output
package imaging
