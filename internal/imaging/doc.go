// Package imaging provides the image-side primitives of the extraction
// pipeline: loading and caching source images, the deterministic
// preprocessor (resize, contrast, denoise), grayscale/threshold conversion,
// saturation masking, grid-line removal and edge detection.
//
// All operations work with standard Go image.Image types and use a
// coordinate system where (0,0) is at the top-left corner, X increases
// rightward, and Y increases downward. Binary results are returned as Mask
// values indexed [y][x].
//
// Operations are stateless and safe to call concurrently on different
// images; ImageCache is safe for concurrent use.
package imaging
