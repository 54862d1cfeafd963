// Package images - Pixel-space shapes shared by decoders and suppression.
package images

import (
	"fmt"
	"image"
)

// Rect is a box in input-image pixels given by its top-left corner and size.
type Rect struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Area returns Width*Height, or 0 when either side is not positive.
func (r Rect) Area() int {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

// Max returns the exclusive bottom-right corner.
func (r Rect) Max() image.Point {
	return image.Pt(r.X+r.Width, r.Y+r.Height)
}

// ToRectangle converts the box to an image.Rectangle.
func (r Rect) ToRectangle() image.Rectangle {
	return image.Rectangle{Min: image.Pt(r.X, r.Y), Max: r.Max()}.Canon()
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}

// CalculateIoU returns the Intersection over Union of two boxes.
//
// IoU is the ratio of the overlapping area to the area covered by either box:
//
//	IoU = Area(A ∩ B) / (Area(A) + Area(B) - Area(A ∩ B))
//
// A value of 1.0 means the boxes are identical and 0.0 means they do not overlap. The
// intersection width and height are clamped to zero before multiplying, so disjoint or
// touching boxes never produce a negative area. When the union is empty the result is 0.
//
// Arguments:
//   - r: The first box.
//   - o: The other box.
//
// Returns:
//   - float32: A value between 0.0 and 1.0.
//
// Example Usage:
// ```go
//
//	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
//	b := Rect{X: 5, Y: 5, Width: 10, Height: 10}
//	iou := CalculateIoU(a, b) // 25 / (100 + 100 - 25) = 0.142857
//
// ```
func CalculateIoU(r, o Rect) float32 {
	interW := max(0, min(r.X+r.Width, o.X+o.Width)-max(r.X, o.X))
	interH := max(0, min(r.Y+r.Height, o.Y+o.Height)-max(r.Y, o.Y))
	interArea := interW * interH

	unionArea := r.Area() + o.Area() - interArea
	if unionArea <= 0 {
		return 0
	}

	return float32(interArea) / float32(unionArea)
}
