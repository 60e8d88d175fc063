package detection

import (
	"math"
	"sort"

	"github.com/chartsnap/chart2csv/internal/imaging"
)

// Segment is a detected straight line segment in pixel coordinates.
type Segment struct {
	X1, Y1, X2, Y2 int
	Length         float64
	// AngleDegrees is the orientation from start to end, atan2 convention:
	// 0 = horizontal right, positive = downward.
	AngleDegrees float64
}

// MidX returns the horizontal midpoint of the segment.
func (s Segment) MidX() int { return (s.X1 + s.X2) / 2 }

// MidY returns the vertical midpoint of the segment.
func (s Segment) MidY() int { return (s.Y1 + s.Y2) / 2 }

// IsHorizontal reports whether the segment orientation is within tol degrees
// of horizontal.
func (s Segment) IsHorizontal(tol float64) bool {
	a := math.Abs(s.AngleDegrees)
	return a < tol || a > 180-tol
}

// IsVertical reports whether the segment orientation is within tol degrees
// of vertical.
func (s Segment) IsVertical(tol float64) bool {
	return math.Abs(math.Abs(s.AngleDegrees)-90) < tol
}

// DetectSegments finds straight line segments in a binary edge mask using a
// Hough transform: every edge pixel votes for all (rho, theta) lines through
// it, local maxima above threshold become line candidates, and candidate
// lines are traced back through the mask to recover actual endpoints.
//
// minLength filters both the vote threshold and the traced segment length.
// At most maxSegments segments are returned, strongest votes first.
func DetectSegments(edges imaging.Mask, minLength, maxSegments int) []Segment {
	width := edges.Width()
	height := edges.Height()
	if width == 0 || height == 0 {
		return nil
	}

	maxDist := int(math.Sqrt(float64(width*width + height*height)))
	numAngles := 180
	accumulator := make([][]int, maxDist*2)
	for i := range accumulator {
		accumulator[i] = make([]int, numAngles)
	}

	// Precompute the trig tables; the voting loop dominates runtime.
	cosTab := make([]float64, numAngles)
	sinTab := make([]float64, numAngles)
	for theta := 0; theta < numAngles; theta++ {
		angle := float64(theta) * math.Pi / 180.0
		cosTab[theta] = math.Cos(angle)
		sinTab[theta] = math.Sin(angle)
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !edges[y][x] {
				continue
			}
			for theta := 0; theta < numAngles; theta++ {
				rho := float64(x)*cosTab[theta] + float64(y)*sinTab[theta]
				rhoIdx := int(rho) + maxDist
				if rhoIdx >= 0 && rhoIdx < maxDist*2 {
					accumulator[rhoIdx][theta]++
				}
			}
		}
	}

	type peak struct {
		rho   int
		theta int
		votes int
	}
	peaks := make([]peak, 0)
	threshold := minLength / 2
	if threshold < 10 {
		threshold = 10
	}

	for rhoIdx := 0; rhoIdx < maxDist*2; rhoIdx++ {
		for theta := 0; theta < numAngles; theta++ {
			if accumulator[rhoIdx][theta] < threshold {
				continue
			}
			// Local maximum over a 5x5 neighborhood in Hough space
			isMax := true
			for dr := -2; dr <= 2 && isMax; dr++ {
				for dt := -2; dt <= 2 && isMax; dt++ {
					if dr == 0 && dt == 0 {
						continue
					}
					nr := rhoIdx + dr
					nt := (theta + dt + numAngles) % numAngles
					if nr >= 0 && nr < maxDist*2 && accumulator[nr][nt] > accumulator[rhoIdx][theta] {
						isMax = false
					}
				}
			}
			if isMax {
				peaks = append(peaks, peak{rho: rhoIdx - maxDist, theta: theta, votes: accumulator[rhoIdx][theta]})
			}
		}
	}

	sort.Slice(peaks, func(i, j int) bool {
		return peaks[i].votes > peaks[j].votes
	})

	segments := make([]Segment, 0)
	for _, p := range peaks {
		if len(segments) >= maxSegments {
			break
		}

		cosA := cosTab[p.theta]
		sinA := sinTab[p.theta]
		rho := float64(p.rho)

		// Collect edge pixels lying on the candidate line
		var startX, startY, endX, endY int
		minD, maxD := math.MaxFloat64, -math.MaxFloat64
		count := 0
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				if !edges[y][x] {
					continue
				}
				if math.Abs(float64(x)*cosA+float64(y)*sinA-rho) >= 2.0 {
					continue
				}
				count++
				d := float64(x)*sinA - float64(y)*cosA
				if d < minD {
					minD = d
					startX, startY = x, y
				}
				if d > maxD {
					maxD = d
					endX, endY = x, y
				}
			}
		}
		if count < minLength {
			continue
		}

		dx := float64(endX - startX)
		dy := float64(endY - startY)
		length := math.Sqrt(dx*dx + dy*dy)
		if length < float64(minLength) {
			continue
		}

		segments = append(segments, Segment{
			X1: startX, Y1: startY,
			X2: endX, Y2: endY,
			Length:       length,
			AngleDegrees: math.Atan2(dy, dx) * 180 / math.Pi,
		})
	}

	return segments
}
