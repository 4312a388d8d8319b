// Package gesture turns detected hand landmarks into the open-hand
// distress signal that fires the emergency trigger.
package gesture

import (
	"math"

	"github.com/anwesha/fivesense/internal/detector"
)

// ThumbSplayThreshold is the minimum horizontal offset (in normalized image
// coordinates) between the thumb tip and its MCP joint for the thumb to
// count as extended. The horizontal test keeps the heuristic agnostic to
// hand flip.
const ThumbSplayThreshold = 0.05

// OpenHandCount is the finger count treated as an open-hand signal.
const OpenHandCount = 5

// Tip/base landmark pairs per digit, thumb first.
var (
	fingerTips  = [5]int{detector.ThumbTip, detector.IndexTip, detector.MiddleTip, detector.RingTip, detector.PinkyTip}
	fingerBases = [5]int{detector.ThumbMCP, detector.IndexMCP, detector.MiddleMCP, detector.RingMCP, detector.PinkyMCP}
)

// CountFingers returns the number of extended fingers for one hand.
// The thumb counts as extended when its tip is splayed horizontally past
// ThumbSplayThreshold from its MCP; the other four digits count when the
// tip sits above its knuckle in image space (y grows downward).
func CountFingers(hand *detector.HandLandmarks) int {
	if hand == nil {
		return 0
	}

	count := 0
	for i := 0; i < 5; i++ {
		tip := hand.Points[fingerTips[i]]
		base := hand.Points[fingerBases[i]]

		if i == 0 {
			if math.Abs(tip.X-base.X) > ThumbSplayThreshold {
				count++
			}
		} else if tip.Y < base.Y {
			count++
		}
	}
	return count
}

// CountAllFingers sums extended fingers across every detected hand.
// Two visible open hands therefore report ten fingers, which still
// satisfies the open-hand signal.
func CountAllFingers(hands []detector.HandLandmarks) int {
	total := 0
	for i := range hands {
		total += CountFingers(&hands[i])
	}
	return total
}
