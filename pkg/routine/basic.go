package routine

import (
	"context"
	"time"

	"github.com/15303/UltimateGoal/pkg/motion"
	"github.com/15303/UltimateGoal/pkg/rings"
)

// Ticks from the stack to the target zone for each ring count.
var basicZoneTicks = map[rings.Count]int{
	rings.Zero:  600,
	rings.One:   1200,
	rings.Three: 1800,
}

// Basic drives up to the starter stack, counts it with the ring sensor and
// parks in the matching target zone.
func Basic(ctx context.Context, r *Robot) (Result, error) {
	s := newSteps(ctx, r, "basic")

	s.sleep(100 * time.Millisecond)
	s.run(motion.Travel(0.8, 2*time.Second))
	s.sleep(r.Rings.SettleDelay)
	count := s.readRings()

	s.run(motion.GoTo(0.5, basicZoneTicks[count]))
	return Result{Count: count}, s.finish()
}
