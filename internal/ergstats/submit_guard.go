package ergstats

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultSubmitGuardWindow is how long an identical erg test submission
// is considered a duplicate of the previous one.
const DefaultSubmitGuardWindow = 30 * time.Second

// SubmitGuard catches accidental double submissions of the same test
// result, e.g. a flaky club network making the coach tap "save" twice.
type SubmitGuard struct {
	redisClient *redis.Client
	window      time.Duration
}

func NewSubmitGuard(redisClient *redis.Client, window time.Duration) *SubmitGuard {
	return &SubmitGuard{
		redisClient: redisClient,
		window:      window,
	}
}

// FirstSubmission marks the test as seen and reports whether the same
// test was already submitted within the guard window.
func (g *SubmitGuard) FirstSubmission(ctx context.Context, t Test) (bool, error) {
	set, err := g.redisClient.SetNX(ctx, submissionKey(t), "1", g.window).Result()
	if err != nil {
		return false, fmt.Errorf("submit guard setnx: %w", err)
	}
	return set, nil
}

func submissionKey(t Test) string {
	return fmt.Sprintf(
		"ergtest-submitted||%s||%s||%v||%v",
		t.AthleteID, t.TestDate.Format("2006-01-02"), t.DistanceM, t.TimeS,
	)
}
