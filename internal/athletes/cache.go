package athletes

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"

	"github.com/rowlab/rowlab/internal/telemetry/tracing"
)

const (
	oneMinute          = 60
	profileCacheExpire = 10 * oneMinute // in seconds
)

type athleteSource interface {
	Get(ctx context.Context, id string) (*Athlete, error)
}

// Cache is a read-through cache in front of the athletes repo. Erg test
// ingest hits it on every submission without a body mass, so profile
// reads should rarely reach postgres.
type Cache struct {
	source athleteSource
	cache  *freecache.Cache
}

func NewCache(source athleteSource) *Cache {
	megabyte := 1024 * 1024
	cacheSize := 10 * megabyte

	return &Cache{
		source: source,
		cache:  freecache.NewCache(cacheSize),
	}
}

func cacheKey(athleteID string) []byte {
	return []byte(fmt.Sprintf("athlete::%s", athleteID))
}

// Get returns the athlete from the cache, falling back to the source on
// a miss. Cache write failures are only logged, never surfaced.
func (c *Cache) Get(ctx context.Context, id string) (_ *Athlete, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "cache.athletes.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	key := cacheKey(id)
	if athleteBytes, err := c.cache.Get(key); err == nil {
		var athlete Athlete
		if err = json.Unmarshal(athleteBytes, &athlete); err == nil {
			return &athlete, nil
		}
		log.Errorf("failed to unmarshal cached athlete %s: %s", id, err)
	}

	athlete, err := c.source.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	athleteBytes, err := json.Marshal(athlete)
	if err != nil {
		log.Errorf("failed to marshal athlete %s for cache: %s", id, err)
		return athlete, nil
	}
	if err := c.cache.Set(key, athleteBytes, profileCacheExpire); err != nil {
		log.Errorf("failed to write athlete %s to cache: %s", id, err)
	}

	return athlete, nil
}

// CurrentMassKg returns the athlete's current body mass, nil when the
// profile has none set.
func (c *Cache) CurrentMassKg(ctx context.Context, athleteID string) (*float64, error) {
	athlete, err := c.Get(ctx, athleteID)
	if err != nil {
		return nil, err
	}
	return athlete.MassKg, nil
}

// Invalidate drops the athlete from the cache, called after profile
// updates and deletes.
func (c *Cache) Invalidate(athleteID string) {
	c.cache.Del(cacheKey(athleteID))
}
