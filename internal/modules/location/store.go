// README: Location stores: Postgres gazetteer of operator-maintained places and a Redis geocode cache.
package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	qlog "qibla/internal/log"
)

const geocodeKeyPrefix = "qibla:geocode:%s"

// Gazetteer resolves names against the places table.
type Gazetteer struct {
	db *pgxpool.Pool
}

func NewGazetteer(db *pgxpool.Pool) *Gazetteer {
	return &Gazetteer{db: db}
}

func (g *Gazetteer) Geocode(ctx context.Context, query string) (Place, error) {
	row := g.db.QueryRow(ctx, `
		SELECT name, lat, lng
		FROM places
		WHERE lower(name) = lower($1)
		LIMIT 1`, strings.TrimSpace(query),
	)

	p := Place{Source: SourceGazetteer}
	err := row.Scan(&p.Name, &p.Point.Lat, &p.Point.Lng)
	if errors.Is(err, pgx.ErrNoRows) {
		return Place{}, ErrNoMatch
	}
	if err != nil {
		return Place{}, fmt.Errorf("gazetteer: %w", err)
	}
	return p, nil
}

// Upsert adds or replaces a place in the gazetteer. Names match case
// insensitively; the latest spelling wins.
func (g *Gazetteer) Upsert(ctx context.Context, p Place) error {
	_, err := g.db.Exec(ctx, `
		INSERT INTO places (name, lat, lng)
		VALUES ($1, $2, $3)
		ON CONFLICT ((lower(name))) DO UPDATE
		SET name = EXCLUDED.name, lat = EXCLUDED.lat, lng = EXCLUDED.lng`,
		p.Name, p.Point.Lat, p.Point.Lng,
	)
	return err
}

// CachedGeocoder is a read-through Redis cache in front of another geocoder.
// Only matches are cached. Redis failures are logged and bypassed.
type CachedGeocoder struct {
	next  Geocoder
	redis *redis.Client
	ttl   time.Duration
	log   *slog.Logger
}

func NewCachedGeocoder(next Geocoder, rdb *redis.Client, ttl time.Duration) *CachedGeocoder {
	return &CachedGeocoder{next: next, redis: rdb, ttl: ttl, log: qlog.With("component", "geocode_cache")}
}

func (c *CachedGeocoder) Geocode(ctx context.Context, query string) (Place, error) {
	if c.redis == nil {
		return c.next.Geocode(ctx, query)
	}

	key := geocodeKey(query)
	val, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		var p Place
		if err := json.Unmarshal([]byte(val), &p); err == nil {
			p.Source = SourceCache
			return p, nil
		}
		c.log.Warn("dropping corrupt cache entry", "key", key)
		_ = c.redis.Del(ctx, key).Err()
	case err != redis.Nil:
		c.log.Warn("geocode cache read failed", "error", err)
	}

	p, err := c.next.Geocode(ctx, query)
	if err != nil {
		return Place{}, err
	}

	if data, err := json.Marshal(p); err == nil {
		if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.log.Warn("geocode cache write failed", "error", err)
		}
	}
	return p, nil
}

func geocodeKey(query string) string {
	return fmt.Sprintf(geocodeKeyPrefix, strings.ToLower(strings.TrimSpace(query)))
}
