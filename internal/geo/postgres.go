package geo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/citywatch-app/citywatch/internal/model"
)

// PG answers region queries straight from the posts table. Index-backed
// lat/lng range scans cover bounding boxes; nearby uses a haversine
// distance ordered by proximity.
type PG struct{ pool pgxQuerier }

type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// NewPG constructs a Postgres-backed querier.
func NewPG(pool *pgxpool.Pool) *PG { return &PG{pool: pool} }

// NewPGWithQuerier constructs a querier over any pgx-compatible source.
func NewPGWithQuerier(q pgxQuerier) *PG { return &PG{pool: q} }

const resultColumns = `
p.id, p.lat, p.lng, p.city, p.state, p.cross_street, p.summary, p.incident_type, p.links, p.created_at, p.expires_at,
COALESCE((SELECT SUM(v.value) FROM votes v WHERE v.post_id = p.id), 0) AS vote_count,
(SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id) AS comment_count`

func scanResults(rows pgx.Rows) ([]Result, error) {
	defer rows.Close()
	var out []Result
	for rows.Next() {
		var (
			r     Result
			typ   string
			links []byte
		)
		if err := rows.Scan(&r.Post.ID, &r.Post.Location.Lat, &r.Post.Location.Lng,
			&r.Post.City, &r.Post.State, &r.Post.CrossStreet, &r.Post.Summary, &typ,
			&links, &r.Post.CreatedAt, &r.Post.ExpiresAt, &r.VoteCount, &r.CommentCount); err != nil {
			return nil, err
		}
		r.Post.IncidentType = model.IncidentType(typ)
		if len(links) > 0 {
			if err := json.Unmarshal(links, &r.Post.Links); err != nil {
				return nil, err
			}
		}
		if err := r.validate(); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PostsInBounds lists posts active at now inside the bounding box.
func (g *PG) PostsInBounds(ctx context.Context, box model.BoundingBox, now time.Time) ([]Result, error) {
	const q = `
SELECT ` + resultColumns + `
FROM posts p
WHERE p.expires_at > $1
  AND p.lat BETWEEN $2 AND $3
  AND p.lng BETWEEN $4 AND $5
ORDER BY p.created_at DESC`
	rows, err := g.pool.Query(ctx, q, now, box.SouthLat, box.NorthLat, box.WestLng, box.EastLng)
	if err != nil {
		return nil, err
	}
	return scanResults(rows)
}

// PostsNearby lists posts active at now within radiusMeters of the point.
func (g *PG) PostsNearby(ctx context.Context, center model.Location, radiusMeters float64, excludeID *uuid.UUID, limit int, now time.Time) ([]Result, error) {
	// Haversine over an Earth radius of 6371km; close enough for a
	// notification radius measured in miles.
	const q = `
SELECT ` + resultColumns + `
FROM posts p
WHERE p.expires_at > $1
  AND ($4::uuid IS NULL OR p.id <> $4)
  AND 6371000 * 2 * asin(sqrt(
        power(sin(radians(p.lat - $2) / 2), 2) +
        cos(radians($2)) * cos(radians(p.lat)) * power(sin(radians(p.lng - $3) / 2), 2)
      )) <= $5
ORDER BY 6371000 * 2 * asin(sqrt(
        power(sin(radians(p.lat - $2) / 2), 2) +
        cos(radians($2)) * cos(radians(p.lat)) * power(sin(radians(p.lng - $3) / 2), 2)
      )) ASC
LIMIT $6`
	rows, err := g.pool.Query(ctx, q, now, center.Lat, center.Lng, excludeID, radiusMeters, limit)
	if err != nil {
		return nil, err
	}
	return scanResults(rows)
}
