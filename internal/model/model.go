// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// IncidentType classifies a post. The set is closed; create rejects unknown values.
type IncidentType string

// Known incident types.
const (
	IncidentIceSighting     IncidentType = "ice_sighting"
	IncidentTrafficAccident IncidentType = "traffic_accident"
	IncidentRoadHazard      IncidentType = "road_hazard"
	IncidentPoliceActivity  IncidentType = "police_activity"
	IncidentFireEmergency   IncidentType = "fire_emergency"
	IncidentWeatherEvent    IncidentType = "weather_event"
	IncidentConstruction    IncidentType = "construction"
	IncidentPublicSafety    IncidentType = "public_safety"
	IncidentOther           IncidentType = "other"
)

// Valid reports whether t is a member of the closed incident-type set.
func (t IncidentType) Valid() bool {
	switch t {
	case IncidentIceSighting, IncidentTrafficAccident, IncidentRoadHazard,
		IncidentPoliceActivity, IncidentFireEmergency, IncidentWeatherEvent,
		IncidentConstruction, IncidentPublicSafety, IncidentOther:
		return true
	}
	return false
}

// Location is a WGS84 point.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinates are within range.
func (l Location) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

// BoundingBox is a lat/lng rectangle (south-west to north-east corners).
type BoundingBox struct {
	SouthLat float64 `json:"sw_lat"`
	WestLng  float64 `json:"sw_lng"`
	NorthLat float64 `json:"ne_lat"`
	EastLng  float64 `json:"ne_lng"`
}

// Valid reports whether both corners are within coordinate range.
func (b BoundingBox) Valid() bool {
	return Location{Lat: b.SouthLat, Lng: b.WestLng}.Valid() &&
		Location{Lat: b.NorthLat, Lng: b.EastLng}.Valid()
}

// Contains reports whether the point lies inside the box.
func (b BoundingBox) Contains(l Location) bool {
	return l.Lat >= b.SouthLat && l.Lat <= b.NorthLat &&
		l.Lng >= b.WestLng && l.Lng <= b.EastLng
}

// PostLink is an optional external link attached to a post.
type PostLink struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// Post is an ephemeral incident report. A post is active iff now < ExpiresAt;
// that predicate gates all reads and all dependent writes.
type Post struct {
	ID           uuid.UUID    `json:"id"`
	Location     Location     `json:"location"`
	City         string       `json:"city,omitempty"`
	State        string       `json:"state,omitempty"`
	CrossStreet  string       `json:"cross_street,omitempty"`
	Summary      string       `json:"summary"`
	IncidentType IncidentType `json:"incident_type"`
	Fingerprint  string       `json:"-"`
	Links        []PostLink   `json:"links,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	ExpiresAt    time.Time    `json:"expires_at"`
}

// Active reports whether the post is visible at the given instant.
func (p *Post) Active(now time.Time) bool { return now.Before(p.ExpiresAt) }

// MediaType distinguishes the two transcoding classes.
type MediaType string

// Media classes.
const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// MediaAsset is a stored binary reference. PostID is nil until a post
// links the asset at creation; assets unlinked past the retention horizon
// are garbage collected.
type MediaAsset struct {
	ID               uuid.UUID  `json:"id"`
	PostID           *uuid.UUID `json:"post_id,omitempty"`
	StoragePath      string     `json:"storage_path"`
	MediaType        MediaType  `json:"media_type"`
	OriginalFilename string     `json:"original_filename,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Comment is append-only and removed only by post cascade.
type Comment struct {
	ID          uuid.UUID `json:"id"`
	PostID      uuid.UUID `json:"post_id"`
	Fingerprint string    `json:"-"`
	Alias       string    `json:"anonymous_id"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

// Subscription is a bounding box a fingerprint wants alerts for, with
// optional push delivery credentials.
type Subscription struct {
	ID           uuid.UUID   `json:"id"`
	Fingerprint  string      `json:"-"`
	Box          BoundingBox `json:"bounding_box"`
	PushEndpoint string      `json:"push_endpoint,omitempty"`
	PushP256DH   string      `json:"-"`
	PushAuth     string      `json:"-"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Admin is a reviewed account used only for moderation endpoints.
type Admin struct {
	ID           uuid.UUID
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// PostDetail is the full single-post view: the post plus everything a
// reader needs, including the caller's own interaction state.
type PostDetail struct {
	Post        Post         `json:"post"`
	Media       []MediaAsset `json:"media"`
	Comments    []Comment    `json:"comments"`
	VoteCount   int64        `json:"vote_count"`
	UserVote    *int         `json:"user_vote,omitempty"`
	IsFavorited bool         `json:"is_favorited"`
}

// FavoriteEntry pairs a favorite row with its (still active) post.
type FavoriteEntry struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Post      Post      `json:"post"`
}
