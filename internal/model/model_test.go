package model

import (
	"testing"
	"time"
)

func TestPost_ActiveBoundary(t *testing.T) {
	t.Parallel()
	expires := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	p := &Post{ExpiresAt: expires}

	if !p.Active(expires.Add(-time.Second)) {
		t.Fatalf("post must be active one second before expiry")
	}
	// Visibility is a strict inequality: at the expiry instant the post
	// is already gone.
	if p.Active(expires) {
		t.Fatalf("post must be inactive at exactly expires_at")
	}
	if p.Active(expires.Add(time.Second)) {
		t.Fatalf("post must be inactive one second after expiry")
	}
}

func TestIncidentType_Valid(t *testing.T) {
	t.Parallel()
	if !IncidentRoadHazard.Valid() {
		t.Fatalf("known type rejected")
	}
	if IncidentType("volcano").Valid() {
		t.Fatalf("unknown type accepted")
	}
	if IncidentType("").Valid() {
		t.Fatalf("empty type accepted")
	}
}
