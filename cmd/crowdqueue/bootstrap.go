package main

import (
	"context"
	"fmt"

	"crowdqueue/internal/store"
)

// seedDemoEvent sets up a demo event with a moderator credential and a few
// queued requests. Safe to run on every start.
func seedDemoEvent(ctx context.Context, dataStore *store.Store) error {
	event, err := dataStore.CreateEvent(ctx, "demo", "Demo Party")
	if err != nil {
		return fmt.Errorf("bootstrap demo event: %w", err)
	}

	hasModerator, err := dataStore.ModeratorExists(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("bootstrap demo moderator: %w", err)
	}
	if !hasModerator {
		if _, err := dataStore.CreateModerator(ctx, event.ID, "demo123"); err != nil {
			return fmt.Errorf("bootstrap demo moderator: %w", err)
		}
	}

	existing, err := dataStore.RequestsByEvent(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("bootstrap demo requests: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	seeds := []struct {
		Title  string
		Artist string
		Note   string
	}{
		{"Dancing Queen", "ABBA", "for the newlyweds"},
		{"September", "Earth, Wind & Fire", ""},
		{"Mr. Brightside", "The Killers", "play it loud"},
	}
	for _, seed := range seeds {
		if _, err := dataStore.CreateRequest(ctx, event.ID, seed.Title, seed.Artist, seed.Note); err != nil {
			return fmt.Errorf("bootstrap demo request: %w", err)
		}
	}

	return nil
}
