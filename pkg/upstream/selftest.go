package upstream

import (
	"context"
	"fmt"
)

// selfCheckWindow is the remaining count a fresh token must report
// after exactly one authenticated request: upstream grants each token
// a 100-request window.
const selfCheckWindow = 99

// selfCheckSubreddits are the listings probed by SelfCheck, distinct so
// the second probe cannot be answered from an upstream cache.
var selfCheckSubreddits = [2]string{"reddit", "rust"}

// ForceRefresher is a Refresher that can additionally roll the
// credential over unconditionally, ignoring the refresh cooldown.
// Implemented by *auth.Refresher.
type ForceRefresher interface {
	Refresher
	ForceRefresh(ctx context.Context) error
}

// SelfCheck verifies the credential and rate-limit plumbing end to end.
// It fetches one listing and asserts the mirrored budget synced to
// exactly 99, rolls the credential over, and asserts the same for a
// second listing on the fresh token. A budget mismatch on the second
// probe means upstream is keying the window to this instance's address
// rather than to the token, and effective capacity will be far below
// what the pacer assumes.
//
// Fallback credentials are exempt: the generic grant shares a window
// across clients, so the assertion would be meaningless. The check then
// logs a warning and reports success.
func SelfCheck(ctx context.Context, d *Dispatcher, refresher ForceRefresher) error {
	cred, err := d.store.Current()
	if err != nil {
		return err
	}
	if len(cred.SessionHeaders) == 0 {
		d.logger.Warn("Skipping rate limit self-check on a fallback credential")
		return nil
	}

	for i, sub := range selfCheckSubreddits {
		if i > 0 {
			if err := refresher.ForceRefresh(ctx); err != nil {
				return fmt.Errorf("rolling credential over: %w", err)
			}
		}
		if err := probeListing(ctx, d, sub); err != nil {
			return err
		}
		if remaining := d.Budget().Remaining(); remaining != selfCheckWindow {
			return fmt.Errorf("rate limit out of sync after probe %d: remaining = %d, want %d", i+1, remaining, selfCheckWindow)
		}
	}

	return nil
}

// probeListing fetches one hot listing and checks the payload shape.
func probeListing(ctx context.Context, d *Dispatcher, sub string) error {
	var listing struct {
		Kind string `json:"kind"`
	}
	desc := NewGet("/r/" + sub + "/hot").WithKind("listing")
	if err := d.FetchJSON(ctx, desc, &listing); err != nil {
		return fmt.Errorf("probing r/%s: %w", sub, err)
	}
	if listing.Kind != "Listing" {
		return fmt.Errorf("probing r/%s: unexpected payload kind %q", sub, listing.Kind)
	}
	return nil
}
