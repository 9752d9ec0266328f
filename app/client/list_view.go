package client

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/lysyi3m/keepit/app/database"
	"github.com/lysyi3m/keepit/app/events"
)

const DefaultPollInterval = 30 * time.Second

type ItemsAPI interface {
	ListItems(ctx context.Context, ownerID string) ([]database.SavedItem, error)
	ToggleCompletion(ctx context.Context, ownerID, itemID string, completed bool) (*database.SavedItem, error)
	UpdateTitle(ctx context.Context, ownerID, itemID, title string) (*database.SavedItem, error)
}

type EventBus interface {
	Subscribe(ownerID string) *events.Subscription
	Publish(ctx context.Context, event events.Event) error
}

var _ EventBus = (*events.Bus)(nil)

// ListView keeps one owner's item list fresh. While mounted it reloads on
// every bus event for the owner and on a fixed poll interval.
type ListView struct {
	api      ItemsAPI
	bus      EventBus
	ownerID  string
	interval time.Duration

	mu       sync.RWMutex
	items    []database.SavedItem
	onChange func([]database.SavedItem)

	cancel context.CancelFunc
	done   chan struct{}
	sub    *events.Subscription
}

func NewListView(api ItemsAPI, bus EventBus, ownerID string) *ListView {
	return &ListView{
		api:      api,
		bus:      bus,
		ownerID:  ownerID,
		interval: DefaultPollInterval,
	}
}

// OnChange registers a callback invoked with a copy of the list after every change.
func (v *ListView) OnChange(fn func([]database.SavedItem)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onChange = fn
}

func (v *ListView) Mount(ctx context.Context) error {
	v.mu.Lock()
	if v.cancel != nil {
		v.mu.Unlock()
		return fmt.Errorf("list view already mounted")
	}
	loopCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.done = make(chan struct{})
	v.sub = v.bus.Subscribe(v.ownerID)
	v.mu.Unlock()

	if err := v.Refresh(loopCtx); err != nil {
		slog.Warn("Initial list load failed", "owner", v.ownerID, "error", err)
	}

	go v.loop(loopCtx, v.sub, v.done)

	return nil
}

func (v *ListView) Unmount() {
	v.mu.Lock()
	cancel, done, sub := v.cancel, v.done, v.sub
	v.cancel, v.done, v.sub = nil, nil, nil
	v.mu.Unlock()

	if cancel == nil {
		return
	}

	sub.Close()
	cancel()
	<-done
}

func (v *ListView) loop(ctx context.Context, sub *events.Subscription, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.C:
			if !ok {
				return
			}
			v.refreshLogged(ctx, "event")
		case <-ticker.C:
			v.refreshLogged(ctx, "poll")
		}
	}
}

func (v *ListView) refreshLogged(ctx context.Context, trigger string) {
	if err := v.Refresh(ctx); err != nil && ctx.Err() == nil {
		slog.Warn("List refresh failed", "owner", v.ownerID, "trigger", trigger, "error", err)
	}
}

func (v *ListView) Refresh(ctx context.Context) error {
	items, err := v.api.ListItems(ctx, v.ownerID)
	if err != nil {
		return err
	}

	v.mu.Lock()
	v.items = items
	v.mu.Unlock()

	v.notify()
	return nil
}

func (v *ListView) Items() []database.SavedItem {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Clone(v.items)
}

// ToggleCompletion shows the new state immediately and rolls it back if the server refuses.
func (v *ListView) ToggleCompletion(ctx context.Context, itemID string, completed bool) error {
	return v.mutate(ctx, itemID, func(item *database.SavedItem) {
		item.Completed = completed
	}, func() (*database.SavedItem, error) {
		return v.api.ToggleCompletion(ctx, v.ownerID, itemID, completed)
	})
}

func (v *ListView) UpdateTitle(ctx context.Context, itemID, title string) error {
	return v.mutate(ctx, itemID, func(item *database.SavedItem) {
		item.Title = title
	}, func() (*database.SavedItem, error) {
		return v.api.UpdateTitle(ctx, v.ownerID, itemID, title)
	})
}

func (v *ListView) mutate(ctx context.Context, itemID string, apply func(*database.SavedItem), call func() (*database.SavedItem, error)) error {
	v.mu.Lock()
	idx := v.indexOf(itemID)
	if idx < 0 {
		v.mu.Unlock()
		return fmt.Errorf("item %s is not in the list", itemID)
	}
	snapshot := v.items[idx]
	apply(&v.items[idx])
	v.mu.Unlock()
	v.notify()

	updated, err := call()
	if err != nil {
		v.mu.Lock()
		if idx := v.indexOf(itemID); idx >= 0 {
			v.items[idx] = snapshot
		}
		v.mu.Unlock()
		v.notify()
		return err
	}

	v.mu.Lock()
	if idx := v.indexOf(itemID); idx >= 0 {
		v.items[idx] = *updated
	}
	v.mu.Unlock()
	v.notify()

	if err := v.bus.Publish(ctx, events.Refresh(v.ownerID, itemID)); err != nil {
		slog.Warn("Failed to publish refresh event", "owner", v.ownerID, "error", err)
	}

	return nil
}

// indexOf must be called with mu held.
func (v *ListView) indexOf(itemID string) int {
	return slices.IndexFunc(v.items, func(item database.SavedItem) bool {
		return item.ID == itemID
	})
}

func (v *ListView) notify() {
	v.mu.RLock()
	fn := v.onChange
	items := slices.Clone(v.items)
	v.mu.RUnlock()

	if fn != nil {
		fn(items)
	}
}
