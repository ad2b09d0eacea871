package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"redalert/backend/pkg/utils"
)

// Gateway is the realtime database: persistent values in a Store with live
// retained fan-out through a Bus. Mutations are serialized.
type Gateway struct {
	store Store
	bus   Bus
	l     *slog.Logger

	mu sync.Mutex
}

func NewGateway(l *slog.Logger, store Store, bus Bus) *Gateway {
	return &Gateway{
		store: store,
		bus:   bus,
		l:     l.With(slog.String("component", "realtime-gateway")),
	}
}

// Subscription is a live listener on a path.
type Subscription struct {
	path  string
	unsub func()
	once  sync.Once
}

// Path is the subscribed path.
func (s *Subscription) Path() string {
	return s.path
}

// Unsubscribe stops delivery. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.unsub)
}

// Subscribe calls fn with the current value of path and again on every change.
func (g *Gateway) Subscribe(path string, fn func(Snapshot)) (*Subscription, error) {
	p, err := ParsePath(path)
	if err != nil {
		return nil, err
	}

	key := p.Key
	if key == "" {
		key = p.Collection
	}

	unsub, err := g.bus.Subscribe(p.Topic(), func(payload []byte) {
		fn(NewSnapshot(key, payload))
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", path, err)
	}

	g.l.Debug("Subscribed", slog.String("path", path))

	return &Subscription{path: path, unsub: unsub}, nil
}

// ReadOnce returns the current value at path. A missing value is not an error.
func (g *Gateway) ReadOnce(ctx context.Context, path string) (Snapshot, error) {
	p, err := ParsePath(path)
	if err != nil {
		return Snapshot{}, err
	}

	return g.read(ctx, p)
}

func (g *Gateway) read(ctx context.Context, p Path) (Snapshot, error) {
	if p.IsChild() {
		v, err := g.store.Get(ctx, p.Collection, p.Key)
		if errors.Is(err, ErrNotFound) {
			return NewSnapshot(p.Key, nil), nil
		}

		if err != nil {
			return Snapshot{}, err
		}

		return NewSnapshot(p.Key, v), nil
	}

	nodes, err := g.store.List(ctx, p.Collection)
	if err != nil {
		return Snapshot{}, err
	}

	v, err := collectionValue(nodes)
	if err != nil {
		return Snapshot{}, err
	}

	return NewSnapshot(p.Collection, v), nil
}

// Write replaces the child at path with value.
func (g *Gateway) Write(ctx context.Context, path string, value any) error {
	p, err := childPath(path)
	if err != nil {
		return err
	}

	raw, err := utils.ToJSON(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.store.Put(ctx, p.Collection, p.Key, raw); err != nil {
		return err
	}

	return g.fanOut(ctx, p, raw)
}

// Update merges fields into the object at path, creating it if missing.
func (g *Gateway) Update(ctx context.Context, path string, fields map[string]any) error {
	p, err := childPath(path)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	current := map[string]any{}

	existing, err := g.store.Get(ctx, p.Collection, p.Key)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return err
	default:
		if err := json.Unmarshal(existing, &current); err != nil || current == nil {
			current = map[string]any{}
		}
	}

	for k, v := range fields {
		current[k] = v
	}

	raw, err := utils.ToJSON(current)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	if err := g.store.Put(ctx, p.Collection, p.Key, raw); err != nil {
		return err
	}

	return g.fanOut(ctx, p, raw)
}

// Push appends value under a new time-ordered key and returns the key.
func (g *Gateway) Push(ctx context.Context, collection string, value any) (string, error) {
	key := utils.NewUUID()
	if err := g.Write(ctx, Child(collection, key), value); err != nil {
		return "", err
	}

	return key, nil
}

// Remove deletes the child or the whole collection at path.
func (g *Gateway) Remove(ctx context.Context, path string) error {
	p, err := ParsePath(path)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if !p.IsChild() {
		nodes, err := g.store.List(ctx, p.Collection)
		if err != nil {
			return err
		}

		if err := g.store.DeleteCollection(ctx, p.Collection); err != nil {
			return err
		}

		for _, n := range nodes {
			if err := g.bus.Publish(ctx, Path{Collection: p.Collection, Key: n.Key}.Topic(), jsonNull); err != nil {
				return err
			}
		}

		return g.bus.Publish(ctx, p.Topic(), jsonNull)
	}

	if err := g.store.Delete(ctx, p.Collection, p.Key); err != nil {
		return err
	}

	return g.fanOut(ctx, p, jsonNull)
}

// QueryEqualTo returns the children of collection whose field equals value,
// shaped as a collection snapshot (missing when nothing matches).
func (g *Gateway) QueryEqualTo(ctx context.Context, collection, field string, value any) (Snapshot, error) {
	nodes, err := g.store.List(ctx, collection)
	if err != nil {
		return Snapshot{}, err
	}

	want, err := normalize(value)
	if err != nil {
		return Snapshot{}, err
	}

	matched := make([]Node, 0)

	for _, n := range nodes {
		var obj map[string]any
		if err := json.Unmarshal(n.Value, &obj); err != nil {
			continue
		}

		if got, ok := obj[field]; ok && reflect.DeepEqual(got, want) {
			matched = append(matched, n)
		}
	}

	raw, err := collectionValue(matched)
	if err != nil {
		return Snapshot{}, err
	}

	return NewSnapshot(collection, raw), nil
}

// Prime publishes the stored state of every known collection so retained
// topics match the store after a broker restart.
func (g *Gateway) Prime(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, collection := range Collections() {
		nodes, err := g.store.List(ctx, collection)
		if err != nil {
			return err
		}

		for _, n := range nodes {
			if err := g.bus.Publish(ctx, Path{Collection: collection, Key: n.Key}.Topic(), n.Value); err != nil {
				return err
			}
		}

		raw, err := collectionValue(nodes)
		if err != nil {
			return err
		}

		if err := g.bus.Publish(ctx, Path{Collection: collection}.Topic(), raw); err != nil {
			return err
		}

		g.l.Info("Primed collection", slog.String("collection", collection), slog.Int("children", len(nodes)))
	}

	return nil
}

// Ping checks the backing store.
func (g *Gateway) Ping(ctx context.Context) error {
	return g.store.Ping(ctx)
}

// fanOut publishes the new child value and the new collection value.
// Callers hold g.mu.
func (g *Gateway) fanOut(ctx context.Context, p Path, raw []byte) error {
	if err := g.bus.Publish(ctx, p.Topic(), raw); err != nil {
		return err
	}

	nodes, err := g.store.List(ctx, p.Collection)
	if err != nil {
		return err
	}

	collection, err := collectionValue(nodes)
	if err != nil {
		return err
	}

	return g.bus.Publish(ctx, p.Parent().Topic(), collection)
}

func childPath(path string) (Path, error) {
	p, err := ParsePath(path)
	if err != nil {
		return Path{}, err
	}

	if !p.IsChild() {
		return Path{}, fmt.Errorf("%w: %q is a collection", ErrInvalidPath, path)
	}

	return p, nil
}

func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}

	return out, nil
}
