// Package courses keeps the in-memory course collection that readers use and
// writes it through to the durable store.
package courses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/p-n-ai/pai-study/internal/course"
	"github.com/p-n-ai/pai-study/internal/platform/keylock"
	"github.com/p-n-ai/pai-study/internal/store"
)

// DefaultChannel is the Publisher channel used when Config.Channel is empty.
const DefaultChannel = "courses:snapshots"

// maxLoadAttempts bounds how often Init rereads the store when the collection
// changes while it loads.
const maxLoadAttempts = 5

var errCollectionChanged = errors.New("course collection changed during load")

// Durable is the persistent collection behind the cache.
type Durable interface {
	Initialize(ctx context.Context) error
	Insert(ctx context.Context, c course.Course) error
	FindByID(ctx context.Context, id string) (course.Course, bool, error)
	FindAll(ctx context.Context) ([]course.Course, error)
	UpsertOrPatch(ctx context.Context, c course.Course) (course.Course, error)
}

// Publisher forwards snapshots outside the process.
type Publisher interface {
	PublishJSON(ctx context.Context, channel string, v any) error
}

// Config holds dependencies for the cache.
type Config struct {
	Store     Durable
	Publisher Publisher // optional
	Channel   string
}

// Snapshot is the full course collection after one committed mutation.
type Snapshot struct {
	Seq     uint64          `json:"seq"`
	Courses []course.Course `json:"courses"`
}

// Cache mirrors all courses in memory. Reads never block on the store;
// Create persists in the background, Update persists before it commits.
type Cache struct {
	store     Durable
	publisher Publisher
	channel   string
	locks     *keylock.Locker
	pending   sync.WaitGroup
	initGroup singleflight.Group

	mu      sync.RWMutex
	courses []course.Course
	durable bool
	seq     uint64
	subs    map[uint64]chan Snapshot
	nextSub uint64

	// Names and ids claimed by a write-through that has not committed yet.
	claimedNames map[string]int
	claimedIDs   map[string]int

	fwdMu     sync.Mutex
	forwarded uint64
}

// New creates an empty, memory-only cache. Call Init to load the store.
func New(cfg Config) *Cache {
	channel := cfg.Channel
	if channel == "" {
		channel = DefaultChannel
	}
	return &Cache{
		store:     cfg.Store,
		publisher: cfg.Publisher,
		channel:   channel,
		locks:     keylock.New(),
		courses:   []course.Course{},
		subs:      make(map[uint64]chan Snapshot),

		claimedNames: make(map[string]int),
		claimedIDs:   make(map[string]int),
	}
}

// Init initializes the store and replaces the in-memory collection with its
// contents. Concurrent calls share one load, and once the cache is durable
// Init does nothing. On failure the cache stays memory-only.
func (c *Cache) Init(ctx context.Context) error {
	_, err, _ := c.initGroup.Do("init", func() (any, error) {
		return nil, c.load(context.WithoutCancel(ctx))
	})
	return err
}

func (c *Cache) load(ctx context.Context) error {
	if c.Durable() {
		return nil
	}
	if err := c.store.Initialize(ctx); err != nil {
		slog.Warn("course cache running memory-only", "error", err)
		return err
	}

	for attempt := 1; attempt <= maxLoadAttempts; attempt++ {
		c.mu.RLock()
		start := c.seq
		c.mu.RUnlock()

		all, err := c.store.FindAll(ctx)
		if err != nil {
			slog.Warn("course cache running memory-only", "error", err)
			return fmt.Errorf("load courses: %w", err)
		}

		// The loaded collection only replaces memory if nothing committed
		// since FindAll started.
		snap, err := c.commit(func() error {
			if c.seq != start {
				return errCollectionChanged
			}
			c.courses = course.CloneAll(all)
			c.durable = true
			return nil
		})
		if errors.Is(err, errCollectionChanged) {
			slog.Debug("course collection changed during load, reloading", "attempt", attempt)
			continue
		}
		c.forward(ctx, snap)

		slog.Info("course cache loaded", "courses", len(all))
		return nil
	}

	slog.Warn("course cache running memory-only", "error", errCollectionChanged)
	return fmt.Errorf("load courses: %w", errCollectionChanged)
}

// Durable reports whether Init has succeeded.
func (c *Cache) Durable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.durable
}

// Courses returns the latest locally known collection without blocking on
// the store.
func (c *Cache) Courses() []course.Course {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return course.CloneAll(c.courses)
}

// Create adds a course with an empty description and no question sets. It is
// visible to readers immediately; when the cache is durable-backed it is
// persisted in the background and a persistence failure is only logged.
func (c *Cache) Create(ctx context.Context, name, color string) (course.Course, error) {
	if name == "" {
		return course.Course{}, fmt.Errorf("%w: course name is required", course.ErrValidation)
	}
	if color == "" {
		return course.Course{}, fmt.Errorf("%w: course color is required", course.ErrValidation)
	}

	var created course.Course
	var durable bool
	snap, err := c.commit(func() error {
		if c.nameTaken(name, "") {
			return fmt.Errorf("%w: course %q already exists", course.ErrDuplicateName, name)
		}
		created = course.NewCourse(name, color)
		c.courses = append(c.courses, created.Clone())
		durable = c.durable
		return nil
	})
	if err != nil {
		return course.Course{}, err
	}
	c.forward(ctx, snap)

	if durable {
		c.pending.Add(1)
		go c.persistNew(context.WithoutCancel(ctx), created.Clone())
	}

	slog.Info("course created", "course_id", created.ID, "name", name, "durable", durable)
	return created, nil
}

func (c *Cache) persistNew(ctx context.Context, created course.Course) {
	defer c.pending.Done()

	unlock := c.locks.Lock(created.ID)
	defer unlock()

	if err := c.store.Insert(ctx, created); err != nil {
		slog.Error("persisting new course failed", "course_id", created.ID, "error", err)
	}
}

// Wait blocks until background persistence started by Create has finished.
func (c *Cache) Wait() {
	c.pending.Wait()
}

// GetByID looks the course up in the store first when durable-backed, then in
// memory. The returned Lookup says which tier answered.
func (c *Cache) GetByID(ctx context.Context, id string) Lookup {
	var lk Lookup

	if c.Durable() {
		got, found, err := c.store.FindByID(ctx, id)
		switch {
		case err != nil:
			slog.Warn("durable lookup failed, using memory", "course_id", id, "error", err)
			lk.DurableErr = err
		case found:
			return Lookup{Course: got, Source: SourceDurable}
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if idx := c.indexOf(id); idx >= 0 {
		lk.Course = c.courses[idx].Clone()
		lk.Source = SourceMemory
	}
	return lk
}

// Update writes the course through to the store and then replaces (or
// appends) it in memory. If the store rejects it, memory is left unchanged.
// Updates to the same course are applied in the order they commit.
func (c *Cache) Update(ctx context.Context, in course.Course) (course.Course, error) {
	if in.ID == "" {
		return course.Course{}, fmt.Errorf("%w: course id is required", course.ErrValidation)
	}
	plain := in.Clone()

	if !c.Durable() {
		if err := c.Init(ctx); err != nil {
			return course.Course{}, fmt.Errorf("update course %s: %w", plain.ID, err)
		}
	}

	unlock := c.locks.Lock(plain.ID)
	defer unlock()

	saved, err := c.store.UpsertOrPatch(ctx, plain)
	if err != nil {
		slog.Error("updating course failed", "course_id", plain.ID, "error", err)
		return course.Course{}, fmt.Errorf("update course %s: %w", plain.ID, err)
	}

	snap, _ := c.commit(func() error {
		if idx := c.indexOf(saved.ID); idx >= 0 {
			c.courses[idx] = saved.Clone()
		} else {
			c.courses = append(c.courses, saved.Clone())
		}
		return nil
	})
	c.forward(ctx, snap)

	return saved.Clone(), nil
}

// Import validates a raw course document against the persisted schema and
// stores it through Update. Its name must not collide with another course; a
// document carrying an existing id replaces that course.
func (c *Cache) Import(ctx context.Context, doc []byte) (course.Course, error) {
	if err := store.Validate(doc); err != nil {
		return course.Course{}, err
	}
	var in course.Course
	if err := json.Unmarshal(doc, &in); err != nil {
		return course.Course{}, fmt.Errorf("decode course: %w", err)
	}
	if in.Name == "" || in.Color == "" {
		return course.Course{}, fmt.Errorf("%w: course name and color are required", course.ErrValidation)
	}
	return c.claimAndUpdate(ctx, in, true)
}

// Add stores a complete course that must not exist yet: both its name and
// its id have to be free.
func (c *Cache) Add(ctx context.Context, in course.Course) (course.Course, error) {
	if in.ID == "" {
		return course.Course{}, fmt.Errorf("%w: course id is required", course.ErrValidation)
	}
	return c.claimAndUpdate(ctx, in, false)
}

// claimAndUpdate reserves the course's name (and id unless replace is set)
// under c.mu, writes it through with Update and releases the claim. While
// the claim is held, Create, Import and Add reject the same name.
func (c *Cache) claimAndUpdate(ctx context.Context, in course.Course, replace bool) (course.Course, error) {
	// Checks run against the loaded collection, not a memory-only one.
	if !c.Durable() {
		if err := c.Init(ctx); err != nil {
			return course.Course{}, fmt.Errorf("store course %s: %w", in.ID, err)
		}
	}

	c.mu.Lock()
	if c.nameTaken(in.Name, in.ID) {
		c.mu.Unlock()
		return course.Course{}, fmt.Errorf("%w: course %q already exists", course.ErrDuplicateName, in.Name)
	}
	if !replace && (c.indexOf(in.ID) >= 0 || c.claimedIDs[in.ID] > 0) {
		c.mu.Unlock()
		return course.Course{}, fmt.Errorf("%w: course %s already exists", store.ErrDuplicateKey, in.ID)
	}
	c.claimedNames[in.Name]++
	c.claimedIDs[in.ID]++
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		release(c.claimedNames, in.Name)
		release(c.claimedIDs, in.ID)
		c.mu.Unlock()
	}()

	return c.Update(ctx, in)
}

// nameTaken reports whether name belongs to a course other than id, or is
// claimed by a pending write-through. Callers hold c.mu.
func (c *Cache) nameTaken(name, id string) bool {
	if slices.ContainsFunc(c.courses, func(x course.Course) bool { return x.Name == name && x.ID != id }) {
		return true
	}
	return c.claimedNames[name] > 0
}

func release(claims map[string]int, key string) {
	if claims[key] <= 1 {
		delete(claims, key)
		return
	}
	claims[key]--
}

// Subscribe returns a channel that yields the current snapshot and then one
// snapshot per committed mutation, in commit order. A subscriber that falls
// behind only sees the newest snapshot. cancel closes the channel.
func (c *Cache) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- Snapshot{Seq: c.seq, Courses: course.CloneAll(c.courses)}
	c.mu.Unlock()

	cancel := sync.OnceFunc(func() {
		c.mu.Lock()
		delete(c.subs, id)
		close(ch)
		c.mu.Unlock()
	})
	return ch, cancel
}

// commit applies a mutation under the write lock and, if it succeeds,
// delivers the resulting snapshot to subscribers before releasing the lock.
func (c *Cache) commit(apply func() error) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := apply(); err != nil {
		return Snapshot{}, err
	}
	c.seq++
	for _, ch := range c.subs {
		offer(ch, Snapshot{Seq: c.seq, Courses: course.CloneAll(c.courses)})
	}
	return Snapshot{Seq: c.seq, Courses: course.CloneAll(c.courses)}, nil
}

// offer replaces any undelivered snapshot with snap. Callers hold c.mu, so
// there is a single sender per channel.
func offer(ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- snap
}

// forward hands the snapshot to the publisher unless a newer one already went out.
func (c *Cache) forward(ctx context.Context, snap Snapshot) {
	if c.publisher == nil {
		return
	}

	c.fwdMu.Lock()
	defer c.fwdMu.Unlock()

	if snap.Seq <= c.forwarded {
		return
	}
	c.forwarded = snap.Seq
	if err := c.publisher.PublishJSON(context.WithoutCancel(ctx), c.channel, snap); err != nil {
		slog.Warn("publishing course snapshot failed", "seq", snap.Seq, "error", err)
	}
}

func (c *Cache) indexOf(id string) int {
	return slices.IndexFunc(c.courses, func(x course.Course) bool { return x.ID == id })
}
