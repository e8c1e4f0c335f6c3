package simulator

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"github.com/subnetlabs/console/internal/models"
	"github.com/subnetlabs/console/internal/store"
	"github.com/subnetlabs/console/pkg/logger"
)

// Simulator drives scheduled activities through their lifecycle.
type Simulator struct {
	store  *store.Store
	config Config
	log    *logger.Logger
	now    func() time.Time

	mu        sync.Mutex
	rng       *rand.Rand
	stats     Stats
	lastSpawn time.Time

	// Control
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Stats counts what the simulator has done since it started.
type Stats struct {
	Ticks    int `json:"ticks"`
	Started  int `json:"started"`
	Finished int `json:"finished"`
	Retried  int `json:"retried"`
	Closed   int `json:"closed"`
	Spawned  int `json:"spawned"`
	Errors   int `json:"errors"`
}

// New creates a new simulator.
func New(s *store.Store, cfg Config, log *logger.Logger) *Simulator {
	if log == nil {
		log = logger.Discard()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Simulator{
		store:  s,
		config: cfg,
		log:    log.WithComponent("simulator"),
		now:    time.Now,
		rng:    rand.New(rand.NewSource(seed)),
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetClock replaces the time source. Used by tests.
func (sim *Simulator) SetClock(now func() time.Time) {
	sim.now = now
}

// Start begins the simulation loop. It is a no-op when disabled.
func (sim *Simulator) Start() {
	if !sim.config.Enabled {
		sim.log.Info("simulator disabled")
		return
	}
	sim.wg.Add(1)
	go sim.loop()
	sim.log.Info("simulator started", "interval", sim.config.Interval)
}

// Stop gracefully stops the simulator.
func (sim *Simulator) Stop() {
	sim.cancel()
	sim.wg.Wait()
	sim.log.Info("simulator stopped")
}

func (sim *Simulator) loop() {
	defer sim.wg.Done()

	ticker := time.NewTicker(sim.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-sim.ctx.Done():
			return
		case <-ticker.C:
			if err := sim.Step(sim.ctx); err != nil && !errors.Is(err, context.Canceled) {
				sim.log.WithError(err).Warn("simulation step failed")
			}
		}
	}
}

// Step runs one tick: finish due attempts, dispatch runnable activities,
// close finished workflows, maybe spawn a workflow, refresh heartbeats.
func (sim *Simulator) Step(ctx context.Context) error {
	now := sim.now()
	sim.mu.Lock()
	defer sim.mu.Unlock()
	sim.stats.Ticks++

	touched := map[string]bool{}
	if err := sim.finishDue(ctx, now, touched); err != nil {
		sim.stats.Errors++
		return err
	}
	for id := range touched {
		closed, err := sim.store.CloseWorkflowIfDone(ctx, id, now)
		if err != nil {
			sim.stats.Errors++
			return err
		}
		if closed {
			sim.stats.Closed++
			sim.log.Debug("workflow closed", "workflow_id", id)
		}
	}
	if err := sim.maybeSpawn(ctx, now); err != nil {
		sim.stats.Errors++
		return err
	}
	if err := sim.dispatch(ctx, now); err != nil {
		sim.stats.Errors++
		return err
	}
	if err := sim.store.Heartbeat(ctx, now); err != nil {
		sim.stats.Errors++
		return err
	}
	return nil
}

func (sim *Simulator) finishDue(ctx context.Context, now time.Time, touched map[string]bool) error {
	started, err := sim.store.ListActivities(ctx, models.ActivityFilter{Status: models.ActivityStarted, Limit: 1000})
	if err != nil {
		return err
	}
	for _, a := range started {
		if a.StartedAt == nil || now.Sub(*a.StartedAt) < sim.attemptDuration(a) {
			continue
		}

		out := store.Outcome{Status: models.ActivityCompleted}
		if sim.rng.Float64() < sim.config.FailureRate {
			out.Status = models.ActivityFailed
			out.Failure = fmt.Sprintf("%s: simulated failure on attempt %d", a.Type, a.Attempt)
			out.Retry = a.Attempt < sim.config.MaxAttempts
		}
		if err := sim.store.FinishActivity(ctx, a.ID, out, now); err != nil {
			if errors.Is(err, store.ErrInvalidTransition) {
				continue
			}
			return err
		}
		if out.Retry {
			sim.stats.Retried++
		} else {
			sim.stats.Finished++
		}
		touched[a.WorkflowID] = true
		sim.log.Debug("activity finished", "activity_id", a.ID, "status", out.Status, "retry", out.Retry)
	}
	return nil
}

func (sim *Simulator) dispatch(ctx context.Context, now time.Time) error {
	runnable, err := sim.store.NextRunnable(ctx, 100)
	if err != nil {
		return err
	}
	for _, a := range runnable {
		w, err := sim.store.AvailableWorker(ctx, a.TaskQueue)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if _, err := sim.store.StartActivity(ctx, a.ID, w.ID, now); err != nil {
			if errors.Is(err, store.ErrInvalidTransition) {
				continue
			}
			return err
		}
		sim.stats.Started++
		sim.log.Debug("activity started", "activity_id", a.ID, "worker_id", w.ID)
	}
	return nil
}

func (sim *Simulator) maybeSpawn(ctx context.Context, now time.Time) error {
	if sim.config.SpawnEvery <= 0 || len(sim.config.Templates) == 0 {
		return nil
	}
	if !sim.lastSpawn.IsZero() && now.Sub(sim.lastSpawn) < sim.config.SpawnEvery {
		return nil
	}
	if sim.config.MaxRunning > 0 {
		running, err := sim.store.ListWorkflows(ctx, models.WorkflowFilter{Status: models.WorkflowRunning, Limit: sim.config.MaxRunning})
		if err != nil {
			return err
		}
		if len(running) >= sim.config.MaxRunning {
			return nil
		}
	}

	tpl := sim.config.Templates[sim.rng.Intn(len(sim.config.Templates))]
	wf, err := sim.store.CreateWorkflow(ctx, store.NewWorkflow{
		Type:          tpl.Type,
		TaskQueue:     tpl.TaskQueue,
		ActivityQueue: tpl.ActivityQueue,
		Activities:    tpl.Activities,
		StartTime:     now,
	})
	if err != nil {
		return err
	}
	sim.lastSpawn = now
	sim.stats.Spawned++
	sim.log.Info("workflow started", "workflow_id", wf.ID, "type", wf.Type)
	return nil
}

func (sim *Simulator) attemptDuration(a models.Activity) time.Duration {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s/%d", a.ID, a.Attempt)
	return sim.config.durationFor(h.Sum32())
}

// GetStats returns current simulator statistics.
func (sim *Simulator) GetStats() Stats {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return sim.stats
}
