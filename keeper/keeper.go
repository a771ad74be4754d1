// Package keeper runs the periodic authority jobs of a ledger: bonus
// distribution, bridge reconciliation and the staker-reward checkpoint.
package keeper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/whistlenet/whistle/common"
	"github.com/whistlenet/whistle/core/types"
	"github.com/whistlenet/whistle/log"
	"github.com/whistlenet/whistle/params"
	"github.com/whistlenet/whistle/sysaction"
)

// Ledger is the part of a ledger the keeper drives.
type Ledger interface {
	Authority() common.Address
	Execute(from common.Address, data []byte) (*types.Receipt, error)
	Records(fn func(addr common.Address, data []byte) bool) error
	Balance(asset params.Asset, addr common.Address) uint64
	View(fn func(db sysaction.StateDB) error) error
}

// Config holds the job schedules. Specs take an optional leading seconds
// field. An empty spec disables the job.
type Config struct {
	BonusSpec  string
	BridgeSpec string
	StakerSpec string
	BatchSize  int
}

// DefaultConfig runs the bonus daily, reconciles the bridge every ten
// minutes and checkpoints staker rewards hourly.
var DefaultConfig = Config{
	BonusSpec:  "0 0 0 * * *",
	BridgeSpec: "0 */10 * * * *",
	StakerSpec: "0 0 * * * *",
	BatchSize:  params.MaxBonusCandidates,
}

var errBatchSize = errors.New("keeper: batch size out of range")

// Job names.
const (
	JobBonus  = "bonus"
	JobBridge = "bridge"
	JobStaker = "staker"
)

// Run is the outcome of one job run.
type Run struct {
	ID       uuid.UUID
	Job      string
	Started  time.Time
	Receipts []*types.Receipt
	Note     string // why the run issued no command
}

// Failed reports whether any command of the run was rejected.
func (r *Run) Failed() bool {
	for _, rc := range r.Receipts {
		if rc.Failed() {
			return true
		}
	}
	return false
}

// Keeper schedules the authority jobs against a ledger.
type Keeper struct {
	ledger Ledger
	config Config
	cron   *cron.Cron

	mu   sync.Mutex
	runs []*Run // most recent last
}

const maxRunHistory = 64

// New validates the schedules and creates a stopped keeper.
func New(ledger Ledger, config Config) (*Keeper, error) {
	if config.BatchSize <= 0 || config.BatchSize > params.MaxBonusCandidates {
		return nil, fmt.Errorf("%w: %d", errBatchSize, config.BatchSize)
	}
	logger := cronLogger{}
	k := &Keeper{
		ledger: ledger,
		config: config,
		cron: cron.New(
			cron.WithParser(cron.NewParser(cron.SecondOptional|cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
			cron.WithLogger(logger),
		),
	}
	jobs := []struct {
		name string
		spec string
		fn   func() (*Run, error)
	}{
		{JobBonus, config.BonusSpec, k.DistributeBonus},
		{JobBridge, config.BridgeSpec, k.ReconcileBridge},
		{JobStaker, config.StakerSpec, k.CheckpointStakers},
	}
	for _, job := range jobs {
		if job.spec == "" {
			continue
		}
		name, fn := job.name, job.fn
		if _, err := k.cron.AddFunc(job.spec, func() {
			if _, err := fn(); err != nil {
				log.Error("Keeper job failed", "job", name, "err", err)
			}
		}); err != nil {
			return nil, fmt.Errorf("keeper: %s schedule %q: %w", name, job.spec, err)
		}
	}
	return k, nil
}

// Start runs the scheduler in the background.
func (k *Keeper) Start() {
	k.cron.Start()
	log.Info("Keeper started", "bonus", k.config.BonusSpec, "bridge", k.config.BridgeSpec, "staker", k.config.StakerSpec)
}

// Stop halts the scheduler and waits for running jobs until ctx is done.
func (k *Keeper) Stop(ctx context.Context) {
	done := k.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		log.Warn("Keeper stopped with jobs still running")
		return
	}
	log.Info("Keeper stopped")
}

// Runs returns the recent job runs, oldest first.
func (k *Keeper) Runs() []*Run {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]*Run(nil), k.runs...)
}

func (k *Keeper) newRun(job string) *Run {
	return &Run{ID: uuid.New(), Job: job, Started: time.Now()}
}

func (k *Keeper) finish(run *Run) {
	k.mu.Lock()
	k.runs = append(k.runs, run)
	if len(k.runs) > maxRunHistory {
		k.runs = k.runs[len(k.runs)-maxRunHistory:]
	}
	k.mu.Unlock()

	if len(run.Receipts) == 0 {
		log.Debug("Keeper run idle", "job", run.Job, "id", run.ID, "note", run.Note)
		return
	}
	for _, r := range run.Receipts {
		if r.Failed() {
			log.Warn("Keeper command rejected", "job", run.Job, "id", run.ID, "seq", r.Seq, "err", r.Err)
		} else {
			log.Info("Keeper command applied", "job", run.Job, "id", run.ID, "seq", r.Seq, "cost", r.Cost)
		}
	}
}

// execute issues one authority command as part of run.
func (k *Keeper) execute(run *Run, kind sysaction.ActionKind, payload interface{}) (*types.Receipt, error) {
	data, err := sysaction.MakeSysAction(kind, payload)
	if err != nil {
		return nil, err
	}
	r, err := k.ledger.Execute(k.ledger.Authority(), data)
	if err != nil {
		return nil, err
	}
	run.Receipts = append(run.Receipts, r)
	return r, nil
}

// cronLogger routes scheduler messages to the package logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...interface{}) { log.Debug("Cron: "+msg, kv...) }

func (cronLogger) Error(err error, msg string, kv ...interface{}) {
	log.Error("Cron: "+msg, append(kv, "err", err)...)
}
