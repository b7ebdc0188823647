package unique

import (
	"errors"
	"fmt"
	"sync"

	"github.com/huynhanx03/go-mongorepo/pkg/settings"
	"github.com/huynhanx03/go-mongorepo/pkg/timer"
)

var ErrInvalidLayout = errors.New("invalid snowflake layout")

// Snowflake generates time ordered int64 identifiers that are unique per
// worker: timestamp | worker | sequence.
type Snowflake struct {
	mu        sync.Mutex
	timestamp int64
	step      int64

	worker    int64
	epoch     int64
	seconds   bool
	stepMax   int64
	timeShift uint8
	nodeShift uint8
	limitMask int64

	clock timer.Clock
}

// NewSnowflake creates a generator for cfg.WorkerID.
func NewSnowflake(cfg settings.IDs, clock timer.Clock) (*Snowflake, error) {
	totalBits := cfg.TotalBits
	if totalBits == 0 {
		totalBits = 63
	}
	if totalBits > 63 || totalBits <= cfg.NodeBits+cfg.StepBits {
		return nil, fmt.Errorf("%w: %d total bits for %d node and %d step bits", ErrInvalidLayout, totalBits, cfg.NodeBits, cfg.StepBits)
	}

	nodeMax := int64(-1 ^ (-1 << cfg.NodeBits))
	if cfg.WorkerID < 0 || cfg.WorkerID > nodeMax {
		return nil, fmt.Errorf("%w: worker %d outside [0, %d]", ErrInvalidLayout, cfg.WorkerID, nodeMax)
	}
	if clock == nil {
		clock = timer.System()
	}

	return &Snowflake{
		worker: cfg.WorkerID,
		epoch:  cfg.Epoch,
		// fewer than 50 bits overflow quickly at millisecond resolution
		seconds:   totalBits < 50,
		stepMax:   int64(-1 ^ (-1 << cfg.StepBits)),
		timeShift: cfg.NodeBits + cfg.StepBits,
		nodeShift: cfg.StepBits,
		limitMask: int64(1)<<totalBits - 1,
		clock:     clock,
	}, nil
}

func (s *Snowflake) tick() int64 {
	now := s.clock.Now()
	if s.seconds {
		return now.Unix() - s.epoch/1000
	}
	return now.UnixMilli() - s.epoch
}

// Generate returns the next identifier. It blocks until the next tick when
// the sequence of the current tick is exhausted.
func (s *Snowflake) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.tick()
	if now < s.timestamp {
		// clock moved backwards
		now = s.timestamp
	}

	if now == s.timestamp {
		s.step = (s.step + 1) & s.stepMax
		if s.step == 0 {
			for now <= s.timestamp {
				now = s.tick()
			}
		}
	} else {
		s.step = 0
	}
	s.timestamp = now

	id := now<<s.timeShift | s.worker<<s.nodeShift | s.step
	return id & s.limitMask
}
