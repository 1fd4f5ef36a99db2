package usecase

import (
	"fmt"
	"iter"
	"slices"
	"sync"
	"time"

	"tb-storyboard/internal/entity"
	"tb-storyboard/pkg/logg"

	"go.uber.org/zap"
)

// Journal is the append-only event log of one storyboard run. Appends are
// mirrored to the structured logger.
type Journal struct {
	runID  string
	logger *zap.Logger
	now    func() time.Time

	mu     sync.RWMutex
	events []entity.Event
}

func NewJournal(runID string, logger *zap.Logger) *Journal {
	return &Journal{
		runID:  runID,
		logger: logger.With(zap.String(logg.RunID, runID)),
		now:    time.Now,
	}
}

func (j *Journal) RunID() string {
	return j.runID
}

func (j *Journal) Info(phase entity.PhaseName, format string, args ...any) {
	j.append(entity.EventInfo, phase, fmt.Sprintf(format, args...))
}

func (j *Journal) Success(phase entity.PhaseName, format string, args ...any) {
	j.append(entity.EventSuccess, phase, fmt.Sprintf(format, args...))
}

func (j *Journal) Warn(phase entity.PhaseName, format string, args ...any) {
	j.append(entity.EventWarn, phase, fmt.Sprintf(format, args...))
}

func (j *Journal) Error(phase entity.PhaseName, format string, args ...any) {
	j.append(entity.EventError, phase, fmt.Sprintf(format, args...))
}

func (j *Journal) append(level entity.EventLevel, phase entity.PhaseName, msg string) {
	ev := entity.Event{At: j.now(), Level: level, Phase: phase, Message: msg}

	j.mu.Lock()
	j.events = append(j.events, ev)
	j.mu.Unlock()

	fields := []zap.Field{zap.String(logg.Phase, string(phase))}

	switch level {
	case entity.EventWarn:
		j.logger.Warn(msg, fields...)
	case entity.EventError:
		j.logger.Error(msg, fields...)
	default:
		j.logger.Info(msg, fields...)
	}
}

// Events returns the events appended so far. Each range over the sequence
// starts again from the first event of that snapshot.
func (j *Journal) Events() iter.Seq[entity.Event] {
	snapshot := j.Snapshot()

	return slices.Values(snapshot)
}

func (j *Journal) Snapshot() []entity.Event {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return slices.Clone(j.events)
}

func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return len(j.events)
}
