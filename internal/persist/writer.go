package persist

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Saver stores one snapshot.
type Saver interface {
	Save(ctx context.Context, s *Snapshot) error
}

// Writer moves snapshots off the game loop. Enqueue never blocks; Run
// performs the database writes on its own goroutine.
type Writer struct {
	saver   Saver
	queue   chan Snapshot
	timeout time.Duration
	log     *zap.Logger

	dropped int
}

func NewWriter(saver Saver, queueSize int, log *zap.Logger) *Writer {
	if queueSize <= 0 {
		queueSize = 64
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{
		saver:   saver,
		queue:   make(chan Snapshot, queueSize),
		timeout: 5 * time.Second,
		log:     log,
	}
}

// Enqueue hands a snapshot to the writer. It reports false and drops the
// snapshot when the queue is full.
func (w *Writer) Enqueue(s Snapshot) bool {
	select {
	case w.queue <- s:
		return true
	default:
		w.dropped++
		w.log.Warn("persist queue full, snapshot dropped",
			zap.String("name", s.Name),
			zap.Int("dropped", w.dropped))
		return false
	}
}

// Dropped returns how many snapshots Enqueue has discarded. Game loop only.
func (w *Writer) Dropped() int { return w.dropped }

// Run saves snapshots until ctx is cancelled, then drains what is still
// queued. Cancel ctx only after the final Enqueue; a snapshot queued after
// Run returns is never saved.
func (w *Writer) Run(ctx context.Context) error {
	for {
		select {
		case s := <-w.queue:
			w.save(context.Background(), s)
		case <-ctx.Done():
			for {
				select {
				case s := <-w.queue:
					w.save(context.Background(), s)
				default:
					return nil
				}
			}
		}
	}
}

func (w *Writer) save(parent context.Context, s Snapshot) {
	ctx, cancel := context.WithTimeout(parent, w.timeout)
	defer cancel()
	if err := w.saver.Save(ctx, &s); err != nil {
		w.log.Error("save progression failed", zap.String("name", s.Name), zap.Error(err))
		return
	}
	w.log.Debug("progression saved", zap.String("name", s.Name), zap.Int("level", s.Level))
}
