package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"motomarket/internal/domain/shared/events"
)

var ErrBatchMissing = errors.New("outbox: event batch missing from context")

type EventRecord struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
}

// Outbox receives committed events and relays them on Flush.
type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
	Flush(ctx context.Context) error
}

type EventEncoder interface {
	Encode(ev events.DomainEvent) (EventRecord, error)
}

type JSONEventEncoder struct {
	IDGenerator func() string
}

func (e JSONEventEncoder) Encode(ev events.DomainEvent) (EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, err
	}
	idGen := e.IDGenerator
	if idGen == nil {
		idGen = uuid.NewString
	}
	return EventRecord{
		ID:         idGen(),
		Name:       ev.EventName(),
		Payload:    payload,
		OccurredAt: ev.OccurredAt().UTC(),
		Aggregate:  ev.AggregateID(),
		Headers:    map[string]string{},
	}, nil
}

// Batch buffers the events of one command until its transaction commits.
type Batch struct {
	mu      sync.Mutex
	records []EventRecord
}

func (b *Batch) Add(_ context.Context, rec EventRecord) error {
	b.mu.Lock()
	b.records = append(b.records, rec)
	b.mu.Unlock()
	return nil
}

func (b *Batch) Records() []EventRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]EventRecord, len(b.records))
	copy(out, b.records)
	return out
}

type batchKey struct{}

func ContextWithBatch(ctx context.Context) (context.Context, *Batch) {
	batch := &Batch{}
	return context.WithValue(ctx, batchKey{}, batch), batch
}

func BatchFromContext(ctx context.Context) (*Batch, bool) {
	batch, ok := ctx.Value(batchKey{}).(*Batch)
	return batch, ok && batch != nil
}

// Record encodes evs into the batch bound to ctx.
func Record(ctx context.Context, encoder EventEncoder, evs []events.DomainEvent) error {
	if len(evs) == 0 {
		return nil
	}
	batch, ok := BatchFromContext(ctx)
	if !ok {
		return ErrBatchMissing
	}
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	for _, ev := range evs {
		rec, err := encoder.Encode(ev)
		if err != nil {
			return err
		}
		if err := batch.Add(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}
