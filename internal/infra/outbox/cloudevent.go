package outbox

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	appoutbox "motomarket/internal/app/outbox"
)

const (
	ContentType = "application/cloudevents+json"
	specVersion = "1.0"
	typeSuffix  = ".v1"
)

var ErrInvalidEnvelope = errors.New("outbox: invalid cloudevent envelope")

// Envelope is the structured-mode CloudEvent published for each record. The
// envelope id is the outbox record id so consumers can deduplicate.
type Envelope struct {
	SpecVersion     string          `json:"specversion"`
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	Source          string          `json:"source"`
	Subject         string          `json:"subject,omitempty"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	TraceParent     string          `json:"traceparent,omitempty"`
	Data            json.RawMessage `json:"data"`
}

func EncodeEnvelope(rec appoutbox.EventRecord, source string) ([]byte, error) {
	if !json.Valid(rec.Payload) {
		return nil, ErrInvalidEnvelope
	}
	env := Envelope{
		SpecVersion:     specVersion,
		ID:              rec.ID,
		Type:            rec.Name + typeSuffix,
		Source:          source,
		Subject:         rec.Aggregate,
		Time:            rec.OccurredAt.UTC(),
		DataContentType: "application/json",
		TraceParent:     rec.Headers["traceparent"],
		Data:            json.RawMessage(rec.Payload),
	}
	return json.Marshal(env)
}

// DecodeEnvelope turns a published envelope back into the record it was
// built from.
func DecodeEnvelope(payload []byte) (appoutbox.EventRecord, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return appoutbox.EventRecord{}, err
	}
	if env.ID == "" || !strings.HasSuffix(env.Type, typeSuffix) {
		return appoutbox.EventRecord{}, ErrInvalidEnvelope
	}
	rec := appoutbox.EventRecord{
		ID:         env.ID,
		Name:       strings.TrimSuffix(env.Type, typeSuffix),
		Payload:    []byte(env.Data),
		OccurredAt: env.Time,
		Aggregate:  env.Subject,
		Headers:    map[string]string{},
	}
	if env.TraceParent != "" {
		rec.Headers["traceparent"] = env.TraceParent
	}
	return rec, nil
}

// TopicFor maps an event name such as "listings.published" to
// "<prefix>listings.events.v1".
func TopicFor(prefix, name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	return prefix + base + ".events" + typeSuffix
}
