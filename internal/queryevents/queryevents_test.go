package queryevents

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
)

func TestPublish_SendsJSONToTopic(t *testing.T) {
	prod := mocks.NewAsyncProducer(t, mocks.NewTestConfig())
	prod.ExpectInputWithMessageCheckerFunctionAndSucceed(func(m *sarama.ProducerMessage) error {
		if m.Topic != "crs-queries" {
			return fmt.Errorf("topic=%s", m.Topic)
		}
		raw, err := m.Value.Encode()
		if err != nil {
			return err
		}
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			return err
		}
		if ev.Op != "and" || ev.Rows != 7 || len(ev.Geometries) != 1 || ev.TS.IsZero() {
			return fmt.Errorf("event=%+v", ev)
		}
		return nil
	})

	p := newWithProducer(prod, "crs-queries", 4, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if !p.Publish(Event{CatalogVersion: "9-00ff", Kind: "point", Op: "and", Geometries: []string{"latlon point 34.2,-83.8"}, Rows: 7}) {
		t.Fatalf("publish dropped")
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestPublish_AfterCloseIsDropped(t *testing.T) {
	prod := mocks.NewAsyncProducer(t, mocks.NewTestConfig())
	p := newWithProducer(prod, "crs-queries", 4, nil)
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if p.Publish(Event{Op: "or"}) {
		t.Fatalf("publish after close must report a drop")
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
