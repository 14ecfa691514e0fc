package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"

	"github.com/mohammed-shakir/crsfinder/internal/invalidation"
)

func TestPublish_KeyedByCatalogWithDefaults(t *testing.T) {
	prod := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	prod.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(m *sarama.ProducerMessage) error {
		key, _ := m.Key.Encode()
		if string(key) != "projpicker" || m.Topic != "crs-catalog" {
			return fmt.Errorf("key=%s topic=%s", key, m.Topic)
		}
		raw, _ := m.Value.Encode()
		var ev invalidation.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			return err
		}
		if ev.Op != invalidation.OpReload || ev.Version != "9-00ff" || ev.ID == "" || ev.TS.IsZero() {
			return fmt.Errorf("event=%+v", ev)
		}
		return nil
	})
	p := newWithProducer(prod, "crs-catalog", nil)
	t.Cleanup(func() { _ = p.Close() })

	ev, err := p.Publish(context.Background(), invalidation.Event{Op: invalidation.OpReload, Catalog: "projpicker", Version: "9-00ff"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if ev.ID == "" {
		t.Fatalf("returned event lacks id")
	}
}

func TestPublish_RejectsInvalidAndSurfacesSendErrors(t *testing.T) {
	prod := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	p := newWithProducer(prod, "crs-catalog", nil)
	t.Cleanup(func() { _ = p.Close() })

	if _, err := p.Publish(context.Background(), invalidation.Event{Op: "bogus", Catalog: "projpicker"}); err == nil {
		t.Fatalf("expected validation error")
	}

	boom := errors.New("broker down")
	prod.ExpectSendMessageAndFail(boom)
	if _, err := p.Publish(context.Background(), invalidation.Event{Op: invalidation.OpPurge, Catalog: "projpicker"}); !errors.Is(err, boom) {
		t.Fatalf("want broker error, got %v", err)
	}
}

func TestSplit(t *testing.T) {
	if got := Split(" a:1,,b:2 "); len(got) != 2 || got[0] != "a:1" || got[1] != "b:2" {
		t.Fatalf("Split=%v", got)
	}
}
