package usersink_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-layercfg/pkg/activity"
	"github.com/goliatone/go-layercfg/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookNotifyMapsEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()
	tenantID := uuid.New()

	event := activity.BuildSettingEditedEvent(activity.EventInput{
		ActorID:       actorID.String(),
		TenantID:      tenantID.String(),
		Channel:       "layercfg",
		Configuration: "Frame Capture",
		Layer:         "VK_LAYER_KHRONOS_validation",
		Setting:       "report_flags",
		OldValue:      "error",
		NewValue:      "error,warn",
		OccurredAt:    now,
	})

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID || record.UserID != actorID {
		t.Fatalf("expected actor %s got actor=%s user=%s", actorID, record.ActorID, record.UserID)
	}
	if record.TenantID != tenantID {
		t.Fatalf("expected tenant %s got %s", tenantID, record.TenantID)
	}
	if record.Verb != activity.VerbSettingEdited || record.ObjectType != activity.ObjectSetting {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.ObjectID != "Frame Capture/VK_LAYER_KHRONOS_validation/report_flags" {
		t.Fatalf("unexpected object id %q", record.ObjectID)
	}
	if record.Channel != "layercfg" {
		t.Fatalf("expected channel layercfg got %q", record.Channel)
	}
	if record.OccurredAt != now {
		t.Fatalf("expected occurred_at %v got %v", now, record.OccurredAt)
	}
	if record.Data["new_value"] != "error,warn" {
		t.Fatalf("expected metadata passthrough got %v", record.Data["new_value"])
	}
}

func TestHookNotifyUsesDefaultActor(t *testing.T) {
	sink := &recordingSink{}
	actor := uuid.New()
	hook := usersink.Hook{Sink: sink, DefaultActor: actor}

	err := hook.Notify(context.Background(), activity.Event{
		Verb:       activity.VerbConfigurationSaved,
		ActorID:    "not-a-uuid",
		ObjectType: activity.ObjectConfiguration,
		ObjectID:   "Frame Capture",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if sink.records[0].ActorID != actor {
		t.Fatalf("expected default actor %s, got %s", actor, sink.records[0].ActorID)
	}
	if sink.records[0].OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be defaulted")
	}
}

func TestHookNotifySkipsMissingVerb(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	_ = hook.Notify(context.Background(), activity.Event{})

	if len(sink.records) != 0 {
		t.Fatalf("expected no records for empty event, got %d", len(sink.records))
	}
}
