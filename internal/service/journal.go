package service

import (
	"context"
	"time"

	"phrasedesk/internal/model"
	"phrasedesk/internal/realtime"
	"phrasedesk/internal/repository"
)

// journal writes the activity row that accompanies a mutation and queues the
// change events to publish once the surrounding transaction has committed.
type journal struct {
	logs repository.ActivityRepository
	pub  realtime.Publisher
	now  func() time.Time
}

func newJournal(logs repository.ActivityRepository, pub realtime.Publisher) journal {
	if pub == nil {
		pub = realtime.Discard{}
	}
	return journal{logs: logs, pub: pub, now: time.Now}
}

// batch collects events for one unit of work
type batch struct {
	j      journal
	events []realtime.Event
}

func (j journal) begin() *batch {
	return &batch{j: j}
}

// log writes an activity row inside ctx (usually a transaction) and queues its
// INSERT event.
func (b *batch) log(ctx context.Context, username string, action model.Action, detail string) error {
	entry := &model.LogEntry{
		Username:  username,
		Action:    action,
		Detail:    detail,
		CreatedAt: b.j.now(),
	}
	if err := b.j.logs.Log(ctx, entry); err != nil {
		return err
	}
	b.add(realtime.TableActivity, realtime.Insert, entry)
	return nil
}

func (b *batch) add(table string, typ realtime.EventType, record interface{}) {
	b.events = append(b.events, realtime.Event{Table: table, Type: typ, Record: record, At: b.j.now()})
}

// publish sends the queued events, in order
func (b *batch) publish() {
	for _, ev := range b.events {
		b.j.pub.Publish(ev)
	}
	b.events = nil
}
