package Realtime

import (
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub *Subscription) ChangeEvent {
	t.Helper()
	select {
	case event, ok := <-sub.Events():
		require.True(t, ok, "subscription closed")
		return event
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
	return ChangeEvent{}
}

func assertNoEvent(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case event := <-sub.Events():
		t.Fatalf("unexpected event %+v", event)
	default:
	}
}

func TestFilterMatches(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		event  ChangeEvent
		want   bool
	}{
		{name: "empty filter", filter: Filter{}, event: ChangeEvent{Table: TableTasks, RowID: 1}, want: true},
		{name: "table match", filter: Filter{Table: TableTasks}, event: ChangeEvent{Table: TableTasks}, want: true},
		{name: "table mismatch", filter: Filter{Table: TableTasks}, event: ChangeEvent{Table: TableReviews}, want: false},
		{name: "same employee", filter: Filter{EmployeeID: 3}, event: ChangeEvent{Table: TableEmployeeTasks, EmployeeID: 3}, want: true},
		{name: "other employee", filter: Filter{EmployeeID: 3}, event: ChangeEvent{Table: TableEmployeeTasks, EmployeeID: 4}, want: false},
		{name: "shared row reaches employees", filter: Filter{EmployeeID: 3}, event: ChangeEvent{Table: TableTasks}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(tt.event))
		})
	}
}

func TestHub_DeliversMatchingEvents(t *testing.T) {
	hub := NewHub(logrus.New(), 4)
	mine := hub.Subscribe(Filter{EmployeeID: 1})
	all := hub.Subscribe(Filter{})
	reviews := hub.Subscribe(Filter{Table: TableReviews})

	hub.Publish(ChangeEvent{Table: TableEmployeeTasks, RowID: 10, EmployeeID: 2})
	hub.Publish(ChangeEvent{Table: TableEmployeeTasks, RowID: 11, EmployeeID: 1})

	assert.Equal(t, uint(11), receive(t, mine).RowID)
	assertNoEvent(t, mine)
	assert.Equal(t, uint(10), receive(t, all).RowID)
	assert.Equal(t, uint(11), receive(t, all).RowID)
	assertNoEvent(t, reviews)
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub(logrus.New(), 4)
	sub := hub.Subscribe(Filter{})
	require.Equal(t, 1, hub.Subscribers())

	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.Equal(t, 0, hub.Subscribers())

	hub.Publish(ChangeEvent{Table: TableTasks, RowID: 1})
	_, ok := <-sub.Events()
	assert.False(t, ok, "events channel is closed after unsubscribe")
}

func TestHub_DropsWhenSubscriberIsFull(t *testing.T) {
	logger, hook := test.NewNullLogger()
	hub := NewHub(logger, 1)
	slow := hub.Subscribe(Filter{})
	fast := hub.Subscribe(Filter{})

	hub.Publish(ChangeEvent{Table: TableTasks, RowID: 1})
	receive(t, fast)
	hub.Publish(ChangeEvent{Table: TableTasks, RowID: 2})

	assert.Equal(t, uint(2), receive(t, fast).RowID)
	assert.Equal(t, uint(1), receive(t, slow).RowID)
	assertNoEvent(t, slow)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(nil, 0)
	sub := hub.Subscribe(Filter{})
	hub.Close()

	_, ok := <-sub.Events()
	assert.False(t, ok)
	sub.Unsubscribe()

	late := hub.Subscribe(Filter{})
	_, ok = <-late.Events()
	assert.False(t, ok)
}

func TestHub_ConcurrentUse(t *testing.T) {
	hub := NewHub(nil, 8)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub := hub.Subscribe(Filter{})
			sub.Unsubscribe()
		}()
		go func(row uint) {
			defer wg.Done()
			hub.Publish(ChangeEvent{Table: TableTasks, RowID: row})
		}(uint(i + 1))
	}
	wg.Wait()
	assert.Equal(t, 0, hub.Subscribers())
}

func TestDecodeEvent(t *testing.T) {
	event, err := decodeEvent(`{"table":"employee_tasks","action":"UPDATE","row_id":5,"employee_id":2}`)
	require.NoError(t, err)
	assert.Equal(t, ChangeEvent{Table: TableEmployeeTasks, Action: ActionUpdate, RowID: 5, EmployeeID: 2}, event)

	_, err = decodeEvent(`{"table":""}`)
	assert.Error(t, err)
	_, err = decodeEvent(`not json`)
	assert.Error(t, err)
}
