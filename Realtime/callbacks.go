package Realtime

import (
	"fmt"
	"reflect"
	"time"

	"gorm.io/gorm"
)

// Keyed is implemented by models whose changes are published.
type Keyed interface {
	RealtimeKey() (rowID, employeeID uint)
}

// Sink receives the events produced by a statement. tx is the session that
// ran it, so a sink can act inside the same transaction.
type Sink func(tx *gorm.DB, event ChangeEvent)

// HubSink publishes straight to a local hub.
func HubSink(hub *Hub) Sink {
	return func(_ *gorm.DB, event ChangeEvent) {
		hub.Publish(event)
	}
}

// RegisterCallbacks publishes an event for every row of a tracked table that a
// create, update or delete touches.
func RegisterCallbacks(db *gorm.DB, sink Sink) error {
	if err := db.Callback().Create().After("gorm:create").Register("realtime:create", changeCallback(sink, ActionInsert)); err != nil {
		return fmt.Errorf("failed to register create callback: %w", err)
	}
	if err := db.Callback().Update().After("gorm:update").Register("realtime:update", changeCallback(sink, ActionUpdate)); err != nil {
		return fmt.Errorf("failed to register update callback: %w", err)
	}
	if err := db.Callback().Delete().After("gorm:delete").Register("realtime:delete", changeCallback(sink, ActionDelete)); err != nil {
		return fmt.Errorf("failed to register delete callback: %w", err)
	}
	return nil
}

func changeCallback(sink Sink, action Action) func(*gorm.DB) {
	return func(tx *gorm.DB) {
		if tx.Error != nil || tx.RowsAffected == 0 || tx.Statement.Schema == nil {
			return
		}
		table := tx.Statement.Schema.Table
		if !trackedTables[table] {
			return
		}

		at := time.Now()
		value := tx.Statement.ReflectValue
		if value.Kind() == reflect.Map && tx.Statement.Model != nil {
			value = reflect.Indirect(reflect.ValueOf(tx.Statement.Model))
		}
		switch value.Kind() {
		case reflect.Slice, reflect.Array:
			for i := 0; i < value.Len(); i++ {
				emit(tx, sink, table, action, value.Index(i), at)
			}
		case reflect.Struct:
			emit(tx, sink, table, action, value, at)
		}
	}
}

func emit(tx *gorm.DB, sink Sink, table string, action Action, value reflect.Value, at time.Time) {
	if value.Kind() != reflect.Ptr {
		if !value.CanAddr() {
			return
		}
		value = value.Addr()
	}
	keyed, ok := value.Interface().(Keyed)
	if !ok {
		return
	}
	rowID, employeeID := keyed.RealtimeKey()
	if rowID == 0 {
		return
	}
	sink(tx, ChangeEvent{
		Table:      table,
		Action:     action,
		RowID:      rowID,
		EmployeeID: employeeID,
		At:         at,
	})
}
