package Controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"Onboarding/Models"
	"Onboarding/Progress"
	"Onboarding/Realtime"
	"Onboarding/Session"
)

const (
	wsEmployeeKey = "ws_employee_id"
	wsUserKey     = "ws_user_id"
	wsWriteWait   = 10 * time.Second
)

// RealtimeController streams onboarding changes over websockets
type RealtimeController struct {
	DB     *gorm.DB
	Hub    *Realtime.Hub
	Logger logrus.FieldLogger
	Now    func() time.Time
}

func NewRealtimeController(db *gorm.DB, hub *Realtime.Hub, logger logrus.FieldLogger, now func() time.Time) *RealtimeController {
	return &RealtimeController{DB: db, Hub: hub, Logger: logger, Now: now}
}

// Upgrade lets websocket handshakes through and copies the session identity
// into locals the connection can still read.
func (c *RealtimeController) Upgrade(ctx *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}
	if session := Session.From(ctx); session != nil {
		ctx.Locals(wsUserKey, session.User.ID)
		if session.Employee != nil {
			ctx.Locals(wsEmployeeKey, session.Employee.ID)
		}
	}
	return ctx.Next()
}

// Progress pushes a fresh progress snapshot on connect and after every change
// to the employee's rows.
func (c *RealtimeController) Progress() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		employeeID, _ := conn.Locals(wsEmployeeKey).(uint)
		logger := c.Logger.WithField("employee_id", employeeID)
		if employeeID == 0 {
			c.closeWith(conn, "Onboarding details not submitted yet")
			return
		}

		sub := c.Hub.Subscribe(Realtime.Filter{EmployeeID: employeeID})
		defer sub.Unsubscribe()

		load := func() (interface{}, error) {
			return c.snapshot(employeeID)
		}
		if err := stream(readerDone(conn), sub.Events(), load, c.send(conn)); err != nil {
			logger.WithError(err).Debug("progress stream closed")
		}
	})
}

// Changes forwards raw change events to admins.
func (c *RealtimeController) Changes() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		sub := c.Hub.Subscribe(Realtime.Filter{Table: conn.Query("table")})
		defer sub.Unsubscribe()

		done := readerDone(conn)
		send := c.send(conn)
		for {
			select {
			case <-done:
				return
			case event, ok := <-sub.Events():
				if !ok {
					return
				}
				if err := send(event); err != nil {
					c.Logger.WithError(err).Debug("change stream closed")
					return
				}
			}
		}
	})
}

func (c *RealtimeController) snapshot(employeeID uint) (Progress.Snapshot, error) {
	employee, err := Models.GetEmployee(c.DB, employeeID)
	if err != nil {
		return Progress.Snapshot{}, err
	}
	tasks, err := Models.GetEmployeeTasks(c.DB, employeeID)
	if err != nil {
		return Progress.Snapshot{}, err
	}
	return Progress.NewSnapshot(*employee, tasks, c.Now()), nil
}

func (c *RealtimeController) send(conn *websocket.Conn) func(interface{}) error {
	return func(v interface{}) error {
		if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
			return err
		}
		return conn.WriteJSON(v)
	}
}

func (c *RealtimeController) closeWith(conn *websocket.Conn, reason string) {
	message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	if err := conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(wsWriteWait)); err != nil {
		c.Logger.WithError(err).Debug("failed to close websocket")
	}
}

// readerDone drains client frames and closes the channel once the peer goes
// away.
func readerDone(conn *websocket.Conn) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return done
}

// stream sends load() once, then again after each batch of events, until done
// closes, the events channel closes or a send fails. Events queued while a
// snapshot is built collapse into one reload.
func stream(done <-chan struct{}, events <-chan Realtime.ChangeEvent, load func() (interface{}, error), send func(interface{}) error) error {
	push := func() error {
		value, err := load()
		if err != nil {
			return err
		}
		return send(value)
	}

	if err := push(); err != nil {
		return err
	}
	for {
		select {
		case <-done:
			return nil
		case _, ok := <-events:
			if !ok {
				return nil
			}
		drain:
			for {
				select {
				case _, ok := <-events:
					if !ok {
						return nil
					}
				default:
					break drain
				}
			}
			if err := push(); err != nil {
				return err
			}
		}
	}
}
