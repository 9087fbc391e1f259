// Package websocket relays presence records between socket.io clients and the
// presence transport, so socket, HTTP and stream participants see each other.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"ideation-workspace/core"
	apipresence "ideation-workspace/handlers/api/presence"
	"ideation-workspace/metrics"
	"ideation-workspace/presence"

	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io/v2/types"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

const (
	EventJoinRoom       = "join-room"
	EventPresence       = "presence"
	EventPresenceUpdate = "presence-update"
	EventPresenceLeave  = "presence-leave"
)

var errThrottled = errors.New("cursor update throttled")

type ackInvoker func(payload map[string]any, err error)

// Emitter delivers one record to every socket in a room.
type Emitter func(room, event string, rec presence.Record)

// Relay owns one transport subscription per room with at least one socket
// and tracks which identity each socket announced in each room.
type Relay struct {
	svc  *apipresence.Service
	emit Emitter

	mu      sync.Mutex
	rooms   map[string]*roomRelay
	members map[socketio.SocketId]map[string]string
}

type roomRelay struct {
	cancel  context.CancelFunc
	sockets int
}

func NewRelay(svc *apipresence.Service, emit Emitter) *Relay {
	return &Relay{
		svc:     svc,
		emit:    emit,
		rooms:   make(map[string]*roomRelay),
		members: make(map[socketio.SocketId]map[string]string),
	}
}

// acquire counts a socket into room and starts forwarding the room's channel
// on first use.
func (r *Relay) acquire(room string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rr, ok := r.rooms[room]; ok {
		rr.sockets++
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	records, err := r.svc.Transport.Subscribe(ctx, presence.ChannelName(room))
	if err != nil {
		cancel()
		return err
	}
	r.rooms[room] = &roomRelay{cancel: cancel, sockets: 1}

	go func() {
		for rec := range records {
			event := EventPresenceUpdate
			if rec.Left {
				event = EventPresenceLeave
			}
			r.emit(room, event, rec)
		}
	}()
	logrus.WithField("room", room).Debug("Presence relay started")
	return nil
}

func (r *Relay) release(room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rr, ok := r.rooms[room]
	if !ok {
		return
	}
	rr.sockets--
	if rr.sockets <= 0 {
		rr.cancel()
		delete(r.rooms, room)
		logrus.WithField("room", room).Debug("Presence relay stopped")
	}
}

// Rooms reports how many sockets each relayed room holds.
func (r *Relay) Rooms() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]int, len(r.rooms))
	for room, rr := range r.rooms {
		out[room] = rr.sockets
	}
	return out
}

// Join validates room, counts the socket in and starts the relay if needed.
func (r *Relay) Join(id socketio.SocketId, room string) error {
	if err := core.ValidateID(room); err != nil {
		return err
	}

	r.mu.Lock()
	joined := hasKey(r.members[id], room)
	r.mu.Unlock()
	if joined {
		return nil
	}

	if err := r.acquire(room); err != nil {
		return err
	}
	r.mu.Lock()
	if r.members[id] == nil {
		r.members[id] = make(map[string]string)
	}
	r.members[id][room] = ""
	r.mu.Unlock()
	return nil
}

func hasKey(m map[string]string, k string) bool {
	_, ok := m[k]
	return ok
}

// Publish accepts a record from a socket that joined room. The roster is
// updated and the record fans out through the transport.
func (r *Relay) Publish(ctx context.Context, id socketio.SocketId, room string, rec presence.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	if !hasKey(r.members[id], room) {
		r.mu.Unlock()
		return fmt.Errorf("socket has not joined %s", room)
	}
	r.members[id][room] = rec.Identity
	r.mu.Unlock()

	if rec.Color == "" {
		rec.Color = presence.ColorFor(rec.Identity)
	}
	if rec.Cursor != nil && !r.svc.Limiters.Allow(rec.Identity) {
		metrics.PresenceMessages.WithLabelValues("socketio", "throttled").Inc()
		return errThrottled
	}

	channel := presence.ChannelName(room)
	r.svc.Roster.Update(channel, rec)
	if err := r.svc.Transport.Publish(ctx, channel, rec); err != nil {
		return err
	}
	metrics.PresenceMessages.WithLabelValues("socketio", "published").Inc()
	return nil
}

// Leave announces the departure of every identity the socket published and
// releases its rooms.
func (r *Relay) Leave(ctx context.Context, id socketio.SocketId) {
	r.mu.Lock()
	rooms := r.members[id]
	delete(r.members, id)
	r.mu.Unlock()

	for room, identity := range rooms {
		if identity != "" {
			channel := presence.ChannelName(room)
			r.svc.Roster.Remove(channel, identity)
			r.svc.Limiters.Forget(identity)
			rec := presence.Record{Identity: identity, Left: true}
			if err := r.svc.Transport.Publish(ctx, channel, rec); err != nil {
				logrus.WithError(err).WithField("room", room).Warn("Failed to publish presence leave")
			}
		}
		r.release(room)
	}
}

// SetupSocketIO builds the socket.io server and wires its events to a relay
// over svc.
func SetupSocketIO(svc *apipresence.Service) (*socketio.Server, *Relay) {
	opts := socketio.DefaultServerOptions()
	opts.SetMaxHttpBufferSize(5000000)
	opts.SetPath("/socket.io")
	opts.SetAllowEIO3(true)
	opts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})
	ioo := socketio.NewServer(nil, opts)

	relay := NewRelay(svc, func(room, event string, rec presence.Record) {
		if err := ioo.To(socketio.Room(room)).Volatile().Emit(event, rec); err != nil {
			logrus.WithError(err).WithField("room", room).Debug("Failed to emit presence")
		}
	})

	//nolint:errcheck // Socket.IO event handlers do not return useful errors
	ioo.On("connection", func(clients ...any) {
		socket, ok := clients[0].(*socketio.Socket)
		if !ok {
			return
		}
		me := socket.Id()
		log := logrus.WithField("socket", me)

		socket.On(EventJoinRoom, func(datas ...any) {
			ack, args := extractAck(datas)
			roomID, _ := firstString(args)
			if err := relay.Join(me, roomID); err != nil {
				respondWithAck(ack, map[string]any{"status": "error", "error": err.Error()}, err)
				return
			}
			room := socketio.Room(roomID)
			socket.Join(room)
			log.WithField("room", roomID).Debug("Socket joined room")

			ioo.In(room).FetchSockets()(func(users []*socketio.RemoteSocket, fetchErr error) {
				if fetchErr != nil {
					respondWithAck(ack, map[string]any{"status": "error", "error": fetchErr.Error()}, fetchErr)
					return
				}
				respondWithAck(ack, map[string]any{
					"status":       "ok",
					"user_count":   len(users),
					"participants": svc.Roster.List(presence.ChannelName(roomID)),
				}, nil)
			})
		})

		socket.On(EventPresence, func(datas ...any) {
			ack, args := extractAck(datas)
			if len(args) < 2 {
				err := fmt.Errorf("room id and record are required")
				respondWithAck(ack, map[string]any{"status": "error", "error": err.Error()}, err)
				return
			}
			roomID, _ := args[0].(string)
			rec, err := decodeRecord(args[1])
			if err == nil {
				err = relay.Publish(context.Background(), me, roomID, rec)
			}
			if err != nil {
				if !errors.Is(err, errThrottled) {
					log.WithError(err).Debug("Rejected presence record")
				}
				respondWithAck(ack, map[string]any{"status": "error", "error": err.Error()}, err)
				return
			}
			respondWithAck(ack, map[string]any{"status": "ok"}, nil)
		})

		socket.On("disconnecting", func(datas ...any) {
			relay.Leave(context.Background(), me)
		})

		socket.On("disconnect", func(datas ...any) {
			socket.RemoveAllListeners("")
		})
	})

	return ioo, relay
}

func firstString(args []any) (string, bool) {
	if len(args) == 0 {
		return "", false
	}
	s, ok := args[0].(string)
	return s, ok
}

// decodeRecord converts a decoded socket.io payload back into a record.
func decodeRecord(v any) (presence.Record, error) {
	var rec presence.Record
	data, err := json.Marshal(v)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("%w: %v", core.ErrInvalidItem, err)
	}
	return rec, nil
}

// extractAck splits a trailing acknowledgement callback off the event arguments.
func extractAck(datas []any) (ackInvoker, []any) {
	if len(datas) == 0 {
		return nil, datas
	}
	if ack := wrapAck(datas[len(datas)-1]); ack != nil {
		return ack, datas[:len(datas)-1]
	}
	return nil, datas
}

// wrapAck adapts whichever callback shape the socket.io version hands us.
func wrapAck(candidate any) ackInvoker {
	switch fn := candidate.(type) {
	case nil:
		return nil
	case func([]any, error):
		return func(payload map[string]any, err error) { fn([]any{payload}, err) }
	case func(...any):
		return func(payload map[string]any, _ error) { fn(payload) }
	}

	value := reflect.ValueOf(candidate)
	if value.Kind() != reflect.Func {
		return nil
	}
	typ := value.Type()
	return func(payload map[string]any, err error) {
		args := make([]reflect.Value, typ.NumIn())
		for i := range args {
			var v any
			switch {
			case i == 0:
				v = payload
			case i == 1 && err != nil:
				v = err
			}
			args[i] = coerce(v, typ.In(i))
		}
		value.Call(args)
	}
}

func coerce(v any, target reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(target)
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.Type().AssignableTo(target):
		return rv
	case target.Kind() == reflect.Slice && target.Elem().Kind() == reflect.Interface:
		s := reflect.MakeSlice(target, 1, 1)
		s.Index(0).Set(rv)
		return s
	}
	return reflect.Zero(target)
}

func respondWithAck(ack ackInvoker, payload map[string]any, err error) {
	if ack != nil {
		ack(payload, err)
	}
}
