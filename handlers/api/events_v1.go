package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/donovanhide/eventsource"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/curvewatch/curve"
	"github.com/ethpandaops/curvewatch/services"
)

const noticesChannel = "notices"

// streamMessage is a server sent event carrying a json payload
type streamMessage struct {
	id    string
	event string
	data  string
}

func (m *streamMessage) Id() string    { return m.id }
func (m *streamMessage) Event() string { return m.event }
func (m *streamMessage) Data() string  { return m.data }

func newStreamMessage(id string, event string, payload interface{}) (*streamMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &streamMessage{
		id:    id,
		event: event,
		data:  string(data),
	}, nil
}

// eventStreams fans service events out to the sse clients. Each token channel holds a single
// service subscription for as long as at least one client is connected.
type eventStreams struct {
	server *eventsource.Server

	mutex    sync.Mutex
	channels map[string]*streamChannel

	noticesOnce sync.Once
}

type streamChannel struct {
	clients     int
	unsubscribe func()
}

var (
	globalEventStreams     *eventStreams
	globalEventStreamsOnce sync.Once
)

func getEventStreams() *eventStreams {
	globalEventStreamsOnce.Do(func() {
		globalEventStreams = &eventStreams{
			server:   eventsource.NewServer(),
			channels: map[string]*streamChannel{},
		}
	})
	return globalEventStreams
}

func (s *eventStreams) join(cs *services.CurveService, address string) (string, error) {
	token, err := curve.ParseAddress(address)
	if err != nil {
		return "", err
	}
	channel := strings.ToLower(token.Hex())

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if ch := s.channels[channel]; ch != nil {
		ch.clients++
		return channel, nil
	}

	unsubscribe, err := cs.Subscribe(channel, func(ev *curve.Event) {
		s.publishEvent(channel, ev)
	})
	if err != nil {
		return "", err
	}

	s.channels[channel] = &streamChannel{
		clients:     1,
		unsubscribe: unsubscribe,
	}
	return channel, nil
}

func (s *eventStreams) leave(channel string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ch := s.channels[channel]
	if ch == nil {
		return
	}

	ch.clients--
	if ch.clients <= 0 {
		ch.unsubscribe()
		delete(s.channels, channel)
	}
}

func (s *eventStreams) publishEvent(channel string, ev *curve.Event) {
	msg, err := newStreamMessage(fmt.Sprintf("%v-%v", ev.BlockNumber, ev.LogIndex), string(ev.Name), ev)
	if err != nil {
		logrus.WithError(err).Warnf("failed serializing event for stream %v", channel)
		return
	}

	s.server.Publish([]string{channel}, msg)
}

func (s *eventStreams) startNotices(cs *services.CurveService) {
	s.noticesOnce.Do(func() {
		subscription := cs.SubscribeNotices(100)

		go func() {
			for notice := range subscription.Channel() {
				msg, err := newStreamMessage(fmt.Sprintf("%v", notice.Time.UnixNano()), string(notice.Event), notice)
				if err != nil {
					logrus.WithError(err).Warnf("failed serializing notice for stream")
					continue
				}

				s.server.Publish([]string{noticesChannel}, msg)
			}
		}()
	})
}

// ApiTokenEventsV1 streams the decoded factory events of a token as server sent events.
// The token snapshot is kept tracked while the stream is open.
// @Summary Stream token events
// @Tags Events
// @Produce  text/event-stream
// @Param  address path string true "Token address"
// @Success 200 {string} string "Event stream"
// @Failure 400 {object} ApiResponse "Invalid address"
// @Router /api/v1/token/{address}/events [get]
func ApiTokenEventsV1(w http.ResponseWriter, r *http.Request) {
	if !checkCallLimit(w, r, 1) {
		return
	}
	cs := getCurveService(w, r)
	if cs == nil {
		return
	}

	vars := mux.Vars(r)
	release, err := cs.Watch(vars["address"])
	if err != nil {
		sendCurveErrorResponse(w, r.URL.String(), err)
		return
	}
	defer release()

	streams := getEventStreams()
	channel, err := streams.join(cs, vars["address"])
	if err != nil {
		sendCurveErrorResponse(w, r.URL.String(), err)
		return
	}
	defer streams.leave(channel)

	streams.server.Handler(channel)(w, r)
}

// ApiNoticesV1 streams the notices of all factory events as server sent events
// @Summary Stream trade notices
// @Tags Events
// @Produce  text/event-stream
// @Success 200 {string} string "Event stream"
// @Router /api/v1/notices [get]
func ApiNoticesV1(w http.ResponseWriter, r *http.Request) {
	if !checkCallLimit(w, r, 1) {
		return
	}
	cs := getCurveService(w, r)
	if cs == nil {
		return
	}

	streams := getEventStreams()
	streams.startNotices(cs)
	streams.server.Handler(noticesChannel)(w, r)
}
