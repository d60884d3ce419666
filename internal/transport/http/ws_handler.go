package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"quizsphere/internal/app"
	"quizsphere/internal/domain"
)

// WSHandler runs one whole assessment per websocket connection.
type WSHandler struct {
	service  *app.AssessmentService
	format   app.ReportFormat
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.AssessmentService, format app.ReportFormat) *WSHandler {
	return &WSHandler{
		service: service,
		format:  format,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type reportPayload struct {
	FileName string        `json:"fileName"`
	Report   domain.Report `json:"report"`
}

// ServeWS upgrades the request, starts a session for the participant query
// parameter and streams a state message after every change and tick. Once the
// session is submitted, by the participant or the timer, a report message
// follows. Closing the connection before submission abandons the session.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	participant := r.URL.Query().Get("participant")
	if participant == "" {
		http.Error(w, "missing participant", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// the session outlives individual requests; only an explicit abandon ends it early
	ctx := context.WithoutCancel(r.Context())

	started, err := h.service.Begin(ctx, participant)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	sessionID := started.SessionID

	updates, cancel, err := h.service.Subscribe(ctx, sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()
	defer func() {
		// no-op once reported
		_ = h.service.Abandon(ctx, sessionID)
	}()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: update}:
				case <-closeSignals:
					return
				}
				if update.Phase == domain.PhaseSubmitted {
					h.sendReport(ctx, sessionID, send, closeSignals)
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.dispatch(ctx, sessionID, inbound); err != nil {
			select {
			case send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}:
			case <-updatesDone:
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) sendReport(ctx context.Context, sessionID string, send chan<- outboundMessage[any], closeSignals <-chan struct{}) {
	handedOff, err := h.service.HandedOff(ctx, sessionID)
	if err != nil {
		return
	}
	select {
	case <-handedOff:
	case <-closeSignals:
		return
	}

	var msg outboundMessage[any]
	report, err := h.service.Report(ctx, sessionID)
	if err != nil {
		msg = outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
	} else {
		msg = outboundMessage[any]{Type: "report", Payload: reportPayload{
			FileName: app.ReportFileName(report.Participant, report.CompletedAt, h.format),
			Report:   report,
		}}
	}
	select {
	case send <- msg:
	case <-closeSignals:
	}
}

func (h *WSHandler) dispatch(ctx context.Context, sessionID string, inbound inboundMessage) error {
	var err error
	switch inbound.Type {
	case "answer":
		var payload answerRequest
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errInvalidPayload
		}
		_, err = h.service.Answer(ctx, sessionID, payload.Choice)
	case "navigate":
		var payload navigateRequest
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Index == nil {
			return errInvalidPayload
		}
		_, err = h.service.Navigate(ctx, sessionID, *payload.Index)
	case "next":
		_, err = h.service.Next(ctx, sessionID)
	case "previous":
		_, err = h.service.Previous(ctx, sessionID)
	case "submit":
		_, err = h.service.Submit(ctx, sessionID)
	default:
		return errUnsupported
	}
	return err
}

type wsError string

func (e wsError) Error() string { return string(e) }

const (
	errInvalidPayload = wsError("invalid payload")
	errUnsupported    = wsError("unsupported message type")
)
