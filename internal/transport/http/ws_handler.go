package http

import (
	"encoding/json"
	"log"
	"net/http"

	"quiz-buzzer-service/internal/app"
	"quiz-buzzer-service/internal/domain"
	"github.com/gorilla/websocket"
)

// DefaultSession is used when a client connects without naming one.
const DefaultSession = "main"

type WSHandler struct {
	service  *app.BuzzerService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.BuzzerService) *WSHandler {
	return &WSHandler{
		service: service,
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

type namePayload struct {
	PlayerID int    `json:"playerId"`
	Name     string `json:"name"`
}

type pressPayload struct {
	PlayerID  int   `json:"playerId"`
	Timestamp int64 `json:"timestamp"`
}

type adjustScorePayload struct {
	PlayerID int `json:"playerId"`
	Delta    int `json:"delta"`
}

type setScorePayload struct {
	PlayerID int `json:"playerId"`
	Score    int `json:"score"`
}

type fromSetPayload struct {
	SetID string `json:"setId"`
	Index int    `json:"index"`
}

type pressNotification struct {
	PlayerID  int   `json:"playerId"`
	Timestamp int64 `json:"timestamp"`
}

type playerNotification struct {
	PlayerID int `json:"playerId"`
}

type scoreNotification struct {
	PlayerID int `json:"playerId"`
	NewScore int `json:"newScore"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the buzzer
// session. Every connected client (admin console, display, buzzer tablet)
// speaks the same protocol; roles differ only in which actions they send.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = DefaultSession
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// The subscription delivers one state snapshot immediately, which is the
	// initial sync for this client; everything after that is broadcast fan-out.
	updates, cancel := h.service.Subscribe(r.Context(), sessionID)
	defer cancel()

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
			case event, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundFromEvent(event):
				case <-closeSignals:
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
		if err := h.dispatch(r, sessionID, inbound, send); err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// dispatch maps one inbound action onto the core. A returned error goes back
// to the requester only; broadcasts happen inside the session.
func (h *WSHandler) dispatch(r *http.Request, sessionID string, inbound inboundMessage, send chan<- outboundMessage[any]) error {
	switch inbound.Type {
	case "setQuestion":
		var payload domain.QuestionData
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return domain.ErrInvalidQuestion
		}
		return h.service.StartQuestion(sessionID, payload)

	case "setQuestionFromSet":
		var payload fromSetPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return err
		}
		return h.service.StartQuestionFromSet(r.Context(), sessionID, payload.SetID, payload.Index)

	case "getQuestionSets":
		infos, err := h.service.QuestionSets(r.Context())
		if err != nil {
			return err
		}
		send <- outboundMessage[any]{Type: "questionSets", Payload: infos}
		return nil

	case "updatePlayerName":
		var payload namePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return err
		}
		return h.service.UpdatePlayerName(sessionID, payload.PlayerID, payload.Name)

	case "setQuizSetting":
		var payload domain.QuizSettingPatch
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return domain.ErrInvalidSetting
		}
		return h.service.MergeSettings(sessionID, payload)

	case "correctAnswer":
		h.service.Judge(sessionID, true)
		return nil

	case "incorrectAnswer":
		h.service.Judge(sessionID, false)
		return nil

	case "endQuiz":
		h.service.EndQuiz(sessionID)
		return nil

	case "pressButton":
		var payload pressPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return err
		}
		return h.service.PressButton(sessionID, payload.PlayerID, payload.Timestamp)

	case "adjustScore":
		var payload adjustScorePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return err
		}
		return h.service.AdjustScore(sessionID, payload.PlayerID, payload.Delta)

	case "setScore":
		var payload setScorePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return err
		}
		return h.service.SetScore(sessionID, payload.PlayerID, payload.Score)

	case "resetAllScores":
		h.service.ResetAllScores(sessionID)
		return nil

	case "setShowHint":
		var show bool
		if err := json.Unmarshal(inbound.Payload, &show); err != nil {
			return err
		}
		h.service.SetShowHint(sessionID, show)
		return nil

	case "setShowAnswer":
		var show bool
		if err := json.Unmarshal(inbound.Payload, &show); err != nil {
			return err
		}
		h.service.SetShowAnswer(sessionID, show)
		return nil

	default:
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		return nil
	}
}

func outboundFromEvent(event domain.Event) outboundMessage[any] {
	switch event.Type {
	case domain.EventState:
		return outboundMessage[any]{Type: "state", Payload: event.State}
	case domain.EventButtonPressed:
		return outboundMessage[any]{Type: "buttonPressed", Payload: pressNotification{
			PlayerID:  event.PlayerID,
			Timestamp: event.Timestamp,
		}}
	case domain.EventCorrectAnswer, domain.EventIncorrectAnswer:
		return outboundMessage[any]{Type: string(event.Type), Payload: playerNotification{PlayerID: event.PlayerID}}
	case domain.EventScoreUpdated:
		return outboundMessage[any]{Type: "scoreUpdated", Payload: scoreNotification{
			PlayerID: event.PlayerID,
			NewScore: event.NewScore,
		}}
	default:
		return outboundMessage[any]{Type: string(event.Type), Payload: event}
	}
}
