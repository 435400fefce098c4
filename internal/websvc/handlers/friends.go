package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/avvvet/kidzone-services/internal/comm"
	"github.com/avvvet/kidzone-services/internal/websvc/models"
	"github.com/avvvet/kidzone-services/internal/websvc/service"
	"github.com/avvvet/kidzone-services/internal/websvc/store"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	maxSocketMessage = 4096
	chatTimeout      = 10 * time.Second
)

func (h *Handler) ListFriends(w http.ResponseWriter, r *http.Request) {
	h.ok(w, http.StatusOK, "", h.svc.Friends.List())
}

type chatRequest struct {
	Message string            `json:"message"`
	History []models.ChatTurn `json:"history"`
}

func (h *Handler) ChatWithFriend(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, err, "[Handler.ChatWithFriend]")
		return
	}

	reply, err := h.svc.Friends.Chat(r.Context(), chi.URLParam(r, "id"), req.Message, req.History)
	if err != nil {
		h.respondError(w, err, "[Handler.ChatWithFriend]")
		return
	}
	h.ok(w, http.StatusOK, "", reply)
}

// FriendSocket upgrades to a websocket carrying "chat" messages. Each reply is
// sent back as "chat-response"; bad input gets an "error" message and the
// socket stays open.
func (h *Handler) FriendSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	socketId := uuid.New().String()
	h.ws.StoreConnection(socketId, conn)
	log.Infof("New WebSocket connection established: %s", socketId)

	go h.handleConnection(conn, socketId)
}

func (h *Handler) handleConnection(conn *websocket.Conn, socketId string) {
	defer func() {
		log.Infof("Closing WebSocket connection: %s", socketId)
		conn.Close()
		h.ws.HandleDisconnect(socketId)
	}()

	conn.SetReadLimit(maxSocketMessage)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Errorf("WebSocket unexpected close error for socket %s: %v", socketId, err)
			}
			return
		}

		message := &comm.WSMessage{}
		if err := json.Unmarshal(raw, message); err != nil {
			h.sendErrorToClient(socketId, "invalid message format")
			continue
		}

		switch message.Type {
		case "chat":
			h.handleChat(socketId, message)
		default:
			h.sendErrorToClient(socketId, "unknown message type: "+message.Type)
		}
	}
}

func (h *Handler) handleChat(socketId string, msg *comm.WSMessage) {
	var req comm.ChatRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		h.sendErrorToClient(socketId, "malformed chat payload")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), chatTimeout)
	defer cancel()

	reply, err := h.svc.Friends.Chat(ctx, req.FriendID, req.Message, h.ws.History(socketId))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			h.sendErrorToClient(socketId, "unknown friend")
		case errors.Is(err, service.ErrInvalidInput):
			h.sendErrorToClient(socketId, err.Error())
		default:
			log.Errorf("[Handler.handleChat] %s", err)
			h.sendErrorToClient(socketId, "internal error")
		}
		return
	}

	h.ws.Remember(socketId,
		models.ChatTurn{Role: "user", Content: req.Message},
		models.ChatTurn{Role: "assistant", Content: reply.Reply},
	)

	payload, err := comm.Envelope("chat-response", comm.ChatResponse{
		FriendID: reply.FriendID,
		Reply:    reply.Reply,
		Source:   reply.Source,
	}, "")
	if err != nil {
		log.Errorf("Failed to marshal chat response: %v", err)
		return
	}
	if err := h.ws.Send(socketId, payload); err != nil {
		log.Warnf("Failed to send chat response to %s: %v", socketId, err)
	}
}

func (h *Handler) sendErrorToClient(socketId string, errorMsg string) {
	payload, err := comm.Envelope("error", comm.ErrorData{Error: errorMsg}, "")
	if err != nil {
		return
	}
	if err := h.ws.Send(socketId, payload); err != nil {
		log.Errorf("Failed to send error message to client: %v", err)
	}
}
