package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"campus-maintenance-system/pkg/auth"
	"campus-maintenance-system/pkg/middleware"
	"campus-maintenance-system/pkg/response"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512
)

type server struct {
	hub      *Hub
	tokens   middleware.TokenVerifier
	upgrader websocket.Upgrader
}

func newServer(hub *Hub, tokens middleware.TokenVerifier, origins []string) *server {
	allowed := map[string]bool{}
	for _, o := range origins {
		allowed[o] = true
	}
	return &server{
		hub:    hub,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// routes keeps the streaming endpoints outside the logging and metrics
// wrappers, which would otherwise hold the connection as one long request.
func (s *server) routes() http.Handler {
	api := http.NewServeMux()
	api.Handle("GET /presence/{userId}", middleware.Authenticate(s.tokens)(http.HandlerFunc(s.presence)))
	api.HandleFunc("GET /health", s.health)
	api.Handle("GET /metrics", middleware.GetMetricsHandler())

	root := http.NewServeMux()
	root.Handle("/ws", middleware.TraceMiddleware(http.HandlerFunc(s.serveWS)))
	root.Handle("/notifications/subscribe", middleware.TraceMiddleware(http.HandlerFunc(s.subscribe)))
	root.Handle("/", middleware.Chain(api,
		middleware.TraceMiddleware,
		middleware.MetricsMiddleware,
		middleware.LoggerMiddleware,
	))
	return root
}

// authenticate accepts the token from the Authorization header or, since
// browsers cannot set headers on EventSource and WebSocket, ?token=.
func (s *server) authenticate(r *http.Request) (auth.Principal, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = middleware.BearerToken(r.Header.Get("Authorization"))
	}
	if token == "" {
		return auth.Principal{}, fmt.Errorf("missing token")
	}
	return s.tokens.Verify(token)
}

func (s *server) serveWS(w http.ResponseWriter, r *http.Request) {
	p, err := s.authenticate(r)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "Unauthorized", err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WARN] WebSocket upgrade failed: %v", err)
		return
	}

	c := newClient(p.UserID)
	s.hub.Register(c)
	go s.writePump(conn, c)
	go s.readPump(conn, c)
}

func (s *server) readPump(conn *websocket.Conn, c *client) {
	defer func() {
		s.hub.Unregister(c)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		s.hub.Touch(c.userID)
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *server) writePump(conn *websocket.Conn, c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// subscribe streams pushes as server-sent events until the client leaves.
func (s *server) subscribe(w http.ResponseWriter, r *http.Request) {
	p, err := s.authenticate(r)
	if err != nil {
		log.Printf("[WARN] Invalid token attempt: %v", err)
		response.Error(w, http.StatusUnauthorized, "Unauthorized", err.Error())
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		response.Error(w, http.StatusInternalServerError, "Streaming unsupported", "")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	c := newClient(p.UserID)
	s.hub.Register(c)
	defer s.hub.Unregister(c)

	hello, _ := json.Marshal(Push{Type: "connected", Data: map[string]string{"message": "Connection established"}})
	fmt.Fprintf(w, "data: %s\n\n", hello)
	flusher.Flush()

	keepAlive := time.NewTicker(pingPeriod)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		case <-keepAlive.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
			s.hub.Touch(c.userID)
		}
	}
}

func (s *server) presence(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if s.hub.presence == nil {
		response.Error(w, http.StatusServiceUnavailable, "Presence tracking is disabled", "")
		return
	}
	online, err := s.hub.presence.IsOnline(r.Context(), userID)
	if err != nil {
		middleware.LogErrorCtx(r.Context(), "Failed to read presence", err)
		response.Error(w, http.StatusInternalServerError, "Failed to read presence", err.Error())
		return
	}
	response.Success(w, http.StatusOK, "Presence fetched", map[string]interface{}{
		"userId": userID,
		"online": online,
	})
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"status":            "UP",
		"service":           "notification-service",
		"connected_clients": s.hub.Count(),
	})
}
