// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/sensortag_ahrs/internal/config"
	"github.com/relabs-tech/sensortag_ahrs/internal/orientation"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

const wsWriteTimeout = 2 * time.Second

// poseServer keeps the latest pose and fans updates out to websocket clients.
type poseServer struct {
	mu       sync.RWMutex
	lastPose orientation.Pose
	havePose bool
	clients  map[chan orientation.Pose]struct{}
}

func newPoseServer() *poseServer {
	return &poseServer{clients: make(map[chan orientation.Pose]struct{})}
}

// update stores p and offers it to every client. Slow clients miss updates
// instead of blocking the MQTT callback.
func (s *poseServer) update(p orientation.Pose) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastPose = p
	s.havePose = true
	for ch := range s.clients {
		select {
		case ch <- p:
		default:
		}
	}
}

func (s *poseServer) latest() (orientation.Pose, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastPose, s.havePose
}

func (s *poseServer) subscribe() chan orientation.Pose {
	ch := make(chan orientation.Pose, 4)
	s.mu.Lock()
	s.clients[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *poseServer) unsubscribe(ch chan orientation.Pose) {
	s.mu.Lock()
	delete(s.clients, ch)
	s.mu.Unlock()
}

func (s *poseServer) handleOrientation(w http.ResponseWriter, r *http.Request) {
	pose, ok := s.latest()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(pose); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func (s *poseServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	updates := s.subscribe()
	defer s.unsubscribe(updates)

	// Reader goroutine only watches for the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("web: websocket error: %v", err)
				}
				return
			}
		}
	}()

	if pose, ok := s.latest(); ok {
		if err := writePose(conn, pose); err != nil {
			return
		}
	}

	for {
		select {
		case <-done:
			return
		case pose := <-updates:
			if err := writePose(conn, pose); err != nil {
				log.Printf("web: websocket write error: %v", err)
				return
			}
		}
	}
}

func writePose(conn *websocket.Conn, pose orientation.Pose) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(pose)
}

func (s *poseServer) routes(staticDir string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/orientation", s.handleOrientation)
	mux.HandleFunc("/ws/orientation", s.handleWebSocket)
	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return mux
}

func RunWeb() error {
	cfg := config.Get()
	server := newPoseServer()

	// 1) Connect to MQTT broker
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("connected to MQTT broker at %s", cfg.MQTTBroker)

	// 2) Subscribe to pose topic and fan each message out
	token := client.Subscribe(cfg.TopicPose, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var p orientation.Pose
		if err := json.Unmarshal(msg.Payload(), &p); err != nil {
			log.Printf("MQTT payload unmarshal error: %v", err)
			return
		}
		server.update(p)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("subscribed to MQTT topic %s", cfg.TopicPose)

	// 3) API, websocket and static files from ./web
	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web server listening on %s", addr)
	return http.ListenAndServe(addr, server.routes("web"))
}
