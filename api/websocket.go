package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"vector-store/store"
)

/*
wsRequest is a single WebSocket command. Fields not used by a type are ignored.
*/
type wsRequest struct {
	Type       string    `json:"type"`
	Collection string    `json:"collection"`
	ID         string    `json:"id"`
	OtherID    string    `json:"other_id"`
	Embedding  []float32 `json:"embedding"`
	DocumentID string    `json:"document_id"`
	Metadata   string    `json:"metadata"`
	Metric     string    `json:"metric"`
	A          []float32 `json:"a"`
	B          []float32 `json:"b"`
}

type wsResponse struct {
	Type   string        `json:"type,omitempty"`
	Status string        `json:"status,omitempty"`
	Error  string        `json:"error,omitempty"`
	Record *store.Record `json:"record,omitempty"`
	Metric string        `json:"metric,omitempty"`
	Value  *float32      `json:"value,omitempty"`
}

const (
	statusSuccess  = "success"
	statusNotFound = "not_found"
	statusExists   = "exists"
)

/*
handleWebSocket handles WebSocket connections
*/
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	log := s.log.WithField("remote", r.RemoteAddr)
	log.Debug("websocket connected")

	conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	for {
		messageType, p, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Warn("websocket closed unexpectedly")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		var req wsRequest
		var resp wsResponse
		if err := json.Unmarshal(p, &req); err != nil {
			resp = wsResponse{Error: "invalid JSON"}
		} else {
			resp = s.dispatch(req)
		}

		out, err := json.Marshal(resp)
		if err != nil {
			log.WithError(err).Error("failed to encode websocket response")
			out, _ = json.Marshal(wsResponse{Type: resp.Type, Error: "encode response: " + err.Error()})
		}
		if err := conn.WriteMessage(messageType, out); err != nil {
			log.WithError(err).Debug("websocket write failed")
			return
		}
	}
}

func (s *Server) dispatch(req wsRequest) wsResponse {
	resp := wsResponse{Type: req.Type}

	if req.Type == "compare" {
		return s.wsCompare(req, resp)
	}

	c, err := s.manager.GetCollection(req.Collection)
	if err != nil {
		resp.Error = err.Error()
		return resp
	}

	switch req.Type {
	case "add":
		added, err := c.Store.Add(req.ID, req.Embedding, req.DocumentID, req.Metadata)
		switch {
		case err != nil:
			resp.Error = err.Error()
		case !added:
			resp.Status = statusExists
		default:
			resp.Status = statusSuccess
		}
	case "update":
		updated, err := c.Store.Update(req.ID, req.Embedding, req.DocumentID, req.Metadata)
		switch {
		case err != nil:
			resp.Error = err.Error()
		case !updated:
			resp.Status = statusNotFound
		default:
			resp.Status = statusSuccess
		}
	case "get":
		rec, ok := c.Store.Get(req.ID)
		if !ok {
			resp.Status = statusNotFound
			break
		}
		resp.Status = statusSuccess
		resp.Record = &rec
	case "delete":
		if c.Store.Delete(req.ID) {
			resp.Status = statusSuccess
		} else {
			resp.Status = statusNotFound
		}
	default:
		resp.Error = "unknown message type"
	}
	return resp
}

// wsCompare compares a and b, or the embeddings of id and other_id when a collection is named.
func (s *Server) wsCompare(req wsRequest, resp wsResponse) wsResponse {
	a, b := req.A, req.B
	if req.Collection != "" {
		c, err := s.manager.GetCollection(req.Collection)
		if err != nil {
			resp.Error = err.Error()
			return resp
		}
		left, okLeft := c.Store.Get(req.ID)
		right, okRight := c.Store.Get(req.OtherID)
		if !okLeft || !okRight {
			resp.Status = statusNotFound
			return resp
		}
		a, b = left.Embedding, right.Embedding
	}

	result, err := s.compare(req.Metric, a, b)
	if err != nil {
		resp.Error = err.Error()
		return resp
	}

	s.log.WithFields(logrus.Fields{"metric": result.Metric, "collection": req.Collection}).Debug("compared vectors")
	resp.Status = statusSuccess
	resp.Metric = result.Metric
	resp.Value = &result.Value
	return resp
}
