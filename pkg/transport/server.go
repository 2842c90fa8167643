package transport

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/cuemby/dwn/pkg/config"
	"github.com/cuemby/dwn/pkg/dwn"
	"github.com/cuemby/dwn/pkg/dwnerr"
	"github.com/cuemby/dwn/pkg/log"
	"github.com/cuemby/dwn/pkg/provider"
	"github.com/cuemby/dwn/pkg/types"
	"github.com/rs/zerolog"
)

// Server is an http.Handler that dispatches every request through
// dwn.Handle against one node's provider.Provider.
type Server struct {
	cfg config.Config
	p   provider.Provider
	log zerolog.Logger
}

// NewServer returns a Server ready to pass to http.ListenAndServe.
func NewServer(cfg config.Config, p provider.Provider) *Server {
	return &Server{cfg: cfg, p: p, log: log.WithComponent("transport")}
}

// envelope is the request body for POST /dwn: the owner the message is
// addressed to, the message itself, and its data stream (base64url
// unpadded), present only for a RecordsWrite that carries a payload.
type envelope struct {
	Owner   string       `json:"owner"`
	Message types.Message `json:"message"`
	Data    string       `json:"data,omitempty"`
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/dwn" || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var env envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		s.writeError(w, dwnerr.BadRequestf("transport: decode request: %v", err))
		return
	}

	var data []byte
	if env.Data != "" {
		decoded, err := base64.RawURLEncoding.DecodeString(env.Data)
		if err != nil {
			s.writeError(w, dwnerr.BadRequestf("transport: decode data: %v", err))
			return
		}
		data = decoded
	}

	reply, err := dwn.Handle(r.Context(), env.Owner, env.Message, bytes.NewReader(data), s.cfg, s.p)
	if err != nil {
		s.log.Error().Err(err).Str("owner", env.Owner).Msg("handle failed")
		s.writeError(w, err)
		return
	}

	if sub, ok := reply.Body.(provider.Subscription); ok {
		s.streamSubscription(w, r, sub)
		return
	}

	s.writeReply(w, reply.Status.Code, reply.Status.Detail, reply.Body)
}

// streamSubscription renders a Subscribe reply as newline-delimited
// JSON, one types.Entry per line, flushed as events arrive. It runs
// until the subscription closes or the client disconnects.
func (s *Server) streamSubscription(w http.ResponseWriter, r *http.Request, sub provider.Subscription) {
	defer sub.Close()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	enc := json.NewEncoder(w)
	for {
		select {
		case <-r.Context().Done():
			return
		case entry, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := enc.Encode(entry); err != nil {
				s.log.Error().Err(err).Msg("encode subscription entry")
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeReply(w, dwn.StatusCode(err), err.Error(), nil)
}

func (s *Server) writeReply(w http.ResponseWriter, code int, detail string, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(types.Reply{
		Status: types.Status{Code: uint16(code), Detail: detail},
		Body:   body,
	})
}
