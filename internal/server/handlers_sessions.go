package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jonathan/portfolio-engine/internal/achievements"
	"github.com/jonathan/portfolio-engine/internal/events"
	"github.com/jonathan/portfolio-engine/internal/types"
)

const maxBodyBytes = 64 << 10

// keepAliveInterval spaces comment lines on idle badge streams.
var keepAliveInterval = 25 * time.Second

// CreateSessionRequest is the optional body of POST /sessions.
type CreateSessionRequest struct {
	ID string `json:"id,omitempty"`
}

// SessionResponse describes a session and its badge tray.
type SessionResponse struct {
	ID      string            `json:"id"`
	Resumed bool              `json:"resumed"`
	Badges  []types.TrayBadge `json:"badges"`
}

// TrayResponse is the body of GET /sessions/{id}/badges.
type TrayResponse struct {
	Badges   []types.TrayBadge `json:"badges"`
	Unlocked int               `json:"unlocked"`
	Total    int               `json:"total"`
}

// EventResponse lists the badges an event unlocked and the resulting tray.
type EventResponse struct {
	Unlocked []string     `json:"unlocked"`
	Tray     TrayResponse `json:"tray"`
}

// PointerRequest reports the pointer position over the portrait, or that it left.
type PointerRequest struct {
	X        float64           `json:"x"`
	Y        float64           `json:"y"`
	Portrait achievements.Rect `json:"portrait"`
	Left     bool              `json:"left"`
}

// decodeJSON reads a size-limited JSON body. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	return nil
}

func (s *Server) session(r *http.Request) (*Session, error) {
	return s.sessions.Get(chi.URLParam(r, "id"))
}

func (s *Server) trayResponse(sess *Session) TrayResponse {
	tray := sess.Engine.Tray()
	return TrayResponse{
		Badges:   tray,
		Unlocked: len(tray),
		Total:    len(achievements.Catalog()),
	}
}

// handleCreateSession starts a session, or resumes one when the body names an id.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	sess, created, err := s.sessions.Create(r.Context(), req.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	s.jsonResponse(w, status, SessionResponse{
		ID:      sess.ID,
		Resumed: req.ID != "" || !created,
		Badges:  sess.Engine.Tray(),
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTray(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, s.trayResponse(sess))
}

// handleEvent publishes one signal on the session's bus and returns the
// badges it unlocked along with the updated tray.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var ev events.Event
	if err := decodeJSON(r, &ev); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.validateEvent(ev); err != nil {
		s.writeError(w, err)
		return
	}

	// timer unlocks may publish from other goroutines while we listen
	var (
		mu       sync.Mutex
		unlocked = []string{}
	)
	unsubscribe := sess.Bus.Subscribe(events.BadgeUnlocked, func(e events.Event) {
		mu.Lock()
		unlocked = append(unlocked, e.ID)
		mu.Unlock()
	})
	sess.Bus.Publish(ev)
	unsubscribe()

	mu.Lock()
	defer mu.Unlock()

	s.jsonResponse(w, http.StatusAccepted, EventResponse{
		Unlocked: unlocked,
		Tray:     s.trayResponse(sess),
	})
}

func (s *Server) validateEvent(ev events.Event) error {
	if err := s.validate.Struct(ev); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &ErrValidation{Field: verrs[0].Field(), Message: fmt.Sprintf("failed %q", verrs[0].Tag())}
		}
		return &ErrValidation{Field: "event", Message: err.Error()}
	}
	name, err := events.ParseName(string(ev.Name))
	if err != nil {
		return &ErrValidation{Field: "type", Message: err.Error()}
	}
	if name == events.BadgeUnlocked {
		return &ErrValidation{Field: "type", Message: "badge-unlocked is emitted by the server"}
	}
	return nil
}

func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req PointerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Left {
		sess.Engine.PointerLeft()
	} else {
		sess.Engine.PointerMoved(req.X, req.Y, req.Portrait)
	}
	s.jsonResponse(w, http.StatusOK, map[string]bool{"dwelling": sess.Engine.Dwelling()})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := sess.Engine.Reset(r.Context()); err != nil {
		s.writeError(w, fmt.Errorf("failed to reset badges: %w", err))
		return
	}
	s.jsonResponse(w, http.StatusOK, s.trayResponse(sess))
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	badge := chi.URLParam(r, "badge")
	if !sess.Engine.IsUnlocked(badge) {
		s.writeError(w, &ErrBadgeNotFound{ID: badge})
		return
	}
	sess.Engine.Dismiss(badge)
	s.jsonResponse(w, http.StatusOK, s.trayResponse(sess))
}

func (s *Server) handleHover(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	badge := chi.URLParam(r, "badge")
	if !sess.Engine.IsUnlocked(badge) {
		s.writeError(w, &ErrBadgeNotFound{ID: badge})
		return
	}
	sess.Engine.Hover(badge)
	s.jsonResponse(w, http.StatusOK, s.trayResponse(sess))
}

func (s *Server) handleUnhover(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sess.Engine.Unhover()
	s.jsonResponse(w, http.StatusOK, s.trayResponse(sess))
}

// handleStream pushes badge-unlocked events to the client as they happen.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	// Publishing never blocks on a slow client; overflow is dropped.
	ch := make(chan events.Event, 16)
	unsubscribe := sess.Bus.Subscribe(events.BadgeUnlocked, func(e events.Event) {
		select {
		case ch <- e:
		default:
			s.logger.Warn("dropping badge event for slow stream", zap.String("session", sess.ID), zap.String("badge", e.ID))
		}
	})
	defer unsubscribe()

	// headers go out only once the subscription is in place
	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-ch:
			if err := sse.WriteEvent(string(events.BadgeUnlocked), e); err != nil {
				return
			}
		case <-keepAlive.C:
			if err := sse.WriteComment("keep-alive"); err != nil {
				return
			}
		}
	}
}
