package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/MJE43/maze-duel/internal/botstore"
	"github.com/MJE43/maze-duel/internal/match"
	"github.com/MJE43/maze-duel/internal/scripting"
)

// decode reads a JSON body into v and validates it. It writes the error
// response itself and reports whether the handler may continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.errorHandler.HandleError(w, r,
			NewError(ErrTypeInvalidParams, "Invalid JSON in request body").WithCause(err).Build(),
			http.StatusBadRequest)
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			s.errorHandler.HandleValidationError(w, r, fe.Field(), fe.Field()+" failed "+fe.Tag())
			return false
		}
		s.errorHandler.HandleError(w, r, err, http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) handleRegisterBot(w http.ResponseWriter, r *http.Request) {
	var req RegisterBotRequest
	if !s.decode(w, r, &req) {
		return
	}
	role, err := scripting.ParseRole(req.Role)
	if err != nil {
		s.errorHandler.HandleValidationError(w, r, "role", err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.errorHandler.HandleValidationError(w, r, "name", "name is blank")
		return
	}

	bot, err := s.bots.Put(scripting.Source{Role: role, Name: req.Name, Code: req.Source})
	if err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}
	s.logger.Info("bot registered", "bot_id", bot.ID, "role", bot.Role, "name", bot.Name,
		"request_id", middleware.GetReqID(r.Context()))
	s.writeJSON(w, http.StatusCreated, bot)
}

func (s *Server) handleListBots(w http.ResponseWriter, r *http.Request) {
	var role scripting.Role
	if q := r.URL.Query().Get("role"); q != "" {
		parsed, err := scripting.ParseRole(q)
		if err != nil {
			s.errorHandler.HandleValidationError(w, r, "role", err.Error())
			return
		}
		role = parsed
	}
	bots, err := s.bots.List(role)
	if err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"bots": bots})
}

func (s *Server) handleGetBot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	bot, err := s.bots.Get(id)
	if errors.Is(err, botstore.ErrNotFound) {
		s.errorHandler.HandleNotFound(w, r, "bot", id)
		return
	}
	if err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, bot)
}

func (s *Server) handleDeleteBot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.bots.Delete(id)
	if errors.Is(err, botstore.ErrNotFound) {
		s.errorHandler.HandleNotFound(w, r, "bot", id)
		return
	}
	if err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// findBot resolves a display name for role, writing a 404 when missing.
func (s *Server) findBot(w http.ResponseWriter, r *http.Request, role scripting.Role, name string) (*botstore.Bot, bool) {
	bot, err := s.bots.Find(role, name)
	if errors.Is(err, botstore.ErrNotFound) {
		s.errorHandler.HandleNotFound(w, r, string(role), name)
		return nil, false
	}
	if err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return nil, false
	}
	return bot, true
}

func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var req CreateMatchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if _, err := match.ParsePacing(req.Pacing); err != nil {
		s.errorHandler.HandleValidationError(w, r, "pacing", err.Error())
		return
	}
	mm, ok := s.findBot(w, r, scripting.RoleMazeMaster, req.MazeMaster)
	if !ok {
		return
	}
	adv, ok := s.findBot(w, r, scripting.RoleAdventurers, req.Adventurers)
	if !ok {
		return
	}

	sess, seed, err := s.matches.start(mm.Registration(), adv.Registration(), req.Seed, req.Pacing)
	var fault *scripting.SetupFault
	if errors.As(err, &fault) {
		s.errorHandler.HandleError(w, r,
			NewError(ErrTypeSetupFault, fault.Error()).
				WithContext("role", string(fault.Role)).
				WithContext("name", fault.Name).
				Build(),
			http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusCreated, CreateMatchResponse{Match: sess.summary(), Seed: seed})
}

func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"matches": s.matches.list()})
}

// session resolves the {id} URL parameter, writing a 404 when missing.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session, bool) {
	id := chi.URLParam(r, "id")
	sess, err := s.matches.get(id)
	if err != nil {
		s.errorHandler.HandleNotFound(w, r, "match", id)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, sess.summary())
}

// handleMatchState returns the render view and clears its dirty flag.
func (s *Server) handleMatchState(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, sess.handle.Match().TakeDirty())
}

// handleStepMatch runs one transition and returns the view it produced. The
// dirty flag is left for the next state poll.
func (s *Server) handleStepMatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	view, err := s.matches.step(r.Context(), id)
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, view)
	case errors.Is(err, errSessionNotFound):
		s.errorHandler.HandleNotFound(w, r, "match", id)
	case errors.Is(err, errNotStepped), errors.Is(err, match.ErrStopped):
		s.errorHandler.HandleError(w, r,
			NewError(ErrTypeConflict, err.Error()).WithContext("match", id).Build(),
			http.StatusConflict)
	default:
		s.errorHandler.HandleError(w, r,
			NewError(ErrTypeTimeout, "step was not taken").WithContext("match", id).WithCause(err).Build(),
			http.StatusRequestTimeout)
	}
}

func (s *Server) handleStopMatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := s.matches.stop(r.Context(), id)
	if errors.Is(err, errSessionNotFound) {
		s.errorHandler.HandleNotFound(w, r, "match", id)
		return
	}
	if err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeleteMatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.matches.remove(r.Context(), id)
	if errors.Is(err, errSessionNotFound) {
		s.errorHandler.HandleNotFound(w, r, "match", id)
		return
	}
	if err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
