package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"hot-seat/internal/progression"
)

type createRoomRequest struct {
	Nickname    string `json:"nickname" validate:"required,nickname"`
	TotalRounds int    `json:"totalRounds" validate:"omitempty,min=1"`
}

type joinRoomRequest struct {
	JoinCode string `json:"joinCode" validate:"required,len=6,alphanum"`
	Nickname string `json:"nickname" validate:"required,nickname"`
}

type actorRequest struct {
	PlayerID string `json:"playerId" validate:"required"`
}

type selectCategoryRequest struct {
	PlayerID string `json:"playerId" validate:"required_unless=Timeout true"`
	Category string `json:"category" validate:"max=32,freetext"`
	Timeout  bool   `json:"timeout"`
}

type selectScenarioRequest struct {
	PlayerID   string `json:"playerId" validate:"required_unless=Timeout true"`
	ScenarioID string `json:"scenarioId"`
	CustomText string `json:"customText" validate:"max=280,freetext"`
	Context    string `json:"context" validate:"max=500,freetext"`
	Timeout    bool   `json:"timeout"`
}

type submitAnswerRequest struct {
	PlayerID string `json:"playerId" validate:"required"`
	Text     string `json:"text" validate:"required,max=280,freetext"`
}

type submitVoteRequest struct {
	VoterID string `json:"voterId" validate:"required"`
}

type slideshowRequest struct {
	PlayerID string `json:"playerId" validate:"required"`
	Index    int    `json:"index" validate:"min=0"`
	Action   string `json:"action" validate:"max=32"`
}

var nicknameMessages = fieldMessages{
	"nickname": {
		"required": "nickname is required",
		"nickname": "nickname must be 1-20 letters, digits or simple punctuation",
	},
}

var joinMessages = fieldMessages{
	"joinCode": {
		"required": "join code is required",
		"len":      "join code must be 6 characters",
		"alphanum": "join code must be letters and digits",
	},
	"nickname": nicknameMessages["nickname"],
}

var answerMessages = fieldMessages{
	"text": {
		"required": "answer is required",
		"max":      "answer is too long",
		"freetext": "answer contains unsupported characters",
	},
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.Ping(r.Context()); err != nil {
		s.log.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"categories": s.orch.Categories()})
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := s.decode(r.Body, &req, nicknameMessages); err != nil {
		s.writeError(w, r, err)
		return
	}
	session, err := s.orch.CreateRoom(r.Context(), req.Nickname, req.TotalRounds)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	var req joinRoomRequest
	if err := s.decode(r.Body, &req, joinMessages); err != nil {
		s.writeError(w, r, err)
		return
	}
	session, err := s.orch.JoinRoom(r.Context(), req.JoinCode, req.Nickname)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleGameState(w http.ResponseWriter, r *http.Request) {
	state, err := s.orch.GetGameState(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if err := s.decode(r.Body, &req, nil); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeOutcome(w, r)(s.orch.StartGame(r.Context(), chi.URLParam(r, "roomID"), req.PlayerID))
}

func (s *Server) handleFinishVoting(w http.ResponseWriter, r *http.Request) {
	s.writeOutcome(w, r)(s.orch.FinishVoting(r.Context(), chi.URLParam(r, "roomID")))
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.writeOutcome(w, r)(s.orch.Resume(r.Context(), chi.URLParam(r, "roomID")))
}

func (s *Server) handleSlideshow(w http.ResponseWriter, r *http.Request) {
	var req slideshowRequest
	if err := s.decode(r.Body, &req, nil); err != nil {
		s.writeError(w, r, err)
		return
	}
	err := s.orch.Slideshow(r.Context(), progression.SlideshowInput{
		RoomID:   chi.URLParam(r, "roomID"),
		PlayerID: req.PlayerID,
		Index:    req.Index,
		Action:   req.Action,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetTurn(w http.ResponseWriter, r *http.Request) {
	detail, err := s.orch.GetTurn(r.Context(), chi.URLParam(r, "turnID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleSelectCategory(w http.ResponseWriter, r *http.Request) {
	var req selectCategoryRequest
	if err := s.decode(r.Body, &req, nil); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeOutcome(w, r)(s.orch.SelectCategory(r.Context(), progression.SelectCategoryInput{
		TurnID:   chi.URLParam(r, "turnID"),
		PlayerID: req.PlayerID,
		Category: req.Category,
		Timeout:  req.Timeout,
	}))
}

func (s *Server) handleSelectScenario(w http.ResponseWriter, r *http.Request) {
	var req selectScenarioRequest
	if err := s.decode(r.Body, &req, nil); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeOutcome(w, r)(s.orch.SelectScenario(r.Context(), progression.SelectScenarioInput{
		TurnID:     chi.URLParam(r, "turnID"),
		PlayerID:   req.PlayerID,
		ScenarioID: req.ScenarioID,
		CustomText: req.CustomText,
		Context:    req.Context,
		Timeout:    req.Timeout,
	}))
}

func (s *Server) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitAnswerRequest
	if err := s.decode(r.Body, &req, answerMessages); err != nil {
		s.writeError(w, r, err)
		return
	}
	answer, err := s.orch.SubmitAnswer(r.Context(), chi.URLParam(r, "turnID"), req.PlayerID, req.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, answer)
}

func (s *Server) handleAdvanceTurn(w http.ResponseWriter, r *http.Request) {
	s.writeOutcome(w, r)(s.orch.AdvanceTurn(r.Context(), chi.URLParam(r, "turnID")))
}

func (s *Server) handleSubmitVote(w http.ResponseWriter, r *http.Request) {
	var req submitVoteRequest
	if err := s.decode(r.Body, &req, nil); err != nil {
		s.writeError(w, r, err)
		return
	}
	vote, err := s.orch.SubmitVote(r.Context(), chi.URLParam(r, "answerID"), req.VoterID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, vote)
}

// handleDeletePlayer is the target of the client's unload beacon, so it
// accepts any body and always answers 204.
func (s *Server) handleDeletePlayer(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if err := readJSON(r.Body, &req); err != nil || req.PlayerID == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if _, err := s.orch.RemovePlayer(r.Context(), req.PlayerID); err != nil {
		s.log.Warn("failed to remove player", zap.String("player_id", req.PlayerID), zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeOutcome returns a sink for an orchestrator result. A transition that
// was not applied is still a 200 carrying its reason.
func (s *Server) writeOutcome(w http.ResponseWriter, r *http.Request) func(progression.Outcome, error) {
	return func(outcome progression.Outcome, err error) {
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, outcome)
	}
}
