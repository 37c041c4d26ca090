package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/cyberxz2077/Startup-Hub/internal/ai"
	"github.com/cyberxz2077/Startup-Hub/internal/inbox"
	"github.com/cyberxz2077/Startup-Hub/internal/matching"
	"github.com/cyberxz2077/Startup-Hub/internal/onboarding"
	"github.com/cyberxz2077/Startup-Hub/internal/store"
)

type matchRequest struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	identity := s.requireIdentity(w, r)
	if identity == nil {
		return
	}

	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Type == "" || req.ID == "" {
		s.respondError(w, http.StatusBadRequest, "Missing type or id")
		return
	}

	s.logger.Debug("match request",
		zap.String("type", req.Type),
		zap.String("id", req.ID),
		zap.String("caller", identity.ID),
	)

	result, err := s.matcher.Run(r.Context(), identity.ID, matching.PivotType(req.Type), req.ID)
	if err != nil {
		switch {
		case errors.Is(err, matching.ErrInvalidRequest):
			s.respondError(w, http.StatusBadRequest, "invalid match request")
		case errors.Is(err, matching.ErrNotFound):
			s.respondError(w, http.StatusNotFound, "pivot not found")
		default:
			s.logger.Error("match run failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, "Internal Server Error")
		}
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"success":             true,
		"matches":             result.Matches,
		"persistenceDegraded": result.PersistenceDegraded,
	})
}

type chatMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type chatAttachment struct {
	Name     string `json:"name"`
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type chatRequest struct {
	Role       string          `json:"role"`
	Messages   []chatMessage   `json:"messages"`
	Attachment *chatAttachment `json:"attachment,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.requireIdentity(w, r) == nil {
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role := onboarding.Role(req.Role)
	if !role.Valid() {
		s.respondError(w, http.StatusBadRequest, "unknown onboarding role")
		return
	}
	if len(req.Messages) == 0 {
		s.respondError(w, http.StatusBadRequest, "messages are required")
		return
	}

	last := req.Messages[len(req.Messages)-1]
	if last.Role != string(ai.RoleUser) {
		s.respondError(w, http.StatusBadRequest, "last message must be from the user")
		return
	}

	content := ai.Content{Text: last.Text}
	if req.Attachment != nil {
		data, err := base64.StdEncoding.DecodeString(req.Attachment.Data)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "attachment data is not valid base64")
			return
		}
		content.Attachment = &ai.Attachment{
			Name:     req.Attachment.Name,
			MIMEType: req.Attachment.MIMEType,
			Data:     data,
		}
	}

	history := toTurns(req.Messages[:len(req.Messages)-1])
	reply := s.assistant.Reply(r.Context(), role.SystemInstruction(), history, content)

	s.respondJSON(w, http.StatusOK, reply)
}

type reviseAnnotation struct {
	Field        string `json:"field"`
	SelectedText string `json:"selectedText"`
	Comment      string `json:"comment"`
}

type reviseRequest struct {
	Role        string             `json:"role"`
	Messages    []chatMessage      `json:"messages"`
	Annotations []reviseAnnotation `json:"annotations"`
}

func (s *Server) handleRevise(w http.ResponseWriter, r *http.Request) {
	if s.requireIdentity(w, r) == nil {
		return
	}

	var req reviseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role := onboarding.Role(req.Role)
	if !role.Valid() {
		s.respondError(w, http.StatusBadRequest, "unknown onboarding role")
		return
	}

	annotations := make([]*onboarding.Annotation, 0, len(req.Annotations))
	for _, a := range req.Annotations {
		annotations = append(annotations, &onboarding.Annotation{
			Field:        a.Field,
			SelectedText: a.SelectedText,
			Comment:      a.Comment,
		})
	}

	feedback, err := onboarding.RevisionMessage(annotations)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "annotations are required")
		return
	}

	history := toTurns(req.Messages)
	reply := s.assistant.Reply(r.Context(), role.SystemInstruction(), history, ai.Content{Text: feedback})

	s.respondJSON(w, http.StatusOK, reply)
}

// emptyProfile mirrors the shape returned to anonymous visitors so the client
// can render a blank editor without branching.
func emptyProfile() map[string]any {
	return map[string]any{
		"name":                 "",
		"avatar":               "",
		"title":                "",
		"location":             "",
		"bio":                  "",
		"skills":               []string{},
		"experienceHighlights": "",
		"education":            "",
		"lookingFor":           "",
		"superpower":           "",
		"others":               "",
	}
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())
	if identity == nil {
		s.respondJSON(w, http.StatusOK, emptyProfile())
		return
	}

	profile, err := s.directory.GetProfileByUserID(r.Context(), identity.ID)
	if errors.Is(err, store.ErrNotFound) {
		s.respondJSON(w, http.StatusOK, emptyProfile())
		return
	}
	if err != nil {
		s.logger.Error("profile lookup failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	out := map[string]any{
		"name":                 identity.Name,
		"avatar":               "",
		"title":                profile.Title,
		"location":             profile.Location,
		"bio":                  "",
		"skills":               profile.Skills,
		"experienceHighlights": profile.ExperienceHighlights,
		"education":            profile.Education,
		"lookingFor":           profile.LookingFor,
		"superpower":           profile.Superpower,
		"others":               profile.Others,
	}
	if profile.User != nil {
		out["name"] = profile.User.Name
		out["avatar"] = profile.User.Avatar
		out["bio"] = profile.User.Bio
	}

	s.respondJSON(w, http.StatusOK, out)
}

type saveProfileRequest struct {
	onboarding.ProfileDraft
}

func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	identity := s.requireIdentity(w, r)
	if identity == nil {
		return
	}

	var req saveProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user := &store.User{
		ID:     identity.ID,
		Name:   req.Name,
		Avatar: req.Avatar,
		Bio:    req.Bio,
	}
	if user.Name == "" {
		user.Name = identity.Name
	}
	if err := s.directory.EnsureUser(r.Context(), user); err != nil {
		s.logger.Error("user upsert failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	profile := &store.Profile{
		UserID:               identity.ID,
		Title:                req.Title,
		Location:             req.Location,
		Skills:               req.Skills,
		ExperienceHighlights: req.ExperienceHighlights,
		Education:            req.Education,
		LookingFor:           req.LookingFor,
		Superpower:           req.Superpower,
		Others:               req.Others,
	}
	if profile.Skills == nil {
		profile.Skills = []string{}
	}
	if err := s.directory.SaveProfile(r.Context(), profile); err != nil {
		s.logger.Error("profile save failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

type createProjectRequest struct {
	onboarding.ProjectDraft
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	identity := s.requireIdentity(w, r)
	if identity == nil {
		return
	}

	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Vision == "" {
		s.respondError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	project := &store.Project{
		OwnerID:           identity.ID,
		Name:              req.Name,
		OneLiner:          req.OneLiner,
		Sector:            req.Sector,
		Location:          req.Location,
		Stage:             req.Stage,
		Vision:            req.Vision,
		Problem:           req.Problem,
		Solution:          req.Solution,
		TalentNeeds:       req.TalentNeeds,
		ProductHighlights: req.ProductHighlights,
		TargetAudience:    req.TargetAudience,
		BusinessModel:     req.BusinessModel,
		Differentiation:   req.Differentiation,
		MarketSize:        req.MarketSize,
		TeamMembers:       req.TeamMembers,
		WhyNow:            req.WhyNow,
		LongTermMoat:      req.LongTermMoat,
		RoadmapFinance:    req.RoadmapFinance,
		Others:            req.Others,
		Published:         true,
	}
	if project.TalentNeeds == nil {
		project.TalentNeeds = []string{}
	}

	id, err := s.directory.CreateProject(r.Context(), project)
	if err != nil {
		s.logger.Error("project create failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{"success": true, "projectId": id})
}

func (s *Server) handleInboxList(w http.ResponseWriter, r *http.Request) {
	identity := s.requireIdentity(w, r)
	if identity == nil {
		return
	}

	sessions, err := s.inbox.List(r.Context(), identity.ID)
	if err != nil {
		s.logger.Error("inbox list failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if sessions == nil {
		sessions = []*store.ChatSession{}
	}

	s.respondJSON(w, http.StatusOK, sessions)
}

type inboxSendRequest struct {
	TargetID   string `json:"targetId"`
	TargetType string `json:"targetType"`
	Content    string `json:"content"`
}

func (s *Server) handleInboxSend(w http.ResponseWriter, r *http.Request) {
	identity := s.requireIdentity(w, r)
	if identity == nil {
		return
	}

	var req inboxSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := s.inbox.Send(r.Context(), identity.ID, req.TargetID, req.TargetType, req.Content)
	if err != nil {
		if errors.Is(err, inbox.ErrInvalidMessage) {
			s.respondError(w, http.StatusBadRequest, "Missing fields")
			return
		}
		s.logger.Error("inbox send failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toTurns(messages []chatMessage) []ai.Turn {
	turns := make([]ai.Turn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, ai.Turn{Role: ai.Role(m.Role), Text: m.Text})
	}
	return turns
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
