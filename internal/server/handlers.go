package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/spigell/prospectiq/internal/profile"
	"github.com/spigell/prospectiq/internal/prospect"
	"github.com/spigell/prospectiq/internal/scoring"
)

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// legacyProspect is the older request shape some clients still send to /score.
type legacyProspect struct {
	Name      string `json:"name"`
	Company   string `json:"company"`
	Sector    string `json:"sector"`
	SourceURL string `json:"sourceUrl"`
}

type scoreRequest struct {
	ICP      *prospect.ICP      `json:"icp"`
	Features *prospect.Features `json:"features"`
	Prospect *legacyProspect    `json:"prospect"`
}

type aiScoreRequest struct {
	ICP      *prospect.ICP      `json:"icp"`
	Features *prospect.Features `json:"features"`
	PageText string             `json:"pageText"`
}

type blendedScoreRequest struct {
	ICP *prospect.ICP `json:"icp"`
	// Profile is normalized like compiler output, so absent weights get the defaults.
	Profile  map[string]any     `json:"profile"`
	Features *prospect.Features `json:"features"`
	PageText string             `json:"pageText"`
}

type summarizeRequest struct {
	ICP      *prospect.ICP      `json:"icp"`
	Features *prospect.Features `json:"features"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleCompileProfile(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := decodeBody(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	nl, ok := payload["nl_prompt"].(string)
	if !ok || nl == "" {
		writeError(w, http.StatusBadRequest, "nl_prompt required (string)", nil)
		return
	}

	writeJSON(w, http.StatusOK, s.deps.Compiler.CompileWithFallback(r.Context(), nl))
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	features := req.Features
	if features == nil && req.Prospect != nil {
		features = &prospect.Features{
			SectorText: req.Prospect.Sector,
			WebsiteURL: req.Prospect.SourceURL,
		}
	}

	s.quotaMu.Lock()
	result := scoring.ScoreGuarded(s.deps.Quota, s.deps.Now(), req.ICP, features)
	s.quotaMu.Unlock()

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAIScore(w http.ResponseWriter, r *http.Request) {
	var req aiScoreRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	assessment, err := s.deps.Assessor.Assess(r.Context(), req.ICP, req.Features, req.PageText)
	if err != nil {
		s.logger.Error("ai score failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	writeJSON(w, http.StatusOK, assessment)
}

func (s *Server) handleBlendedScore(w http.ResponseWriter, r *http.Request) {
	var req blendedScoreRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	var compiled *prospect.CompiledProfile
	if req.Profile != nil {
		normalized, err := profile.NormalizeCompiled(req.Profile)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid profile", err)
			return
		}
		compiled = &normalized
	}

	if !s.allow() {
		writeJSON(w, http.StatusOK, rateLimited())
		return
	}

	icp := req.ICP
	var rule prospect.ScoreResult
	if compiled != nil {
		rule = scoring.ScoreProfile(*compiled, req.Features)
		if icp == nil {
			profileICP := compiled.ICP()
			icp = &profileICP
		}
	} else {
		rule = scoring.Score(icp, req.Features)
	}

	writeJSON(w, http.StatusOK, s.blender.Blend(r.Context(), rule, icp, req.Features, req.PageText))
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"summary": s.deps.Summarizer.Summarize(r.Context(), req.Features, req.ICP),
	})
}

// decodeBody reads a JSON body. An empty body decodes as an empty object.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		body = []byte("{}")
	}
	if err := json.Unmarshal(body, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return fmt.Errorf("field %q: %w", typeErr.Field, err)
		}
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := errorResponse{Error: msg}
	if err != nil {
		resp.Detail = err.Error()
	}
	writeJSON(w, status, resp)
}
