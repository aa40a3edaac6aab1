// Package http exposes the assistant, chat store and tax engine as a JSON API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fingenie/assistant/internal/domain/entity"
	"github.com/fingenie/assistant/internal/session"
	"github.com/fingenie/assistant/internal/usecase"
)

// DIDHeader carries the caller's DID on authenticated requests.
const DIDHeader = "X-Fingenie-DID"

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Server routes HTTP requests to the use cases.
type Server struct {
	auth   usecase.AuthUseCase
	chats  usecase.ChatUseCase
	tax    usecase.TaxUseCase
	logger *zap.Logger
}

func NewServer(auth usecase.AuthUseCase, chats usecase.ChatUseCase, tax usecase.TaxUseCase, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{auth: auth, chats: chats, tax: tax, logger: logger}
}

// Handler returns the routed handler wrapped in the session and logging middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)

	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /chats", s.handleListChats)
	mux.HandleFunc("POST /chats", s.handleCreateChat)
	mux.HandleFunc("GET /chats/export", s.handleExport)
	mux.HandleFunc("POST /chats/import", s.handleImport)
	mux.HandleFunc("GET /chats/{id}/messages", s.handleMessages)
	mux.HandleFunc("DELETE /chats/{id}", s.handleDeleteChat)

	mux.HandleFunc("POST /tax/calculate", s.handleCalculate)
	mux.HandleFunc("POST /tax/simulate", s.handleSimulate)
	mux.HandleFunc("POST /tax/india", s.handleIndia)
	mux.HandleFunc("POST /tax/report", s.handleReport)
	mux.HandleFunc("POST /tax/report.xlsx", s.handleReportWorkbook)
	mux.HandleFunc("GET /tax/profile", s.handleProfile)

	return s.logRequest(s.withSession(mux))
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("HTTP server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// fail logs server-side failures and answers with the mapped status.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeError(w, status, err.Error())
}

type credentialsRequest struct {
	Username string `json:"username"`
	Address  string `json:"address"`
}

type userResponse struct {
	Username  string    `json:"username"`
	Address   string    `json:"address"`
	DID       string    `json:"did"`
	StartedAt time.Time `json:"startedAt"`
}

func toUserResponse(sess session.Session) userResponse {
	return userResponse{
		Username:  sess.Username,
		Address:   sess.Address,
		DID:       sess.UserID,
		StartedAt: sess.StartedAt,
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := s.auth.Register(r.Context(), req.Username, req.Address)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(sess))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := s.auth.Login(r.Context(), req.Username, req.Address)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(sess))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type chatRequest struct {
	Message string `json:"message"`
	ChatID  string `json:"chatId"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.chats.Ask(r.Context(), req.ChatID, req.Message, nil)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := s.chats.ListChats(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if chats == nil {
		chats = []entity.Chat{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"chats": chats})
}

func (s *Server) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	id, err := s.chats.CreateChat(r.Context(), req.Title)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"chatId": id})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := s.chats.GetMessages(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if messages == nil {
		messages = []entity.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	if err := s.chats.DeleteChat(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.chats.Export(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sess, _ := session.FromContext(r.Context())
	filename := fmt.Sprintf("fingenie-chats-%s-%s.json", sess.Username, time.Now().UTC().Format(time.DateOnly))

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	n, err := s.chats.Import(r.Context(), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": n})
}

// readTaxInput accepts a JSON TaxInput or an uploaded tax workbook.
func (s *Server) readTaxInput(w http.ResponseWriter, r *http.Request) (entity.TaxInput, bool) {
	var in entity.TaxInput
	if strings.HasPrefix(r.Header.Get("Content-Type"), xlsxContentType) {
		body, err := readBody(w, r)
		if err == nil {
			in, err = s.tax.ImportWorkbook(r.Context(), body)
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return in, false
		}
		return in, true
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return in, false
	}
	return in, true
}

type calculateResponse struct {
	Result entity.TaxResult `json:"taxResults"`
	Saved  bool             `json:"saved"`
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	in, ok := s.readTaxInput(w, r)
	if !ok {
		return
	}
	result, err := s.tax.Calculate(r.Context(), in)
	if err != nil {
		// natija tayyor, faqat profil saqlanmadi
		s.logger.Warn("tax profile not saved", zap.Error(err))
	}
	_, hasSession := session.FromContext(r.Context())
	writeJSON(w, http.StatusOK, calculateResponse{Result: result, Saved: hasSession && err == nil})
}

type simulateRequest struct {
	TaxData entity.TaxInput         `json:"taxData"`
	Params  entity.SimulationParams `json:"params"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.tax.Simulate(r.Context(), req.TaxData, req.Params))
}

func (s *Server) handleIndia(w http.ResponseWriter, r *http.Request) {
	var in entity.IndiaInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.Regime == "" {
		in.Regime = entity.IndiaNewRegime
	}
	if in.Regime != entity.IndiaNewRegime && in.Regime != entity.IndiaOldRegime {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown regime %q", in.Regime))
		return
	}
	writeJSON(w, http.StatusOK, s.tax.CalculateIndia(in))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	in, ok := s.readTaxInput(w, r)
	if !ok {
		return
	}
	report, err := s.tax.Report(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	filename := fmt.Sprintf("fingenie-tax-report-%d.json", in.TaxYear)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleReportWorkbook(w http.ResponseWriter, r *http.Request) {
	in, ok := s.readTaxInput(w, r)
	if !ok {
		return
	}
	data, err := s.tax.ReportWorkbook(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	filename := fmt.Sprintf("fingenie-tax-report-%d.xlsx", in.TaxYear)
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.tax.LatestProfile(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
