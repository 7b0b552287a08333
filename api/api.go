// Package api serves the metadata of ownership nfts and lets clients mint them over http
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GrafMine/ownership-nft/faults"
	"github.com/GrafMine/ownership-nft/minter"
	"github.com/GrafMine/ownership-nft/program"
	"github.com/GrafMine/ownership-nft/state"
)

const lamportsDecimals = 9

// Server of the metadata and mint endpoints
type Server struct {
	cfg    Config
	minter *minter.Minter
	router chi.Router
}

// New server for the minter
func New(cfg Config, m *minter.Minter) *Server {
	s := &Server{cfg: cfg, minter: m}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Origin", "Content-Type"},
		MaxAge:         int((12 * time.Hour).Seconds()),
	}))

	r.Get("/health", s.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/metadata/test/{ticket}", s.metadata)
		r.Post("/mint", s.mint)
		r.Get("/mint/{ticket}", s.receipt)
		r.Get("/mint/{ticket}/plan", s.plan)
	})
	s.router = r
	return s
}

// Handler serving every route
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe until the context is done
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		log.Info().Str("address", s.cfg.Address).Msg("Serving http api")
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return errors.Wrap(err, "http server stopped")
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	cfg := s.minter.Config()
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"program":  cfg.ProgramID.String(),
		"strategy": cfg.Strategy.String(),
		"payer":    s.minter.Payer().String(),
	})
}

// Metadata is the off-chain json the uri of every ownership nft points to
type Metadata struct {
	Name        string      `json:"name"`
	Symbol      string      `json:"symbol"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	ExternalURL string      `json:"external_url"`
	Attributes  []Attribute `json:"attributes"`
	Properties  Properties  `json:"properties"`
}

type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

type Properties struct {
	Category string    `json:"category"`
	Creators []Creator `json:"creators"`
}

type Creator struct {
	Address string `json:"address"`
	Share   int    `json:"share"`
}

func (s *Server) metadata(w http.ResponseWriter, r *http.Request) {
	ticket, err := program.ParseTicketID(chi.URLParam(r, "ticket"))
	if err != nil {
		writeError(w, err)
		return
	}

	cfg := s.minter.Config()
	md := Metadata{
		Name:        cfg.Name(ticket),
		Symbol:      cfg.Symbol,
		Description: fmt.Sprintf("Proof of ownership of ticket %s", ticket),
		Image:       s.cfg.ImageURL,
		ExternalURL: cfg.URI(ticket),
		Attributes: []Attribute{
			{TraitType: "ticket", Value: ticket.String()},
			{TraitType: "metadata", Value: cfg.Strategy.String()},
		},
		Properties: Properties{
			Category: "image",
			Creators: []Creator{{Address: cfg.Admin.String(), Share: 100}},
		},
	}
	if receipt, ok := s.minter.Receipt(ticket); ok {
		md.Attributes = append(md.Attributes,
			Attribute{TraitType: "mint", Value: receipt.Addresses.Mint.String()},
			Attribute{TraitType: "minted", Value: receipt.MintedAt.Format(time.RFC3339)},
		)
	}
	writeJSON(w, http.StatusOK, md)
}

// MintRequest is the body of a mint
type MintRequest struct {
	TicketID string `json:"ticketId"`
}

// ReceiptView is a receipt as served over http
type ReceiptView struct {
	state.Receipt
	FeeSOL  string           `json:"feeSol"`
	Holding *program.Holding `json:"holding,omitempty"`
}

func (s *Server) mint(w http.ResponseWriter, r *http.Request) {
	var req MintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid mint request: " + err.Error()})
		return
	}
	ticket, err := program.ParseTicketID(req.TicketID)
	if err != nil {
		writeError(w, err)
		return
	}

	receipt, err := s.minter.Mint(r.Context(), ticket)
	if err != nil {
		if errors.Is(err, faults.ErrAlreadyMinted) && receipt != nil {
			writeJSON(w, http.StatusConflict, viewOf(*receipt))
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(*receipt))
}

func (s *Server) receipt(w http.ResponseWriter, r *http.Request) {
	ticket, err := program.ParseTicketID(chi.URLParam(r, "ticket"))
	if err != nil {
		writeError(w, err)
		return
	}
	receipt, ok := s.minter.Receipt(ticket)
	if !ok {
		writeError(w, errors.Wrapf(faults.ErrUnknownTicket, "ticket %s", ticket))
		return
	}

	view := viewOf(receipt)
	holding, err := s.minter.Inspect(r.Context(), ticket)
	if err != nil {
		log.Warn().Err(err).Str("ticket", ticket.String()).Msg("Failed to inspect minted ticket")
	} else {
		view.Holding = holding
	}
	writeJSON(w, http.StatusOK, view)
}

// PlanView is a plan as served over http
type PlanView struct {
	*program.Plan
	TotalRent       uint64 `json:"totalRent"`
	TotalRentSOL    string `json:"totalRentSol"`
	InstructionData string `json:"instructionData"`
}

func (s *Server) plan(w http.ResponseWriter, r *http.Request) {
	ticket, err := program.ParseTicketID(chi.URLParam(r, "ticket"))
	if err != nil {
		writeError(w, err)
		return
	}
	plan, err := s.minter.Plan(r.Context(), ticket)
	if err != nil {
		writeError(w, err)
		return
	}
	ix, _, err := program.NewInitOwnershipNftInstruction(s.minter.Config(), ticket, s.minter.Payer())
	if err != nil {
		writeError(w, err)
		return
	}
	data, err := ix.Data()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PlanView{
		Plan:            plan,
		TotalRent:       plan.TotalRent(),
		TotalRentSOL:    lamportsToSOL(plan.TotalRent()),
		InstructionData: base58.Encode(data),
	})
}

func viewOf(r state.Receipt) ReceiptView {
	return ReceiptView{Receipt: r, FeeSOL: lamportsToSOL(r.Fee)}
}

func lamportsToSOL(lamports uint64) string {
	return decimal.NewFromUint64(lamports).Shift(-lamportsDecimals).String()
}

type errorBody struct {
	Error string `json:"error"`
}

// statusOf maps the errors of a mint to an http status
func statusOf(err error) int {
	var programErr *faults.ProgramError
	switch {
	case errors.Is(err, faults.ErrInvalidTicketID):
		return http.StatusBadRequest
	case errors.Is(err, faults.ErrAlreadyMinted), errors.Is(err, minter.ErrMintInProgress):
		return http.StatusConflict
	case errors.Is(err, faults.ErrUnknownTicket):
		return http.StatusNotFound
	case errors.As(err, &programErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}
