package http

import (
	"errors"
	"net/http"
	"time"

	"divider/internal/core"
)

type moneyDTO struct {
	Cents  int64  `json:"cents"`
	Amount string `json:"amount"`
}

func toMoneyDTO(m core.Money) moneyDTO {
	return moneyDTO{Cents: m.Cents, Amount: m.String()}
}

type transactionDTO struct {
	ID          string            `json:"id"`
	Seq         int64             `json:"seq"`
	Kind        string            `json:"kind"`
	Payer       string            `json:"payer"`
	Payee       string            `json:"payee,omitempty"`
	Amount      moneyDTO          `json:"amount"`
	Shares      map[string]string `json:"shares,omitempty"`
	Description string            `json:"description,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Active      bool              `json:"active"`
}

func toTransactionDTO(tx core.Transaction) transactionDTO {
	dto := transactionDTO{
		ID:          tx.ID,
		Seq:         tx.Seq,
		Kind:        tx.Kind,
		Payer:       tx.Payer,
		Payee:       tx.Payee,
		Amount:      toMoneyDTO(tx.Amount),
		Description: tx.Description,
		Timestamp:   tx.Timestamp,
		Active:      tx.Active,
	}
	if len(tx.Shares) > 0 {
		dto.Shares = make(map[string]string, len(tx.Shares))
		for person, cents := range tx.Shares {
			dto.Shares[person] = core.Money{Cents: cents}.String()
		}
	}
	return dto
}

func (s *Server) handleListLedgers(w http.ResponseWriter, r *http.Request) {
	names, err := s.service.ListLedgers(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ledgers": names})
}

func (s *Server) handleCreateLedger(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name   string   `json:"name"`
		People []string `json:"people"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	name := sanitizeInput(req.Name)
	if name == "" {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "ledger name is required"})
		return
	}
	for i, p := range req.People {
		req.People[i] = sanitizeInput(p)
	}

	if err := s.service.CreateLedger(r.Context(), name, req.People); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"name": name, "people": req.People})
}

func (s *Server) handleGetLedger(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	l, err := s.service.GetLedger(r.Context(), name)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	txs := l.Transactions()
	dtos := make([]transactionDTO, 0, len(txs))
	for _, tx := range txs {
		dtos = append(dtos, toTransactionDTO(tx))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"name":         name,
		"people":       l.People(),
		"total_spend":  toMoneyDTO(l.TotalSpend()),
		"transactions": dtos,
	})
}

func (s *Server) handleAddPerson(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.service.AddPerson(r.Context(), name, sanitizeInput(req.Name)); err != nil {
		writeDomainError(w, err)
		return
	}
	s.invalidateBalances(name)

	l, err := s.service.GetLedger(r.Context(), name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"people": l.People()})
}

func (s *Server) handleAddPayment(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req struct {
		From        string `json:"from"`
		To          string `json:"to"`
		Amount      string `json:"amount"`
		Description string `json:"description"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	id, err := s.service.AddPayment(r.Context(), name, req.From, req.To, amount, sanitizeInput(req.Description))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.invalidateBalances(name)

	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req struct {
		Payer       string            `json:"payer"`
		Amount      string            `json:"amount"`
		Shares      map[string]string `json:"shares"`
		Among       []string          `json:"among"`
		Description string            `json:"description"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	description := sanitizeInput(req.Description)

	var id string
	if len(req.Shares) > 0 {
		shares := make(map[string]int64, len(req.Shares))
		for person, v := range req.Shares {
			cents, err := core.ParseDecimalToCents(v)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			shares[person] = cents
		}
		id, err = s.service.AddExpense(r.Context(), name, req.Payer, amount, shares, description)
	} else {
		id, err = s.service.AddEvenExpense(r.Context(), name, req.Payer, amount, req.Among, description)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.invalidateBalances(name)

	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req struct {
		ID string `json:"id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.service.Undo(r.Context(), name, req.ID); err != nil {
		writeDomainError(w, err)
		return
	}
	s.invalidateBalances(name)

	writeJSON(w, http.StatusOK, map[string]any{"id": req.ID, "undone": true})
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	balances, found := s.balanceCache.Get(name)
	if !found {
		var err error
		balances, err = s.service.Balances(r.Context(), name)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		s.balanceCache.Set(name, balances)
	}

	dto := make(map[string]moneyDTO, len(balances))
	for person, m := range balances {
		dto[person] = toMoneyDTO(m)
	}
	writeJSON(w, http.StatusOK, map[string]any{"balances": dto})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	if err := s.service.Verify(r.Context(), name); err != nil {
		if errors.Is(err, core.ErrNoSuchLedger) {
			writeDomainError(w, err)
			return
		}
		// An integrity failure is reported as a conflict, not a server error.
		writeJSON(w, http.StatusConflict, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSettlement(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	plan, err := s.service.Settle(r.Context(), name)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	type instructionDTO struct {
		From   string   `json:"from"`
		To     string   `json:"to"`
		Amount moneyDTO `json:"amount"`
	}
	dtos := make([]instructionDTO, 0, len(plan))
	for _, ins := range plan {
		dtos = append(dtos, instructionDTO{From: ins.From, To: ins.To, Amount: toMoneyDTO(ins.Amount)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"instructions": dtos, "count": len(dtos)})
}
