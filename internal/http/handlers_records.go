package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"spendbook/internal/core"
)

type recordPayload struct {
	Text     string      `json:"text"`
	Amount   json.Number `json:"amount"`
	Category string      `json:"category"`
	Date     string      `json:"date"`
}

type recordView struct {
	ID          string  `json:"id"`
	Text        string  `json:"text"`
	Amount      float64 `json:"amount"`
	AmountCents int64   `json:"amountCents"`
	Category    string  `json:"category"`
	Date        string  `json:"date"`
	Month       string  `json:"month"`
}

type listView struct {
	Records      []recordView `json:"records"`
	Page         int          `json:"page"`
	TotalPages   int          `json:"totalPages"`
	TotalRecords int          `json:"totalRecords"`
	Months       []string     `json:"months"`
	Category     string       `json:"category"`
	Month        string       `json:"month"`
}

type bucketView struct {
	Category string  `json:"category"`
	Label    string  `json:"label"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
}

func toRecordView(r core.Record) recordView {
	return recordView{
		ID:          r.ID,
		Text:        r.Text,
		Amount:      r.Amount.Float(),
		AmountCents: r.Amount.Cents,
		Category:    string(r.Category),
		Date:        r.Date.Format("2006-01-02"),
		Month:       r.Date.MonthKey(),
	}
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var payload recordPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cents, err := core.ParseDecimalToCents(payload.Amount.String())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	rec, err := s.service.Create(r.Context(), payload.Text, core.Money{Cents: cents}, payload.Category, payload.Date)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusCreated, toRecordView(rec))
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	all, err := s.listRecords(r.Context(), owner)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	category := queryOrAll(r, "category")
	month := queryOrAll(r, "month")
	page := 1
	if v := strings.TrimSpace(r.URL.Query().Get("page")); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			page = p
		}
	}

	filtered := core.FilterRecords(all, category, month)
	paged := core.Paginate(filtered, page)

	view := listView{
		Records:      make([]recordView, 0, len(paged.Records)),
		Page:         paged.Number,
		TotalPages:   paged.TotalPages,
		TotalRecords: paged.TotalRecords,
		Months:       core.AvailableMonths(all),
		Category:     category,
		Month:        month,
	}
	for _, rec := range paged.Records {
		view.Records = append(view.Records, toRecordView(rec))
	}

	respondData(w, http.StatusOK, view)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	all, err := s.listRecords(r.Context(), owner)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	buckets := core.SummarizeByCategory(all)
	view := make([]bucketView, 0, len(buckets))
	for _, b := range buckets {
		view = append(view, bucketView{
			Category: string(b.Category),
			Label:    b.Label,
			Total:    b.Total.Float(),
			Count:    b.Count,
		})
	}

	respondData(w, http.StatusOK, map[string]any{"buckets": view})
}

func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var payload recordPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cents, err := core.ParseDecimalToCents(payload.Amount.String())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	rec, err := s.service.Update(r.Context(), id, payload.Text, core.Money{Cents: cents}, payload.Category)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, toRecordView(rec))
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := s.service.Delete(r.Context(), id); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, map[string]string{"deleted": id})
}

func queryOrAll(r *http.Request, name string) string {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return core.FilterAll
	}
	return v
}
