package http

import (
	"net/http"

	"financeflow/internal/analytics"
	"financeflow/internal/core"
	applog "financeflow/internal/log"
	"financeflow/internal/services"
)

func (s *Server) billView(b core.Bill) any {
	return analytics.BillView{Bill: b, State: analytics.BillStatus(b, s.svc.Now())}
}

func (s *Server) goalView(g core.Goal) any {
	return analytics.GoalView{Goal: g, Progress: analytics.GoalProgress(g, s.svc.Now())}
}

func (s *Server) listTransactions(r *http.Request) (any, error) {
	f, err := parseTransactionFilter(r.URL.Query())
	if err != nil {
		return nil, err
	}
	return s.svc.SearchTransactions(r.Context(), f)
}

func (s *Server) listBills(r *http.Request) (any, error) {
	return s.svc.DescribedBills(r.Context())
}

func (s *Server) listGoals(r *http.Request) (any, error) {
	return s.svc.DescribedGoals(r.Context())
}

func (s *Server) handlePayBill(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, applog.OpPay, err)
		return
	}
	bill, err := s.svc.MarkBillPaid(r.Context(), id)
	if err != nil {
		writeError(w, r, applog.OpPay, err)
		return
	}
	writeJSON(w, http.StatusOK, s.billView(bill))
}

func (s *Server) handleUpcomingBills(w http.ResponseWriter, r *http.Request) {
	bills, err := s.svc.UpcomingBills(r.Context())
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, bills)
}

func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, applog.OpContribute, err)
		return
	}
	var req contributionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpContribute, err)
		return
	}
	amount, err := core.ParseAmount(req.Amount.String())
	if err != nil {
		writeError(w, r, applog.OpContribute, &services.ValidationError{Err: err})
		return
	}
	goal, err := s.svc.ContributeToGoal(r.Context(), id, amount)
	if err != nil {
		writeError(w, r, applog.OpContribute, err)
		return
	}
	writeJSON(w, http.StatusOK, s.goalView(goal))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := s.svc.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.Trend(r.Context(), parseMonths(r.URL.Query()))
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	totals, err := s.svc.SpendByCategory(r.Context())
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleTopCategories(w http.ResponseWriter, r *http.Request) {
	totals, err := s.svc.TopCategories(r.Context())
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	usage, err := s.svc.BudgetReport(r.Context())
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, usage)
}

func (s *Server) handleTestimonials(w http.ResponseWriter, r *http.Request) {
	featured, err := parseFeatured(r.URL.Query())
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	var items []core.Testimonial
	if featured {
		items, err = s.svc.Testimonials.Featured(r.Context())
	} else {
		items, err = s.svc.Testimonials.List(r.Context())
	}
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleTestimonial(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	t, err := s.svc.Testimonials.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports 503 while the backing store cannot be reached.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err.Error())
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
