package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/absentiahq/absentia/internal/services/directory"
	"github.com/absentiahq/absentia/internal/services/directory/absence"
	"github.com/absentiahq/absentia/internal/services/directory/employee"
)

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name,omitempty"`
	CompanyID   string `json:"company_id,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
}

type sessionResponse struct {
	AccessToken string `json:"access_token,omitempty"`
	SessionID   string `json:"session_id"`
	UserID      string `json:"user_id"`
	CompanyID   string `json:"company_id,omitempty"`
	ExpiresAt   int64  `json:"expires_at"`
}

func toSessionResponse(session directory.AuthSession, includeToken bool) sessionResponse {
	response := sessionResponse{
		SessionID: session.SessionID,
		UserID:    session.UserID,
		CompanyID: session.CompanyID,
		ExpiresAt: session.ExpiresAt.Unix(),
	}
	if includeToken {
		response.AccessToken = session.AccessToken
	}
	return response
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var request signInRequest
	if err := decodeJSON(r, &request); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	session, err := s.service.SignIn(r.Context(), request.Email, request.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toSessionResponse(session, true))
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var request signUpRequest
	if err := decodeJSON(r, &request); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	session, err := s.service.SignUp(r.Context(), directory.SignUpInput{
		Email:       request.Email,
		Password:    request.Password,
		Name:        request.Name,
		CompanyID:   request.CompanyID,
		CompanyName: request.CompanyName,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toSessionResponse(session, true))
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.service.SignOut(r.Context(), bearerToken(r)); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type profileResponse struct {
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	Role      string `json:"role"`
}

type sessionIntrospection struct {
	Session sessionResponse  `json:"session"`
	Profile *profileResponse `json:"profile,omitempty"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	accessToken := bearerToken(r)
	if accessToken == "" {
		s.writeError(w, directory.ErrSessionExpired)
		return
	}
	session, err := s.service.CurrentSession(r.Context(), accessToken)
	if err != nil {
		s.writeError(w, err)
		return
	}
	response := sessionIntrospection{Session: toSessionResponse(session, false)}
	if record, err := s.service.GetProfile(r.Context(), session.UserID); err == nil {
		response.Profile = &profileResponse{
			UserID:    record.UserID,
			CompanyID: record.CompanyID,
			Email:     record.Email,
			Name:      record.Name,
			Role:      string(record.Role),
		}
	}
	s.writeJSON(w, http.StatusOK, response)
}

type employeeResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Position string `json:"position,omitempty"`
}

type employeeListResponse struct {
	Employees     []employeeResponse `json:"employees"`
	NextPageToken string             `json:"next_page_token,omitempty"`
}

type createEmployeeRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Position string `json:"position,omitempty"`
}

func toEmployeeResponse(e employee.Employee) employeeResponse {
	return employeeResponse{ID: e.ID, Name: e.Name, Email: e.Email, Position: e.Position}
}

func (s *Server) handleEmployees(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		page, err := s.service.ListEmployees(r.Context(), pageSize(r), r.URL.Query().Get("page_token"))
		if err != nil {
			s.writeError(w, err)
			return
		}
		response := employeeListResponse{
			Employees:     make([]employeeResponse, 0, len(page.Employees)),
			NextPageToken: page.NextPageToken,
		}
		for _, e := range page.Employees {
			response.Employees = append(response.Employees, toEmployeeResponse(e))
		}
		s.writeJSON(w, http.StatusOK, response)
	case http.MethodPost:
		var request createEmployeeRequest
		if err := decodeJSON(r, &request); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		created, err := s.service.CreateEmployee(r.Context(), employee.CreateInput{
			Name:     request.Name,
			Email:    request.Email,
			Position: request.Position,
		})
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, toEmployeeResponse(created))
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type absenceResponse struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employee_id"`
	Kind       string `json:"kind"`
	StartsOn   string `json:"starts_on"`
	EndsOn     string `json:"ends_on"`
	Days       int    `json:"days"`
	Reason     string `json:"reason,omitempty"`
}

type absenceListResponse struct {
	Absences      []absenceResponse `json:"absences"`
	NextPageToken string            `json:"next_page_token,omitempty"`
}

type recordAbsenceRequest struct {
	EmployeeID string `json:"employee_id"`
	Kind       string `json:"kind"`
	StartsOn   string `json:"starts_on"`
	EndsOn     string `json:"ends_on"`
	Reason     string `json:"reason,omitempty"`
}

const dateLayout = "2006-01-02"

func toAbsenceResponse(a absence.Absence) absenceResponse {
	return absenceResponse{
		ID:         a.ID,
		EmployeeID: a.EmployeeID,
		Kind:       string(a.Kind),
		StartsOn:   a.StartsOn.Format(dateLayout),
		EndsOn:     a.EndsOn.Format(dateLayout),
		Days:       a.Days(),
		Reason:     a.Reason,
	}
}

func (s *Server) handleAbsences(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		page, err := s.service.ListAbsences(r.Context(),
			r.URL.Query().Get("employee_id"), pageSize(r), r.URL.Query().Get("page_token"))
		if err != nil {
			s.writeError(w, err)
			return
		}
		response := absenceListResponse{
			Absences:      make([]absenceResponse, 0, len(page.Absences)),
			NextPageToken: page.NextPageToken,
		}
		for _, a := range page.Absences {
			response.Absences = append(response.Absences, toAbsenceResponse(a))
		}
		s.writeJSON(w, http.StatusOK, response)
	case http.MethodPost:
		var request recordAbsenceRequest
		if err := decodeJSON(r, &request); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		startsOn, err := time.Parse(dateLayout, request.StartsOn)
		if err != nil {
			http.Error(w, "starts_on must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		endsOn, err := time.Parse(dateLayout, request.EndsOn)
		if err != nil {
			http.Error(w, "ends_on must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		created, err := s.service.RecordAbsence(r.Context(), absence.CreateInput{
			EmployeeID: request.EmployeeID,
			Kind:       absence.Kind(request.Kind),
			StartsOn:   startsOn,
			EndsOn:     endsOn,
			Reason:     request.Reason,
		})
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, toAbsenceResponse(created))
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type employeeSummaryResponse struct {
	EmployeeID   string `json:"employee_id"`
	EmployeeName string `json:"employee_name"`
	AbsenceCount int64  `json:"absence_count"`
	TotalDays    int64  `json:"total_days"`
}

func (s *Server) handleEmployeeSummaries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	summaries, err := s.service.EmployeeAbsenceSummaries(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	response := make([]employeeSummaryResponse, 0, len(summaries))
	for _, summary := range summaries {
		response = append(response, employeeSummaryResponse{
			EmployeeID:   summary.EmployeeID,
			EmployeeName: summary.EmployeeName,
			AbsenceCount: summary.AbsenceCount,
			TotalDays:    summary.TotalDays,
		})
	}
	s.writeJSON(w, http.StatusOK, response)
}

type companyStatsResponse struct {
	EmployeeCount int64 `json:"employee_count"`
	AbsenceCount  int64 `json:"absence_count"`
	TotalDays     int64 `json:"total_days"`
}

func (s *Server) handleCompanyStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var since *time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			http.Error(w, "since must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		since = &parsed
	}
	stats, err := s.service.CompanyAbsenceStats(r.Context(), since)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, companyStatsResponse{
		EmployeeCount: stats.EmployeeCount,
		AbsenceCount:  stats.AbsenceCount,
		TotalDays:     stats.TotalDays,
	})
}

func pageSize(r *http.Request) int {
	const (
		defaultSize = 50
		maxSize     = 200
	)
	size, err := strconv.Atoi(r.URL.Query().Get("page_size"))
	if err != nil || size <= 0 {
		return defaultSize
	}
	if size > maxSize {
		return maxSize
	}
	return size
}
