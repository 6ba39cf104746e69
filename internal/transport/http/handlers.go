package http

import (
	"encoding/json"
	"net/http"

	"exam-quiz-service/internal/app"
	"exam-quiz-service/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type QuizHandler struct {
	service *app.QuizService
}

func NewQuizHandler(service *app.QuizService) *QuizHandler {
	return &QuizHandler{service: service}
}

func (h *QuizHandler) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	var in app.QuizInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	quiz, err := h.service.CreateQuiz(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (h *QuizHandler) GenerateQuiz(w http.ResponseWriter, r *http.Request) {
	var in app.GenerateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	quiz, err := h.service.GenerateQuiz(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (h *QuizHandler) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.service.ListQuizzes(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *QuizHandler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, err := parseIDParam(r, "quizID")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	quiz, err := h.service.GetQuiz(r.Context(), quizID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *QuizHandler) UpdateQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, err := parseIDParam(r, "quizID")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	var in app.QuizInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	quiz, err := h.service.UpdateQuiz(r.Context(), quizID, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *QuizHandler) DeleteQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, err := parseIDParam(r, "quizID")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if err := h.service.DeleteQuiz(r.Context(), quizID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *QuizHandler) QuizSession(w http.ResponseWriter, r *http.Request) {
	quizID, err := parseIDParam(r, "quizID")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	session, err := h.service.QuizSession(r.Context(), quizID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// SubmitQuiz expects a JSON array of {"id", "response"} pairs.
func (h *QuizHandler) SubmitQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, err := parseIDParam(r, "quizID")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	studentID, err := parseStudentID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	var responses []domain.Response
	if err := json.NewDecoder(r.Body).Decode(&responses); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	sub, err := h.service.SubmitQuiz(r.Context(), quizID, studentID, responses)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *QuizHandler) QuizResults(w http.ResponseWriter, r *http.Request) {
	quizID, err := parseIDParam(r, "quizID")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	results, err := h.service.QuizResults(r.Context(), quizID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *QuizHandler) AvailableQuizzes(w http.ResponseWriter, r *http.Request) {
	studentID, err := parseIDParam(r, "studentID")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	quizzes, err := h.service.AvailableQuizzes(r.Context(), studentID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *QuizHandler) ExamHistory(w http.ResponseWriter, r *http.Request) {
	studentID, err := parseIDParam(r, "studentID")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	history, err := h.service.ExamHistory(r.Context(), studentID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *QuizHandler) SubmissionReview(w http.ResponseWriter, r *http.Request) {
	submissionID, err := uuid.Parse(chi.URLParam(r, "submissionID"))
	if err != nil {
		writeBadRequest(w, "submissionID must be a uuid")
		return
	}
	studentID, err := parseStudentID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	review, err := h.service.SubmissionReview(r.Context(), submissionID, studentID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}
