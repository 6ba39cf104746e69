package http

import (
	"net/http"
	"time"

	"exam-quiz-service/internal/app"
	"exam-quiz-service/internal/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// NewRouter exposes the quiz service over HTTP.
func NewRouter(service *app.QuizService) http.Handler {
	quizzes := NewQuizHandler(service)
	results := NewResultsWSHandler(service)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/quizzes", func(r chi.Router) {
		r.Post("/", quizzes.CreateQuiz)
		r.Get("/", quizzes.ListQuizzes)
		r.Post("/generate", quizzes.GenerateQuiz)

		r.Route("/{quizID}", func(r chi.Router) {
			r.Get("/", quizzes.GetQuiz)
			r.Put("/", quizzes.UpdateQuiz)
			r.Delete("/", quizzes.DeleteQuiz)
			r.Get("/session", quizzes.QuizSession)
			r.Post("/submissions", quizzes.SubmitQuiz)
			r.Get("/results", quizzes.QuizResults)
			r.Get("/results/ws", results.ServeWS)
		})
	})

	r.Route("/students/{studentID}", func(r chi.Router) {
		r.Get("/available", quizzes.AvailableQuizzes)
		r.Get("/history", quizzes.ExamHistory)
	})

	r.Get("/submissions/{submissionID}", quizzes.SubmissionReview)
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		config.WithContext(r.Context()).WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"bytes":    ww.BytesWritten(),
			"duration": time.Since(start).String(),
		}).Info("http request")
	})
}
