package server

import (
	"net/http"

	"connectrpc.com/connect"
)

const (
	ReviewServiceName     = "studyprep.v1.ReviewService"
	AssessmentServiceName = "studyprep.v1.AssessmentService"
)

// Procedure paths served by the handlers.
const (
	ReviewServiceGetQueueProcedure        = "/" + ReviewServiceName + "/GetQueue"
	ReviewServiceGradeItemProcedure       = "/" + ReviewServiceName + "/GradeItem"
	ReviewServiceCreateFlashcardProcedure = "/" + ReviewServiceName + "/CreateFlashcard"

	AssessmentServiceCreateSessionProcedure   = "/" + AssessmentServiceName + "/CreateSession"
	AssessmentServiceStartSessionProcedure    = "/" + AssessmentServiceName + "/StartSession"
	AssessmentServiceGetSessionProcedure      = "/" + AssessmentServiceName + "/GetSession"
	AssessmentServiceListSessionsProcedure    = "/" + AssessmentServiceName + "/ListSessions"
	AssessmentServiceRecordAnswerProcedure    = "/" + AssessmentServiceName + "/RecordAnswer"
	AssessmentServiceToggleFlagProcedure      = "/" + AssessmentServiceName + "/ToggleFlag"
	AssessmentServiceSaveProgressProcedure    = "/" + AssessmentServiceName + "/SaveProgress"
	AssessmentServiceFinalizeSessionProcedure = "/" + AssessmentServiceName + "/FinalizeSession"
)

// NewReviewServiceHandler builds an HTTP handler for the review service and returns its path prefix.
func NewReviewServiceHandler(h *ReviewHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withCodec(opts)
	return "/" + ReviewServiceName + "/", route(map[string]http.Handler{
		ReviewServiceGetQueueProcedure:        connect.NewUnaryHandler(ReviewServiceGetQueueProcedure, h.GetQueue, opts...),
		ReviewServiceGradeItemProcedure:       connect.NewUnaryHandler(ReviewServiceGradeItemProcedure, h.GradeItem, opts...),
		ReviewServiceCreateFlashcardProcedure: connect.NewUnaryHandler(ReviewServiceCreateFlashcardProcedure, h.CreateFlashcard, opts...),
	})
}

// NewAssessmentServiceHandler builds an HTTP handler for the assessment service and returns its path prefix.
func NewAssessmentServiceHandler(h *AssessmentHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withCodec(opts)
	return "/" + AssessmentServiceName + "/", route(map[string]http.Handler{
		AssessmentServiceCreateSessionProcedure:   connect.NewUnaryHandler(AssessmentServiceCreateSessionProcedure, h.CreateSession, opts...),
		AssessmentServiceStartSessionProcedure:    connect.NewUnaryHandler(AssessmentServiceStartSessionProcedure, h.StartSession, opts...),
		AssessmentServiceGetSessionProcedure:      connect.NewUnaryHandler(AssessmentServiceGetSessionProcedure, h.GetSession, opts...),
		AssessmentServiceListSessionsProcedure:    connect.NewUnaryHandler(AssessmentServiceListSessionsProcedure, h.ListSessions, opts...),
		AssessmentServiceRecordAnswerProcedure:    connect.NewUnaryHandler(AssessmentServiceRecordAnswerProcedure, h.RecordAnswer, opts...),
		AssessmentServiceToggleFlagProcedure:      connect.NewUnaryHandler(AssessmentServiceToggleFlagProcedure, h.ToggleFlag, opts...),
		AssessmentServiceSaveProgressProcedure:    connect.NewUnaryHandler(AssessmentServiceSaveProgressProcedure, h.SaveProgress, opts...),
		AssessmentServiceFinalizeSessionProcedure: connect.NewUnaryHandler(AssessmentServiceFinalizeSessionProcedure, h.FinalizeSession, opts...),
	})
}

func withCodec(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(Codec())}, opts...)
}

func route(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}
