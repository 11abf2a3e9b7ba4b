package server

import (
	"context"
	"fmt"

	"connectrpc.com/connect"

	"github.com/at-ishikawa/studyprep/internal/assessment"
	"github.com/at-ishikawa/studyprep/internal/clock"
	"github.com/at-ishikawa/studyprep/internal/content"
)

// AssessmentHandler serves the timed assessment session lifecycle.
type AssessmentHandler struct {
	service *assessment.Service
	clock   clock.Clock
}

// NewAssessmentHandler creates a new AssessmentHandler.
func NewAssessmentHandler(service *assessment.Service, c clock.Clock) *AssessmentHandler {
	return &AssessmentHandler{service: service, clock: c}
}

// CreateSession draws a new session for the caller.
func (h *AssessmentHandler) CreateSession(
	ctx context.Context,
	req *connect.Request[CreateSessionRequest],
) (*connect.Response[CreateSessionResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	owner, err := ownerFrom(ctx)
	if err != nil {
		return nil, err
	}

	result, err := h.service.Create(ctx, assessment.CreateRequest{
		Owner:    owner,
		Title:    req.Msg.Title,
		Quantity: req.Msg.Quantity,
		Filters: content.Filters{
			SourceID:   req.Msg.SourceID,
			SubjectIDs: req.Msg.SubjectIDs,
			Difficulty: req.Msg.Difficulty,
		},
		TimeLimitMinutes: req.Msg.TimeLimitMinutes,
	})
	if err != nil {
		return nil, toConnectError(fmt.Errorf("create session: %w", err))
	}

	resp := &CreateSessionResponse{Session: result.Session}
	if result.Shortfall != nil {
		resp.Shortfall = &Shortfall{
			Requested: result.Shortfall.Requested,
			Available: result.Shortfall.Available,
			Message:   result.Shortfall.String(),
		}
	}
	return connect.NewResponse(resp), nil
}

// StartSession starts the caller's session.
func (h *AssessmentHandler) StartSession(
	ctx context.Context,
	req *connect.Request[SessionRequest],
) (*connect.Response[SessionResponse], error) {
	return h.sessionCall(ctx, req, "start session", h.service.Start)
}

// GetSession returns the caller's session with the time left and, once completed, its summary.
func (h *AssessmentHandler) GetSession(
	ctx context.Context,
	req *connect.Request[SessionRequest],
) (*connect.Response[SessionResponse], error) {
	return h.sessionCall(ctx, req, "get session", h.service.Get)
}

// FinalizeSession scores the caller's session.
func (h *AssessmentHandler) FinalizeSession(
	ctx context.Context,
	req *connect.Request[SessionRequest],
) (*connect.Response[SessionResponse], error) {
	return h.sessionCall(ctx, req, "finalize session", h.service.Finalize)
}

// ListSessions returns the caller's session headers, newest first.
func (h *AssessmentHandler) ListSessions(
	ctx context.Context,
	req *connect.Request[ListSessionsRequest],
) (*connect.Response[ListSessionsResponse], error) {
	owner, err := ownerFrom(ctx)
	if err != nil {
		return nil, err
	}
	sessions, err := h.service.List(ctx, owner)
	if err != nil {
		return nil, toConnectError(fmt.Errorf("list sessions: %w", err))
	}
	if sessions == nil {
		sessions = []assessment.Session{}
	}
	return connect.NewResponse(&ListSessionsResponse{Sessions: sessions}), nil
}

// RecordAnswer stores the answer of one item.
func (h *AssessmentHandler) RecordAnswer(
	ctx context.Context,
	req *connect.Request[RecordAnswerRequest],
) (*connect.Response[SessionResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	owner, err := ownerFrom(ctx)
	if err != nil {
		return nil, err
	}

	session, err := h.service.RecordAnswer(ctx, owner, req.Msg.SessionID, req.Msg.ItemOrder, req.Msg.Answer, req.Msg.ElapsedSeconds)
	if err != nil {
		return nil, toConnectError(fmt.Errorf("record answer(%s): %w", req.Msg.SessionID, err))
	}
	return connect.NewResponse(h.sessionResponse(session, nil)), nil
}

// ToggleFlag flips the review flag of one item.
func (h *AssessmentHandler) ToggleFlag(
	ctx context.Context,
	req *connect.Request[ToggleFlagRequest],
) (*connect.Response[ToggleFlagResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	owner, err := ownerFrom(ctx)
	if err != nil {
		return nil, err
	}

	session, err := h.service.ToggleFlag(ctx, owner, req.Msg.SessionID, req.Msg.ItemOrder)
	if err != nil {
		return nil, toConnectError(fmt.Errorf("toggle flag(%s): %w", req.Msg.SessionID, err))
	}
	item, err := session.Item(req.Msg.ItemOrder)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ToggleFlagResponse{Flagged: item.FlaggedForReview, Session: session}), nil
}

// SaveProgress stores a batch of answers and flags captured by a client.
func (h *AssessmentHandler) SaveProgress(
	ctx context.Context,
	req *connect.Request[SaveProgressRequest],
) (*connect.Response[SaveProgressResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	owner, err := ownerFrom(ctx)
	if err != nil {
		return nil, err
	}

	if err := h.service.SaveProgress(ctx, owner, req.Msg.SessionID, req.Msg.Items); err != nil {
		return nil, toConnectError(fmt.Errorf("save progress(%s): %w", req.Msg.SessionID, err))
	}
	return connect.NewResponse(&SaveProgressResponse{}), nil
}

func (h *AssessmentHandler) sessionCall(
	ctx context.Context,
	req *connect.Request[SessionRequest],
	op string,
	call func(ctx context.Context, owner, id string) (*assessment.Session, error),
) (*connect.Response[SessionResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	owner, err := ownerFrom(ctx)
	if err != nil {
		return nil, err
	}

	session, err := call(ctx, owner, req.Msg.SessionID)
	if err != nil {
		return nil, toConnectError(fmt.Errorf("%s(%s): %w", op, req.Msg.SessionID, err))
	}

	var summary *assessment.Summary
	if session.Status == assessment.StatusCompleted {
		questions, err := h.service.Questions(ctx, session)
		if err != nil {
			return nil, toConnectError(fmt.Errorf("load questions(%s): %w", session.ID, err))
		}
		s := assessment.Summarize(session, questions)
		summary = &s
	}
	return connect.NewResponse(h.sessionResponse(session, summary)), nil
}

func (h *AssessmentHandler) sessionResponse(session *assessment.Session, summary *assessment.Summary) *SessionResponse {
	return &SessionResponse{
		Session:          session,
		RemainingSeconds: int64(session.Remaining(h.clock.Now()).Seconds()),
		Summary:          summary,
	}
}
