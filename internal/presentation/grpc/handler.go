package grpc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/AyushPandey510/Phis-Shield/internal/application/dto"
	"github.com/AyushPandey510/Phis-Shield/internal/application/usecase"
	"github.com/AyushPandey510/Phis-Shield/pkg/auth"
)

// requireRole checks that the caller has at least one of the given roles.
func requireRole(ctx context.Context, roles ...string) error {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "authentication required")
	}
	for _, role := range roles {
		if claims.HasRole(role) {
			return nil
		}
	}
	return status.Error(codes.PermissionDenied, "insufficient permissions")
}

// Compile-time assertion that RiskServiceHandler implements RiskServiceServer.
var _ RiskServiceServer = (*RiskServiceHandler)(nil)

// RiskServiceHandler implements the gRPC RiskServiceServer interface.
type RiskServiceHandler struct {
	UnimplementedRiskServiceServer
	assessTarget  *usecase.AssessTarget
	getAssessment *usecase.GetAssessment
	logger        *slog.Logger
}

// NewRiskServiceHandler creates a new gRPC handler.
func NewRiskServiceHandler(
	assessTarget *usecase.AssessTarget,
	getAssessment *usecase.GetAssessment,
	logger *slog.Logger,
) *RiskServiceHandler {
	return &RiskServiceHandler{
		assessTarget:  assessTarget,
		getAssessment: getAssessment,
		logger:        logger,
	}
}

// Proto-aligned request/response message types.

// AssessTargetRequest represents the proto AssessTargetRequest message.
// Kind selects the union variant: URL targets carry Url, EMAIL_TEXT targets
// carry Subject and Body.
type AssessTargetRequest struct {
	Kind    string `json:"kind"`
	Url     string `json:"url"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SignalMsg represents the proto Signal message.
type SignalMsg struct {
	SignalName string   `json:"signal_name"`
	Status     string   `json:"status"`
	Verdict    string   `json:"verdict"`
	Score      int32    `json:"score"`
	Confidence float64  `json:"confidence"`
	Floor      int32    `json:"floor"`
	Evidence   []string `json:"evidence"`
}

// RiskAssessmentMsg represents the proto RiskAssessment message.
type RiskAssessmentMsg struct {
	ID                string       `json:"id"`
	TargetKind        string       `json:"target_kind"`
	Target            string       `json:"target"`
	TargetDigest      string       `json:"target_digest"`
	Status            string       `json:"status"`
	Tier              string       `json:"tier"`
	OverallScore      int32        `json:"overall_score"`
	DomainTrust       string       `json:"domain_trust"`
	ExternalConsensus float64      `json:"external_consensus"`
	ClassifierWeight  float64      `json:"classifier_weight"`
	Signals           []*SignalMsg `json:"signals"`
	Notes             []string     `json:"notes"`
	Evidence          []string     `json:"evidence"`
	FailureReason     string       `json:"failure_reason"`
	Stale             bool         `json:"stale"`
	AssessedAt        string       `json:"assessed_at"`
}

// AssessTargetResponse represents the proto AssessTargetResponse message.
type AssessTargetResponse struct {
	Assessment *RiskAssessmentMsg `json:"assessment"`
}

// GetAssessmentRequest represents the proto GetAssessmentRequest message.
type GetAssessmentRequest struct {
	TargetDigest string `json:"target_digest"`
}

// GetAssessmentResponse represents the proto GetAssessmentResponse message.
type GetAssessmentResponse struct {
	Assessment *RiskAssessmentMsg `json:"assessment"`
}

// AssessTarget handles a target assessment request.
func (h *RiskServiceHandler) AssessTarget(ctx context.Context, req *AssessTargetRequest) (*AssessTargetResponse, error) {
	if err := requireRole(ctx, auth.RoleAdmin, auth.RoleAnalyst, auth.RoleAPIClient); err != nil {
		return nil, err
	}

	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	h.logger.Info("assessing target",
		slog.String("kind", req.Kind),
	)

	result, err := h.assessTarget.Execute(ctx, dto.AssessTargetRequest{
		Kind:    req.Kind,
		URL:     req.Url,
		Subject: req.Subject,
		Body:    req.Body,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidTarget) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		h.logger.Error("failed to assess target",
			slog.String("kind", req.Kind),
			slog.String("error", err.Error()),
		)
		return nil, status.Error(codes.Internal, "internal error")
	}

	return &AssessTargetResponse{
		Assessment: toRiskAssessmentMsg(result),
	}, nil
}

// GetAssessment handles a cached assessment lookup by target digest.
func (h *RiskServiceHandler) GetAssessment(ctx context.Context, req *GetAssessmentRequest) (*GetAssessmentResponse, error) {
	if err := requireRole(ctx, auth.RoleAdmin, auth.RoleAnalyst, auth.RoleAPIClient); err != nil {
		return nil, err
	}

	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	result, err := h.getAssessment.Execute(ctx, dto.GetAssessmentRequest{
		TargetDigest: req.TargetDigest,
	})
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidTarget):
			return nil, status.Error(codes.InvalidArgument, err.Error())
		case errors.Is(err, usecase.ErrAssessmentNotFound):
			return nil, status.Error(codes.NotFound, err.Error())
		default:
			h.logger.Error("failed to get assessment",
				slog.String("target_digest", req.TargetDigest),
				slog.String("error", err.Error()),
			)
			return nil, status.Error(codes.Internal, "internal error")
		}
	}

	return &GetAssessmentResponse{
		Assessment: toRiskAssessmentMsg(result),
	}, nil
}

// toRiskAssessmentMsg maps the application DTO to the wire message.
func toRiskAssessmentMsg(resp dto.AssessmentResponse) *RiskAssessmentMsg {
	signals := make([]*SignalMsg, 0, len(resp.Signals))
	for _, sig := range resp.Signals {
		signals = append(signals, &SignalMsg{
			SignalName: sig.SignalName,
			Status:     sig.Status,
			Verdict:    sig.Verdict,
			Score:      int32(sig.Score),
			Confidence: sig.Confidence,
			Floor:      int32(sig.Floor),
			Evidence:   sig.Evidence,
		})
	}

	return &RiskAssessmentMsg{
		ID:                resp.ID.String(),
		TargetKind:        resp.TargetKind,
		Target:            resp.Target,
		TargetDigest:      resp.TargetDigest,
		Status:            resp.Status,
		Tier:              resp.Tier,
		OverallScore:      int32(resp.OverallScore),
		DomainTrust:       resp.DomainTrust,
		ExternalConsensus: resp.ExternalConsensus,
		ClassifierWeight:  resp.ClassifierWeight,
		Signals:           signals,
		Notes:             resp.Notes,
		Evidence:          resp.Evidence,
		FailureReason:     resp.FailureReason,
		Stale:             resp.Stale,
		AssessedAt:        resp.AssessedAt.UTC().Format(time.RFC3339Nano),
	}
}
