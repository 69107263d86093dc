package analysis

import (
	"context"
	"errors"
	"time"

	domain "github.com/bryanwahyu/research-camera/internal/domain/analysis"
	"github.com/bryanwahyu/research-camera/internal/logger"
)

// Recorder receives the outcome of every Analyze call. The metrics middleware
// implements it; nil is allowed.
type Recorder interface {
	RecordAnalysis(outcome string, d time.Duration)
}

const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeQuota   = "quota"
	OutcomeFailed  = "failed"
)

type Service struct {
	client   domain.Client
	recorder Recorder
	log      *logger.Logger
}

func NewService(client domain.Client, recorder Recorder, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{client: client, recorder: recorder, log: log}
}

// Analyze validates req at the server boundary and forwards it to the model.
// The returned error is a validation error, ErrQuotaExceeded or *FailedError.
func (s *Service) Analyze(ctx context.Context, req domain.Request) (domain.Result, error) {
	start := time.Now()
	if err := req.Validate(); err != nil {
		s.record(OutcomeInvalid, start)
		return domain.Result{}, err
	}

	res, err := s.client.Analyze(ctx, req)
	if err != nil {
		err = domain.Failed(err)
		if errors.Is(err, domain.ErrQuotaExceeded) {
			s.record(OutcomeQuota, start)
			s.log.Warn().Err(err).Msg("ai quota exceeded")
		} else {
			s.record(OutcomeFailed, start)
			s.log.Error().Err(err).Int("images", len(req.Images)).Msg("analysis failed")
		}
		return domain.Result{}, err
	}

	s.record(OutcomeOK, start)
	s.log.Info().
		Int("images", len(req.Images)).
		Str("mode", string(req.Mode)).
		Str("audience", string(req.Audience)).
		Int("sections", len(res.Sections)).
		Dur("took", time.Since(start)).
		Msg("analysis complete")
	return res, nil
}

func (s *Service) record(outcome string, start time.Time) {
	if s.recorder != nil {
		s.recorder.RecordAnalysis(outcome, time.Since(start))
	}
}
