package trendanalyst

import (
	"sort"
	"sync"
	"time"

	"trendwatch/internal/models"
)

// PipelineState tracks the two-stage pipeline through one run.
type PipelineState string

const (
	StateIdle         PipelineState = "idle"
	StateAnalyzing    PipelineState = "analyzing"
	StateAnalyzed     PipelineState = "analyzed"
	StateSynthesizing PipelineState = "synthesizing"
	StateDone         PipelineState = "done"
	StateErrored      PipelineState = "errored"
)

func (s PipelineState) Terminal() bool {
	return s == StateDone || s == StateErrored
}

// RunOutcome is the aggregate verdict of a run, derived for the presentation
// layer: it distinguishes "no data available" from "run failed" from
// "report produced but some channels failed".
type RunOutcome string

const (
	OutcomeRunning  RunOutcome = "running"
	OutcomeReport   RunOutcome = "report"
	OutcomeDegraded RunOutcome = "degraded"
	OutcomeNoData   RunOutcome = "no-data"
	OutcomeFailed   RunOutcome = "failed"
)

// RunSession owns the working set of one end-to-end invocation: the channel
// requests, per-channel outcomes, transcript records keyed by video ID, the
// analysis stage's output and the final report. It is discarded at end of
// request; only the transcript cache outlives it. Once the pipeline reaches
// a terminal state the session freezes and mutators become no-ops.
type RunSession struct {
	mu        sync.RWMutex
	startedAt time.Time
	dateRange models.DateRange
	requests  []*models.ChannelRequest
	outcomes  []models.ChannelOutcome
	records   map[string]*models.TranscriptRecord
	analysis  *models.AnalysisResult
	report    *models.Report
	state     PipelineState
	failure   string
	frozen    bool
}

func NewRunSession(references []string, dateRange models.DateRange) *RunSession {
	requests := make([]*models.ChannelRequest, 0, len(references))
	for _, ref := range references {
		requests = append(requests, &models.ChannelRequest{
			Reference: ref,
			Status:    models.ResolutionUnresolved,
		})
	}
	return &RunSession{
		startedAt: time.Now(),
		dateRange: dateRange,
		requests:  requests,
		records:   make(map[string]*models.TranscriptRecord),
		state:     StateIdle,
	}
}

func (s *RunSession) DateRange() models.DateRange {
	return s.dateRange
}

// Requests returns a snapshot of the channel requests.
func (s *RunSession) Requests() []*models.ChannelRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.ChannelRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// RecordOutcome stores a per-channel scrape outcome and settles the matching
// request's resolution status.
func (s *RunSession) RecordOutcome(outcome models.ChannelOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen {
		return
	}
	s.outcomes = append(s.outcomes, outcome)
	for _, req := range s.requests {
		if req.Reference != outcome.Reference || req.Status != models.ResolutionUnresolved {
			continue
		}
		if outcome.ChannelID != "" {
			req.ChannelID = outcome.ChannelID
			req.Status = models.ResolutionResolved
		} else {
			req.Status = models.ResolutionFailed
		}
		break
	}
}

// AddRecord stores a transcript record keyed by video ID. The first record
// for an ID wins, so aggregation is independent of fetch completion order.
func (s *RunSession) AddRecord(rec *models.TranscriptRecord) {
	if rec == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen {
		return
	}
	if _, ok := s.records[rec.VideoID]; !ok {
		s.records[rec.VideoID] = rec
	}
}

// UsableRecords returns the records with status ok in a deterministic order
// (channel title, then newest first) regardless of how fetches completed.
func (s *RunSession) UsableRecords() []*models.TranscriptRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var usable []*models.TranscriptRecord
	for _, rec := range s.records {
		if rec.Usable() {
			usable = append(usable, rec)
		}
	}
	sort.Slice(usable, func(i, j int) bool {
		if usable[i].ChannelTitle != usable[j].ChannelTitle {
			return usable[i].ChannelTitle < usable[j].ChannelTitle
		}
		return usable[i].PublishedAt.After(usable[j].PublishedAt)
	})
	return usable
}

func (s *RunSession) SetAnalysis(analysis models.AnalysisResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen {
		return
	}
	s.analysis = &analysis
}

// Analysis returns the Stage 1 output, which stays inspectable even when the
// synthesis stage fails.
func (s *RunSession) Analysis() *models.AnalysisResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.analysis
}

func (s *RunSession) SetReport(markdown string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen {
		return
	}
	s.report = &models.Report{GeneratedAt: time.Now(), Markdown: markdown}
}

// setState advances the pipeline state mirror. Terminal states freeze the
// session; once frozen no further transition or mutation is possible.
func (s *RunSession) setState(state PipelineState, failure string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen {
		return
	}
	s.state = state
	s.failure = failure
	if state.Terminal() {
		s.frozen = true
	}
}

func (s *RunSession) State() PipelineState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Status is the aggregate view exposed to the presentation layer.
type Status struct {
	State       PipelineState           `json:"state"`
	Outcome     RunOutcome              `json:"outcome"`
	Failure     string                  `json:"failure,omitempty"`
	DateRange   models.DateRange        `json:"date_range"`
	Channels    []models.ChannelOutcome `json:"channels"`
	Transcripts int                     `json:"transcripts"`
	Report      string                  `json:"report,omitempty"`
	GeneratedAt time.Time               `json:"generated_at,omitempty"`
}

func (s *RunSession) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := Status{
		State:     s.state,
		Failure:   s.failure,
		DateRange: s.dateRange,
		Channels:  append([]models.ChannelOutcome(nil), s.outcomes...),
	}
	for _, rec := range s.records {
		if rec.Usable() {
			status.Transcripts++
		}
	}
	if s.report != nil {
		status.Report = s.report.Markdown
		status.GeneratedAt = s.report.GeneratedAt
	}

	anyFailed := false
	for _, o := range s.outcomes {
		if o.Failed() {
			anyFailed = true
			break
		}
	}
	switch {
	case s.state == StateDone && anyFailed:
		status.Outcome = OutcomeDegraded
	case s.state == StateDone:
		status.Outcome = OutcomeReport
	case s.state == StateErrored && s.failure == models.ErrNoUsableInput.Error():
		status.Outcome = OutcomeNoData
	case s.state == StateErrored:
		status.Outcome = OutcomeFailed
	default:
		status.Outcome = OutcomeRunning
	}
	return status
}
