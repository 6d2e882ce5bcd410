package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yildizm/diagd/internal/ai"
	"github.com/yildizm/diagd/internal/artifact"
	"github.com/yildizm/diagd/internal/classify"
	"github.com/yildizm/diagd/internal/config"
	"github.com/yildizm/diagd/internal/correlate"
	"github.com/yildizm/diagd/internal/knowledge"
	"github.com/yildizm/diagd/internal/logger"
	"github.com/yildizm/diagd/internal/prompt"
	"github.com/yildizm/diagd/internal/report"
	"github.com/yildizm/diagd/internal/session"
)

// ErrNoUsableArtifacts is returned when no submitted artifact could be
// decoded into at least one line.
var ErrNoUsableArtifacts = errors.New("no usable artifacts in submission")

// Input is one artifact submitted for analysis.
type Input struct {
	ID       string
	Filename string
	Hint     string // optional artifact kind hint, overrides filename detection
	Data     []byte
}

// Options configures a pipeline. Nil collaborators disable the optional
// stages they serve: a nil Knowledge store skips retrieval, a nil Provider
// skips the completion step.
type Options struct {
	Rules     []*classify.Rule
	Knowledge knowledge.Store
	Provider  ai.Provider
	Sessions  session.Store
	Logger    *logger.Logger
	Analysis  config.AnalysisConfig
	AITimeout time.Duration
}

// Pipeline runs the full diagnostic analysis: normalize, classify,
// correlate, retrieve, synthesize, complete, report.
type Pipeline struct {
	classifier  *classify.Classifier
	correlator  *correlate.Correlator
	retriever   *knowledge.Retriever
	synthesizer *prompt.Synthesizer
	integrator  *ai.Integrator
	sessions    session.Store
	log         *logger.Logger

	workers      int
	hasKnowledge bool
	hasProvider  bool
}

// New creates a pipeline from options.
func New(opts Options) (*Pipeline, error) {
	analysis := opts.Analysis
	if analysis.Workers <= 0 {
		analysis.Workers = config.DefaultConfig().Analysis.Workers
	}

	rules := opts.Rules
	if rules == nil {
		loaded, err := classify.LoadDefaultRules()
		if err != nil {
			return nil, fmt.Errorf("loading default rules: %w", err)
		}
		rules = loaded
	}

	var classifierOpts []classify.Option
	if analysis.ParseSuccessThreshold > 0 {
		classifierOpts = append(classifierOpts, classify.WithSuccessThreshold(analysis.ParseSuccessThreshold))
	}
	classifier, err := classify.NewClassifier(rules, classifierOpts...)
	if err != nil {
		return nil, fmt.Errorf("building classifier: %w", err)
	}

	sessions := opts.Sessions
	if sessions == nil {
		sessions = session.NewMemoryStore()
	}

	log := opts.Logger
	if log == nil {
		log = logger.New("pipeline", false)
	}

	synthOpts := prompt.Options{
		MaxChars: analysis.PromptMaxChars,
	}

	retrieverOpts := knowledge.RetrieverOptions{
		MaxResultsPerQuery: analysis.PerQueryResults,
	}

	correlator := correlate.NewCorrelator(correlate.Options{
		TimingWindow:        analysis.TimingWindow,
		SimilarityThreshold: analysis.SimilarityThreshold,
	})

	return &Pipeline{
		classifier:   classifier,
		correlator:   correlator,
		retriever:    knowledge.NewRetriever(opts.Knowledge, retrieverOpts),
		synthesizer:  prompt.NewSynthesizer(synthOpts),
		integrator:   ai.NewIntegrator(opts.Provider, opts.AITimeout, log.WithComponent("ai")),
		sessions:     sessions,
		log:          log,
		workers:      analysis.Workers,
		hasKnowledge: opts.Knowledge != nil,
		hasProvider:  opts.Provider != nil,
	}, nil
}

// Sessions exposes the session store backing Submit.
func (p *Pipeline) Sessions() session.Store {
	return p.sessions
}

// Submit registers a session and runs the analysis asynchronously. The
// session reaches the completed state with a report attached, or the
// error state when nothing could be analyzed.
func (p *Pipeline) Submit(ctx context.Context, inputs []Input) (*session.Session, error) {
	sess, err := p.sessions.Create(ctx)
	if err != nil {
		return nil, err
	}

	go func() {
		// The analysis outlives the submitting request.
		runCtx := context.WithoutCancel(ctx)

		r, err := p.run(runCtx, inputs, sess.ID)
		if err != nil {
			p.log.Warn("analysis for session %s failed: %v", sess.ID, err)
			if markErr := p.sessions.MarkError(runCtx, sess.ID, err.Error()); markErr != nil {
				p.log.Error("marking session %s failed: %v", sess.ID, markErr)
			}
			return
		}
		if err := p.sessions.StoreResult(runCtx, sess.ID, r); err != nil {
			p.log.Error("storing result for session %s failed: %v", sess.ID, err)
		}
	}()

	return sess, nil
}

// Analyze runs the full analysis synchronously and returns the report.
func (p *Pipeline) Analyze(ctx context.Context, inputs []Input) (*report.Report, error) {
	return p.run(ctx, inputs, "")
}

func (p *Pipeline) run(ctx context.Context, inputs []Input, sessionID string) (*report.Report, error) {
	progress := func(pct int, stage, message string) {
		if sessionID == "" {
			return
		}
		if err := p.sessions.UpdateProgress(ctx, sessionID, pct, stage, message); err != nil {
			p.log.Debug("progress update for %s dropped: %v", sessionID, err)
		}
	}

	progress(10, "normalizing", "decoding submitted artifacts")
	artifacts, stats := p.normalizeAll(ctx, inputs)
	if len(artifacts) == 0 {
		return nil, ErrNoUsableArtifacts
	}

	progress(30, "classifying", "classifying log lines")
	entriesByArtifact, allEntries := p.classifyAll(ctx, artifacts, stats)

	progress(50, "correlating", "correlating events across artifacts")
	findings, err := p.correlator.Correlate(ctx, entriesByArtifact)
	if err != nil {
		p.log.Warn("correlation failed, continuing without findings: %v", err)
		findings = nil
	}

	health := classify.ComponentHealth(allEntries)
	logCtx := knowledge.BuildContext(allEntries)

	progress(65, "retrieving knowledge", "searching the knowledge base")
	var items []*knowledge.Item
	knowledgeUnavailable := !p.hasKnowledge
	if p.hasKnowledge {
		items, knowledgeUnavailable = p.retriever.Retrieve(ctx, logCtx, health)
	}

	progress(75, "synthesizing prompt", "assembling the diagnosis prompt")
	var analysis *ai.Analysis
	aiReason := "no completion provider configured"
	if p.hasProvider {
		pr := p.synthesizer.Synthesize(logCtx, findings, items, health)
		progress(90, "awaiting completion", "waiting for the completion service")
		analysis, aiReason = p.integrator.Analyze(ctx, pr)
	}

	// The final transition to completed happens in StoreResult so a
	// poller never sees a finished session without its report.
	return p.buildReport(sessionID, stats, allEntries, logCtx, health, findings, items, knowledgeUnavailable, analysis, aiReason, len(entriesByArtifact)), nil
}

// normalizeAll decodes inputs concurrently. Inputs that cannot be decoded
// are recorded as failed stats instead of aborting the run.
func (p *Pipeline) normalizeAll(ctx context.Context, inputs []Input) ([]*artifact.Artifact, []report.ArtifactStats) {
	results := make([]*artifact.Artifact, len(inputs))
	stats := make([]report.ArtifactStats, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, in := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return nil
			}

			id := in.ID
			if id == "" {
				id = fmt.Sprintf("artifact-%d", i+1)
			}

			kind, ok := artifact.KindFromHint(in.Hint)
			if !ok {
				kind = artifact.KindFromFilename(in.Filename)
			}

			a, err := artifact.NormalizeArtifact(id, in.Filename, kind, in.Data)
			stats[i] = report.ArtifactStats{ID: id, Name: in.Filename}
			if err != nil {
				p.log.Warn("artifact %s could not be decoded: %v", in.Filename, err)
				stats[i].Error = err.Error()
				return nil
			}

			results[i] = a
			stats[i].Kind = string(a.Kind)
			stats[i].Encoding = a.Encoding
			stats[i].TotalLines = len(a.Lines)
			return nil
		})
	}
	_ = g.Wait()

	usable := make([]*artifact.Artifact, 0, len(results))
	for _, a := range results {
		if a != nil {
			usable = append(usable, a)
		}
	}
	return usable, stats
}

// classifyAll classifies each artifact concurrently and fills in the
// matching stats rows.
func (p *Pipeline) classifyAll(ctx context.Context, artifacts []*artifact.Artifact, stats []report.ArtifactStats) (map[string][]*classify.Entry, []*classify.Entry) {
	byArtifact := make(map[string][]*classify.Entry, len(artifacts))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for _, a := range artifacts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return nil
			}

			result := p.classifier.Classify(a.ID, a.Lines)

			mu.Lock()
			byArtifact[a.ID] = result.Entries
			for i := range stats {
				if stats[i].ID == a.ID {
					stats[i].ClassifiedLines = result.ClassifiedLines
					stats[i].SkippedLines = result.SkippedLines
					stats[i].SuccessRate = result.SuccessRate
					stats[i].Degraded = result.Degraded
				}
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	// Merge in artifact order for deterministic downstream output.
	var all []*classify.Entry
	for _, a := range artifacts {
		all = append(all, byArtifact[a.ID]...)
	}
	return byArtifact, all
}

func (p *Pipeline) buildReport(
	sessionID string,
	stats []report.ArtifactStats,
	entries []*classify.Entry,
	logCtx *knowledge.LogContext,
	health map[string]float64,
	findings []*correlate.Finding,
	items []*knowledge.Item,
	knowledgeUnavailable bool,
	analysis *ai.Analysis,
	aiReason string,
	artifactCount int,
) *report.Report {
	r := &report.Report{
		SessionID:   sessionID,
		GeneratedAt: time.Now().UTC(),
	}

	failed := 0
	for _, s := range stats {
		if s.Error != "" {
			failed++
		}
	}
	r.Processing = report.ProcessingSection{SectionMeta: report.Full(), Artifacts: stats}
	if failed > 0 {
		r.Processing.SectionMeta = report.Degraded(fmt.Sprintf("%d of %d artifacts could not be decoded", failed, len(stats)))
	}

	if len(entries) == 0 {
		r.Issues = report.IssuesSection{SectionMeta: report.Absent("no classifiable log entries found")}
		r.Health = report.HealthSection{SectionMeta: report.Absent("no classifiable log entries found")}
	} else {
		counts := make(map[string]int)
		for _, e := range entries {
			counts[e.Severity.String()]++
		}
		r.Issues = report.IssuesSection{
			SectionMeta:    report.Full(),
			MainIssues:     logCtx.MainIssues,
			SeverityCounts: counts,
			TotalEntries:   len(entries),
		}
		r.Health = report.HealthSection{
			SectionMeta: report.Full(),
			Components:  health,
			Unhealthy:   classify.UnhealthyComponents(health, 0.5),
		}
	}

	if artifactCount < 2 {
		r.Correlations = report.CorrelationSection{SectionMeta: report.Absent("correlation requires at least two artifacts")}
	} else {
		r.Correlations = report.CorrelationSection{SectionMeta: report.Full(), Findings: findings}
	}

	switch {
	case !p.hasKnowledge:
		r.Knowledge = report.KnowledgeSection{SectionMeta: report.Absent("no knowledge directory configured")}
	case knowledgeUnavailable:
		r.Knowledge = report.KnowledgeSection{SectionMeta: report.Absent("knowledge store unavailable")}
	default:
		r.Knowledge = report.KnowledgeSection{SectionMeta: report.Full(), Items: items}
	}

	switch {
	case analysis == nil:
		r.AIAnalysis = report.AISection{SectionMeta: report.Absent(aiReason)}
	case analysis.Response == nil:
		r.AIAnalysis = report.AISection{
			SectionMeta: report.Degraded("completion reply was not structured JSON"),
			Raw:         analysis.Raw,
			Model:       analysis.Model,
		}
	default:
		section := report.AISection{
			SectionMeta: report.Full(),
			Summary:     analysis.Response.Summary,
			HealthScore: analysis.Response.HealthScore,
			Model:       analysis.Model,
		}
		for _, issue := range analysis.Response.Issues {
			section.Issues = append(section.Issues, report.AIIssue(issue))
		}
		for _, rec := range analysis.Response.Recommendations {
			section.Recommendations = append(section.Recommendations, report.AIRecommendation(rec))
		}
		r.AIAnalysis = section
	}

	return r
}

// RunSweeper removes expired sessions on a fixed interval until the
// context is canceled.
func (p *Pipeline) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := p.sessions.Sweep(ctx); removed > 0 {
				p.log.Info("swept %d expired sessions", removed)
			}
		}
	}
}
