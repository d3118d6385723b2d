// Package engine wires the optimization pipeline: parse, classify, detect,
// rule evaluation, merge, scoring, planning, application, and archiving.
// Every stage is a pure function over in-memory structures; file reads,
// persistence, and network calls belong to the caller.
package engine

import (
	"log/slog"
	"time"

	"github.com/ctxslim/ctxslim/internal/apply"
	"github.com/ctxslim/ctxslim/internal/archive"
	"github.com/ctxslim/ctxslim/internal/classify"
	"github.com/ctxslim/ctxslim/internal/contextdoc"
	"github.com/ctxslim/ctxslim/internal/detect"
	"github.com/ctxslim/ctxslim/internal/plan"
	"github.com/ctxslim/ctxslim/internal/rules"
)

// Summary is the compact analysis digest returned to API and CLI callers.
type Summary struct {
	TotalLines       int `json:"total_lines"`
	TotalTokens      int `json:"total_tokens"`
	SectionsCount    int `json:"sections_count"`
	IssuesCount      int `json:"issues_count"`
	EstimatedSavings int `json:"estimated_savings"`
	SavingsPercent   int `json:"savings_percent"`
}

// Analysis is the full result of analyzing one document.
type Analysis struct {
	Document   *contextdoc.Document         `json:"document"`
	Classified []classify.ClassifiedSection `json:"classified"`
	Issues     []detect.Issue               `json:"issues"`
	Score      int                          `json:"score"`
	Strategy   plan.Strategy                `json:"recommended_strategy"`
	Summary    Summary                      `json:"summary"`
}

// Outcome bundles everything an optimize call produces. The caller writes
// Result.Content back to disk and persists Archives.
type Outcome struct {
	Result   *apply.Result     `json:"result"`
	Archives []archive.Content `json:"archives"`
	Plan     plan.Plan         `json:"plan"`
}

// Config collects the pipeline's policy knobs.
type Config struct {
	Classifier classify.Config
	Detector   detect.Config
	Planner    plan.Config

	// ScoreThreshold is the score at or below which NeedsOptimization
	// reports true.
	ScoreThreshold int

	// Now is injectable for tests; it stamps archives and anchors date
	// staleness. Defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig returns the shipped policy.
func DefaultConfig() Config {
	return Config{
		Classifier:     classify.DefaultConfig(),
		Detector:       detect.DefaultConfig(),
		Planner:        plan.DefaultConfig(),
		ScoreThreshold: 70,
		Now:            time.Now,
	}
}

// Engine runs analyses with a fixed configuration and rule set. The rule
// set is supplied explicitly at construction; callers that want the shipped
// rules pass rules.DefaultRules(). Engines are safe for concurrent use.
type Engine struct {
	cfg        Config
	ruleSet    []rules.Rule
	classifier *classify.Classifier
	detector   *detect.Detector
	ruleEngine *rules.Engine
	applier    *apply.Applier
	log        *slog.Logger
}

// New builds an engine. ruleSet may be empty to run without rules.
func New(cfg Config, ruleSet []rules.Rule, log *slog.Logger) *Engine {
	if cfg.ScoreThreshold <= 0 || cfg.ScoreThreshold > 100 {
		cfg.ScoreThreshold = 70
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	// One clock for the whole pipeline: archives, classification, and rule
	// staleness all answer to cfg.Now.
	cfg.Classifier.Now = cfg.Now
	if log == nil {
		log = slog.Default()
	}
	rs := make([]rules.Rule, len(ruleSet))
	copy(rs, ruleSet)
	return &Engine{
		cfg:        cfg,
		ruleSet:    rs,
		classifier: classify.New(cfg.Classifier),
		detector:   detect.New(cfg.Detector),
		ruleEngine: rules.NewEngine(log, cfg.Now),
		applier:    apply.New(),
		log:        log,
	}
}

// Analyze runs the read-only half of the pipeline. An empty document is not
// an error: it scores 100 with no issues.
func (e *Engine) Analyze(content string) (*Analysis, error) {
	doc, err := contextdoc.Parse(content)
	if err != nil {
		return nil, err
	}

	classified := e.classifier.Classify(doc.Sections, doc.Dates)

	heuristic := e.detector.Detect(classified)
	ruleIssues := e.ruleEngine.Apply(classified, e.ruleSet)
	issues := mergeIssues(heuristic, ruleIssues)

	savings := totalSavings(issues)
	score, pct := scoreFor(savings, doc.TotalTokens)

	return &Analysis{
		Document:   doc,
		Classified: classified,
		Issues:     issues,
		Score:      score,
		Strategy:   chooseStrategy(score, issues),
		Summary: Summary{
			TotalLines:       doc.TotalLines,
			TotalTokens:      doc.TotalTokens,
			SectionsCount:    len(doc.Sections),
			IssuesCount:      len(issues),
			EstimatedSavings: savings,
			SavingsPercent:   pct,
		},
	}, nil
}

// Optimize runs the plan-apply-archive half over a prior analysis. strategy
// may be empty to use the analysis' recommendation; projectPath identifies
// the source file for archive records and may be empty.
func (e *Engine) Optimize(a *Analysis, strategy plan.Strategy, projectPath string) (*Outcome, error) {
	if strategy == "" {
		strategy = a.Strategy
	}

	p := plan.Generate(a.Document, a.Issues, strategy, e.cfg.Planner)

	now := e.cfg.Now()
	classifiedByName := make(map[string]classify.ClassifiedSection, len(a.Classified))
	for _, cs := range a.Classified {
		classifiedByName[cs.Name] = cs
	}

	var archives []archive.Content
	refs := make(map[string]string)
	for _, act := range p.Actions {
		if act.Kind != plan.ActionArchive {
			continue
		}
		cs, ok := classifiedByName[act.Section]
		if !ok {
			continue
		}
		ac := archive.Create(cs, projectPath, archiveReason(act), now)
		archives = append(archives, ac)
		refs[act.Section] = archive.RefLine(ac)
	}

	result := e.applier.Apply(a.Document, p, refs)

	return &Outcome{
		Result:   result,
		Archives: archives,
		Plan:     p,
	}, nil
}

// archiveReason picks the issue type recorded as the archive's reason: the
// justifying issue with the largest estimated savings.
func archiveReason(act plan.Action) detect.IssueType {
	reason := detect.IssueOutdated
	best := -1
	for _, issue := range act.Issues {
		if issue.EstimatedSavings > best {
			best = issue.EstimatedSavings
			reason = issue.Type
		}
	}
	return reason
}
