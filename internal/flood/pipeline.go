package flood

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"

	"github.com/HeliosCommand/server/internal/agent/graph/observers"
	logx "github.com/HeliosCommand/server/pkg/logger"
)

const (
	NodeSensorAnalyst = "SensorAnalyst"
	NodeWebScraper    = "WebScraper"
	NodeAlertStage    = "AlertStage"

	csvKey = "csv"
	webKey = "web"
)

// Input starts one pipeline run.
type Input struct {
	CSVWeight float64
}

// Dependencies are the clients the pipeline is built from.
type Dependencies struct {
	Sensors Reporter
	Web     Reporter
	Alert   *AlertStage
}

// Pipeline runs both analysis branches in parallel and joins them at the alert stage.
type Pipeline struct {
	runnable compose.Runnable[Input, *Outcome]
}

// NewPipeline compiles the flood graph in DAG mode so the alert stage waits for both branches.
func NewPipeline(ctx context.Context, deps Dependencies, cfg Config) (*Pipeline, error) {
	if deps.Sensors == nil || deps.Web == nil || deps.Alert == nil {
		return nil, fmt.Errorf("flood pipeline dependencies are incomplete")
	}

	g := compose.NewGraph[Input, *Outcome](
		compose.WithGenLocalState(func(context.Context) *State { return newState() }),
	)

	timeout := cfg.branchTimeout()
	if err := g.AddLambdaNode(NodeSensorAnalyst,
		branchNode(NodeSensorAnalyst, deps.Sensors, timeout, CSVPlaceholder, func(s *State, v string) { s.CSVAnalysis = &v }),
		compose.WithNodeName(NodeSensorAnalyst),
		compose.WithOutputKey(csvKey),
		compose.WithStatePreHandler(weightsPreHandler),
	); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode(NodeWebScraper,
		branchNode(NodeWebScraper, deps.Web, timeout, WebPlaceholder, func(s *State, v string) { s.WebIntelligence = &v }),
		compose.WithNodeName(NodeWebScraper),
		compose.WithOutputKey(webKey),
		compose.WithStatePreHandler(weightsPreHandler),
	); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode(NodeAlertStage, alertNode(deps.Alert), compose.WithNodeName(NodeAlertStage)); err != nil {
		return nil, err
	}

	for _, e := range [][2]string{
		{compose.START, NodeSensorAnalyst},
		{compose.START, NodeWebScraper},
		{NodeSensorAnalyst, NodeAlertStage},
		{NodeWebScraper, NodeAlertStage},
		{NodeAlertStage, compose.END},
	} {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			return nil, err
		}
	}

	runnable, err := g.Compile(ctx,
		compose.WithGraphName("flood_pipeline"),
		compose.WithNodeTriggerMode(compose.AllPredecessor),
	)
	if err != nil {
		return nil, err
	}
	return &Pipeline{runnable: runnable}, nil
}

// Run executes one pass of the pipeline with the given sensor trust weight.
func (p *Pipeline) Run(ctx context.Context, csvWeight float64) (*Outcome, error) {
	if err := ValidateWeight(csvWeight); err != nil {
		return nil, err
	}
	start := time.Now()
	out, err := p.runnable.Invoke(ctx, Input{CSVWeight: csvWeight}, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("flood pipeline returned no outcome")
	}
	out.Elapsed = time.Since(start)
	logx.Info().
		Str("phase", string(out.Phase)).
		Bool("email_sent", out.Verdict.Email.Sent).
		Bool("sms_sent", out.Verdict.SMS.Sent).
		Dur("elapsed", out.Elapsed).
		Msg("Flood pipeline completed")
	return out, nil
}

func weightsPreHandler(_ context.Context, in Input, s *State) (Input, error) {
	s.setWeights(in.CSVWeight)
	return in, nil
}

// branchNode runs r under its own deadline. A failed branch records its error and yields the placeholder.
func branchNode(name string, r Reporter, timeout time.Duration, placeholder string, store func(*State, string)) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ Input) (string, error) {
		start := time.Now()
		out, err := runBranch(ctx, r, timeout)
		if err == nil && out == "" {
			err = fmt.Errorf("empty report")
		}
		if err != nil {
			logx.Warn().Err(err).Str("branch", name).Msg("Flood branch failed, using placeholder")
			out = placeholder
		} else {
			logx.Info().Str("branch", name).Int("chars", len(out)).Dur("elapsed", time.Since(start)).Msg("Flood branch completed")
		}

		if perr := compose.ProcessState(ctx, func(_ context.Context, s *State) error {
			store(s, out)
			if err != nil {
				s.recordError(name, err)
			}
			return nil
		}); perr != nil {
			return "", perr
		}
		return out, nil
	})
}

func runBranch(ctx context.Context, r Reporter, timeout time.Duration) (string, error) {
	bctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		out string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- result{err: fmt.Errorf("panic: %v", p)}
			}
		}()
		out, err := r.Report(bctx)
		ch <- result{out: out, err: err}
	}()

	select {
	case res := <-ch:
		return res.out, res.err
	case <-bctx.Done():
		return "", bctx.Err()
	}
}

func alertNode(stage *AlertStage) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in map[string]any) (*Outcome, error) {
		if _, ok := in[csvKey]; !ok {
			return nil, fmt.Errorf("alert stage is missing the %s report", csvKey)
		}
		if _, ok := in[webKey]; !ok {
			return nil, fmt.Errorf("alert stage is missing the %s report", webKey)
		}

		var reports Reports
		if err := compose.ProcessState(ctx, func(_ context.Context, s *State) error {
			if !s.ready() {
				return fmt.Errorf("alert stage started before both branches reported")
			}
			s.setPhase(PhaseAnalyzing)
			reports = Reports{
				CSV:       *s.CSVAnalysis,
				Web:       *s.WebIntelligence,
				CSVWeight: s.CSVWeight,
				WebWeight: s.WebWeight,
			}
			return nil
		}); err != nil {
			return nil, err
		}

		verdict := stage.Decide(ctx, reports)

		var out *Outcome
		err := compose.ProcessState(ctx, func(_ context.Context, s *State) error {
			phase := PhaseNoAlert
			if verdict.Alerted {
				phase = PhaseAlertSent
			}
			s.setPhase(phase)
			s.EmailSent = verdict.Email.Sent
			s.SMSSent = verdict.SMS.Sent
			s.Errors = append(s.Errors, verdict.Errors...)
			summary := verdictSummary(verdict)
			s.Orchestrator = &summary
			s.setPhase(PhaseDone)
			out = newOutcome(s, phase, verdict)
			return nil
		})
		return out, err
	})
}
