// Package policy evaluates tenant-authored Rego policies against each request
// after the built-in permission checks pass.
package policy

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/af-corp/containment-gateway/internal/config"
	"github.com/af-corp/containment-gateway/internal/types"
)

const query = "[data.containment.policy.allow, data.containment.policy.reason]"

// Input is the document exposed to policies as `input`.
type Input struct {
	Session SessionInput `json:"session"`
	Request RequestInput `json:"request"`
	Time    TimeInput    `json:"time"`
}

type SessionInput struct {
	ID       string `json:"id"`
	PodID    string `json:"pod_id"`
	Level    string `json:"level"`
	IsMinor  bool   `json:"is_minor"`
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	SchoolID string `json:"school_id"`
}

type RequestInput struct {
	Type      string `json:"type"`
	Operation string `json:"operation"`
}

type TimeInput struct {
	Hour int    `json:"hour"`
	Day  string `json:"day"`
}

// NewInput builds the policy input for one request.
func NewInput(req types.AIRequest, cc types.ContainmentContext, now time.Time) Input {
	now = now.UTC()
	return Input{
		Session: SessionInput{
			ID:       cc.SessionID,
			PodID:    cc.PodID,
			Level:    string(cc.Level),
			IsMinor:  cc.IsMinor,
			UserID:   cc.UserID,
			TenantID: cc.TenantID,
			SchoolID: cc.SchoolID,
		},
		Request: RequestInput{Type: string(req.Type), Operation: req.Type.Operation()},
		Time:    TimeInput{Hour: now.Hour(), Day: now.Weekday().String()},
	}
}

// Evaluator holds the compiled policy set. It fails closed: with nothing
// loaded every request is denied.
type Evaluator struct {
	mu       sync.RWMutex
	prepared *rego.PreparedEvalQuery
	cfg      func() config.PolicyConfig
}

// NewEvaluator creates a policy evaluator. Call Load() to compile policies.
func NewEvaluator(cfg func() config.PolicyConfig) *Evaluator {
	return &Evaluator{cfg: cfg}
}

func (e *Evaluator) Enabled() bool { return e.cfg().Enabled }

// Load compiles every .rego file in the bundle directory.
func (e *Evaluator) Load() error {
	dir := e.cfg().BundlePath
	modules, err := LoadRegoFiles(dir)
	if err != nil {
		return fmt.Errorf("load rego files: %w", err)
	}
	if len(modules) == 0 {
		slog.Warn("no rego files found", "path", dir)
		return nil
	}
	if err := e.LoadFromModules(modules); err != nil {
		return err
	}
	slog.Info("opa policies loaded", "modules", len(modules))
	return nil
}

// LoadFromModules compiles policies from module sources keyed by file name.
func (e *Evaluator) LoadFromModules(modules map[string]string) error {
	opts := []func(*rego.Rego){rego.Query(query)}
	for name, src := range modules {
		opts = append(opts, rego.Module(name, src))
	}

	prepared, err := rego.New(opts...).PrepareForEval(context.Background())
	if err != nil {
		return fmt.Errorf("prepare rego: %w", err)
	}

	e.mu.Lock()
	e.prepared = &prepared
	e.mu.Unlock()
	return nil
}

// Evaluate returns whether input is allowed and, if not, why.
func (e *Evaluator) Evaluate(ctx context.Context, input Input) (bool, string, error) {
	e.mu.RLock()
	prepared := e.prepared
	e.mu.RUnlock()

	if prepared == nil {
		return false, "no policies loaded", nil
	}

	timeout := e.cfg().EvaluationTimeout
	if timeout <= 0 {
		timeout = 100 * time.Millisecond
	}
	evalCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results, err := prepared.Eval(evalCtx, rego.EvalInput(input))
	if err != nil {
		return false, "", fmt.Errorf("policy evaluation: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, "no policy result", nil
	}

	arr, ok := results[0].Expressions[0].Value.([]any)
	if !ok || len(arr) < 2 {
		return false, "unexpected policy result format", nil
	}
	allowed, _ := arr[0].(bool)
	reason, _ := arr[1].(string)
	return allowed, reason, nil
}

// LoadRegoFiles reads all .rego files from dir.
func LoadRegoFiles(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	modules := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".rego" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		modules[entry.Name()] = string(data)
	}
	return modules, nil
}
