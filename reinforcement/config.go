package reinforcement

import (
	"context"
	"fmt"
	"strings"
	"time"

	. "gridmdp/grid_world"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// SolverKind is the only config kind this package understands.
const SolverKind = "valueIteration"

// EnvPrefix prefixes environment variables that override hyper-parameters,
// e.g. GRIDMDP_MINITERATIONS=3.
const EnvPrefix = "GRIDMDP"

// Hyper-parameter keys recognized in the solver config.
const (
	MinIterationsKey = "minIterations"
	MaxIterationsKey = "maxIterations"
	ExportEveryKey   = "exportEvery"
)

var hyperParamKeys = []string{MinIterationsKey, MaxIterationsKey, ExportEveryKey}

type OuterConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// SolverConfig holds the solver's parameters that are not part of the problem
// definition: the convergence floor, an optional iteration cap, how often
// progress is exported to views, and an optional wall-clock deadline.
// Keys are lowercase because viper folds them before the def is re-encoded.
type SolverConfig struct {
	// HyperParams is a key-val pair of param names and their value.
	HyperParams []HyperParameter `yaml:"hyperparams"`
	// SolveDeadline optionally bounds a run, e.g. {duration: 30s}.
	SolveDeadline map[string]string `yaml:"solvedeadline"`
}

type HyperParameter struct {
	Key string  `yaml:"key"`
	Val float64 `yaml:"val"`
}

// DefaultSolverConfig is used when no config file is given.
func DefaultSolverConfig() *SolverConfig {
	return &SolverConfig{}
}

func (cfg *SolverConfig) GetHyperParamOrDefault(param string, defaultVal float64) float64 {
	for _, kvp := range cfg.HyperParams {
		if strings.EqualFold(kvp.Key, param) {
			return kvp.Val
		}
	}
	return defaultVal
}

// SetHyperParam replaces or appends param.
func (cfg *SolverConfig) SetHyperParam(param string, val float64) {
	for i, kvp := range cfg.HyperParams {
		if strings.EqualFold(kvp.Key, param) {
			cfg.HyperParams[i].Val = val
			return
		}
	}
	cfg.HyperParams = append(cfg.HyperParams, HyperParameter{Key: param, Val: val})
}

// ExportEvery returns how many sweeps elapse between view exports.
func (cfg *SolverConfig) ExportEvery() int {
	n := int(cfg.GetHyperParamOrDefault(ExportEveryKey, 1))
	if n < 1 {
		return 1
	}
	return n
}

// Params combines the problem's gamma and precision with the configured bounds.
func (cfg *SolverConfig) Params(problem *Problem) Params {
	return Params{
		Gamma:         problem.Gamma,
		Precision:     problem.Precision,
		MinIterations: int(cfg.GetHyperParamOrDefault(MinIterationsKey, DefaultMinIterations)),
		MaxIterations: int(cfg.GetHyperParamOrDefault(MaxIterationsKey, 0)),
	}
}

// WithSolveDeadline returns a context extended by the solve deadline, if one is specified.
func (cfg *SolverConfig) WithSolveDeadline(
	ctx context.Context,
) (context.Context, context.CancelFunc, error) {
	if val, ok := cfg.SolveDeadline["duration"]; ok {
		duration, err := time.ParseDuration(val)
		if err != nil {
			return nil, nil, fmt.Errorf("solve deadline: %w", err)
		}
		innerCtx, cancel := context.WithTimeout(ctx, duration)
		return innerCtx, cancel, nil
	}
	defaultCtx, cancel := context.WithCancel(ctx)
	return defaultCtx, cancel, nil
}

// FromYaml reads a solver config. The file is an envelope of {kind, def}; def
// is re-encoded and decoded into SolverConfig. Environment variables with the
// GRIDMDP_ prefix override hyper-parameters from the file.
func FromYaml(path string) (*SolverConfig, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.SetEnvPrefix(EnvPrefix)
	vp.AutomaticEnv()

	var err error
	if err = vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read solver config %s: %w", path, err)
	}

	outerConfig := &OuterConfig{}
	if err = vp.Unmarshal(outerConfig); err != nil {
		return nil, fmt.Errorf("decode solver config %s: %w", path, err)
	}
	if outerConfig.Kind != SolverKind {
		return nil, fmt.Errorf("solver config %s: unsupported kind %q, want %q", path, outerConfig.Kind, SolverKind)
	}

	var spec []byte
	if spec, err = yaml.Marshal(outerConfig.Def); err != nil {
		return nil, err
	}

	innerConfig := &SolverConfig{}
	if err = yaml.Unmarshal(spec, innerConfig); err != nil {
		return nil, fmt.Errorf("decode solver config %s def: %w", path, err)
	}

	applyEnv(vp, innerConfig)
	return innerConfig, nil
}

// FromEnv returns the default config with environment overrides applied.
func FromEnv() *SolverConfig {
	vp := viper.New()
	vp.SetEnvPrefix(EnvPrefix)
	vp.AutomaticEnv()
	cfg := DefaultSolverConfig()
	applyEnv(vp, cfg)
	return cfg
}

func applyEnv(vp *viper.Viper, cfg *SolverConfig) {
	for _, key := range hyperParamKeys {
		if vp.IsSet(key) {
			cfg.SetHyperParam(key, vp.GetFloat64(key))
		}
	}
}

// Overrides replace problem file values when non-nil.
type Overrides struct {
	Reward    *float64
	Gamma     *float64
	Precision *float64
}

// problemKeys lists the keys every problem file must carry, in reporting order.
var problemKeys = []string{"dimens.x", "dimens.y", "gamma", "precision", "reward", "goal", "water", "empty"}

// LoadProblem reads a problem definition (JSON or YAML, by extension), applies
// the overrides and validates the result. Required keys missing from the file
// fail fast unless an override supplies them, as do keys the format does not
// define. Goal and empty lists may be empty but must be present.
func LoadProblem(path string, overrides Overrides) (*Problem, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	if err := vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read problem %s: %w", path, err)
	}

	overridden := map[string]bool{
		"gamma":     overrides.Gamma != nil,
		"precision": overrides.Precision != nil,
		"reward":    overrides.Reward != nil,
	}
	for _, key := range problemKeys {
		if !overridden[key] && !vp.IsSet(key) {
			return nil, fmt.Errorf("problem %s: %w: missing required key %q", path, ErrInvalidProblem, key)
		}
	}

	problem := &Problem{}
	if err := vp.Unmarshal(problem, func(dc *mapstructure.DecoderConfig) {
		dc.ErrorUnused = true
	}); err != nil {
		return nil, fmt.Errorf("decode problem %s: %w: %w", path, ErrInvalidProblem, err)
	}

	if overrides.Reward != nil {
		problem.Reward = *overrides.Reward
	}
	if overrides.Gamma != nil {
		problem.Gamma = *overrides.Gamma
	}
	if overrides.Precision != nil {
		problem.Precision = *overrides.Precision
	}

	if err := problem.Validate(); err != nil {
		return nil, fmt.Errorf("problem %s: %w", path, err)
	}
	return problem, nil
}
