package layercfg

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/goliatone/go-layercfg/pkg/rules"
)

// OptionDebugOutput is only meaningful on Windows, where it routes messages
// to the debugger output.
const OptionDebugOutput = "VK_DBG_LAYER_ACTION_DEBUG_OUTPUT"

// settingRule hides one setting of one layer unless the layer satisfies it.
type settingRule struct {
	layer      string
	setting    string
	applicable func(*Layer) bool
}

var fixedSettingRules = []settingRule{
	{
		layer:   "VK_LAYER_KHRONOS_validation",
		setting: "duplicate_message_limit",
		applicable: func(l *Layer) bool {
			return l.APIVersion >= NewVersion(1, 2, 148)
		},
	},
	{
		layer:   "VK_LAYER_LUNARG_device_simulation",
		setting: "emulate_portability",
		applicable: func(l *Layer) bool {
			return l.ImplementationVersion > NewVersion(1, 3, 0)
		},
	},
}

// IsSettingApplicable reports whether key should be offered for layer. Keys
// without a rule are always applicable.
func IsSettingApplicable(key string, layer *Layer) bool {
	if layer == nil {
		return true
	}
	for _, rule := range fixedSettingRules {
		if rule.setting == key && rule.layer == layer.Name {
			return rule.applicable(layer)
		}
	}
	return true
}

// IsOptionApplicable reports whether an option value of a list setting should
// be offered on the platform goos. An empty goos means the running platform.
func IsOptionApplicable(setting LayerSetting, option, goos string) bool {
	if goos == "" {
		goos = runtime.GOOS
	}
	if option == OptionDebugOutput && setting.Type.HasOptions() {
		return goos == "windows"
	}
	return true
}

// ExpressionRule is a configurable applicability rule. Layer may be empty to
// match every layer. Expr must evaluate to a bool.
type ExpressionRule struct {
	Setting string `yaml:"setting" json:"setting" validate:"required"`
	Layer   string `yaml:"layer" json:"layer"`
	Expr    string `yaml:"expr" json:"expr" validate:"required"`
}

// GateOption configures a Gate.
type GateOption func(*gateConfig)

type gateConfig struct {
	engine   string
	cache    rules.ProgramCache
	registry *rules.FunctionRegistry
	logger   rules.EvaluatorLogger
	err      error
}

// WithRuleEngine selects the expression engine: expr, cel or js.
func WithRuleEngine(engine string) GateOption {
	return func(cfg *gateConfig) {
		cfg.engine = engine
	}
}

// WithRuleCache shares a program cache between gates.
func WithRuleCache(cache rules.ProgramCache) GateOption {
	return func(cfg *gateConfig) {
		cfg.cache = cache
	}
}

// WithRuleFunction registers an extra function for expressions. Names
// already registered, such as version, make NewGate fail.
func WithRuleFunction(name string, fn rules.Function) GateOption {
	return func(cfg *gateConfig) {
		if cfg.err != nil {
			return
		}
		cfg.err = cfg.registry.Register(name, fn)
	}
}

// WithRuleLogger records every rule evaluation.
func WithRuleLogger(logger *slog.Logger) GateOption {
	return func(cfg *gateConfig) {
		cfg.logger = rules.SlogEvaluatorLogger(logger)
	}
}

type compiledExpressionRule struct {
	ExpressionRule
	program rules.CompiledRule
}

// Gate decides setting applicability from the fixed table plus expression
// rules. A setting must pass both. Gate is read-only after construction.
type Gate struct {
	engine string
	rules  []compiledExpressionRule
	logger rules.EvaluatorLogger
}

// NewGate compiles exprs with the selected engine.
func NewGate(exprs []ExpressionRule, opts ...GateOption) (*Gate, error) {
	cfg := gateConfig{registry: RuleFunctions()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.err != nil {
		return nil, fmt.Errorf("layercfg: gate: %w", cfg.err)
	}
	if cfg.cache == nil {
		cfg.cache = rules.NewMapCache()
	}
	if cfg.logger == nil {
		cfg.logger = rules.NoopLogger{}
	}

	evaluator, err := rules.New(cfg.engine, cfg.cache, cfg.registry)
	if err != nil {
		return nil, fmt.Errorf("layercfg: gate: %w", err)
	}
	gate := &Gate{engine: rules.EngineName(evaluator), logger: cfg.logger}
	for _, rule := range exprs {
		if rule.Setting == "" || rule.Expr == "" {
			return nil, fmt.Errorf("layercfg: gate: rule needs setting and expr: %+v", rule)
		}
		program, err := evaluator.Compile(rule.Expr)
		if err != nil {
			return nil, fmt.Errorf("layercfg: gate: compile rule for %q: %w", rule.Setting, err)
		}
		gate.rules = append(gate.rules, compiledExpressionRule{ExpressionRule: rule, program: program})
	}
	return gate, nil
}

// Engine returns the name of the expression engine in use.
func (g *Gate) Engine() string {
	if g == nil {
		return ""
	}
	return g.engine
}

// Applicable reports whether key should be offered for layer. A nil Gate
// applies only the fixed table.
func (g *Gate) Applicable(key string, layer *Layer) (bool, error) {
	if !IsSettingApplicable(key, layer) {
		return false, nil
	}
	if g == nil || layer == nil {
		return true, nil
	}
	for _, rule := range g.rules {
		if rule.Setting != key || (rule.Layer != "" && rule.Layer != layer.Name) {
			continue
		}
		value, err := rules.Run(rule.program, g.engine, rule.Expr, ruleContext(key, layer), g.logger)
		if err != nil {
			return false, err
		}
		ok, isBool := value.(bool)
		if !isBool {
			return false, rules.WrapEvaluationError(g.engine, rule.Expr, layer.Name+"/"+key,
				fmt.Errorf("rule returned %T, want bool", value))
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// ApplicableSettings filters settings down to the ones Applicable accepts.
func (g *Gate) ApplicableSettings(layer *Layer, settings []LayerSetting) ([]LayerSetting, error) {
	out := make([]LayerSetting, 0, len(settings))
	for _, s := range settings {
		ok, err := g.Applicable(s.Key, layer)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func ruleContext(key string, layer *Layer) rules.Context {
	return rules.Context{
		Subject: layer.Name + "/" + key,
		Facts: map[string]any{
			"layer":                  layer.Name,
			"setting":                key,
			"layer_type":             layer.Type.String(),
			"api_version":            int64(layer.APIVersion),
			"implementation_version": int64(layer.ImplementationVersion),
			"file_format_version":    int64(layer.FileFormatVersion),
		},
	}
}

// RuleFunctions returns a registry holding version("x.y.z"), which packs a
// dotted version so rules can compare it with the version facts.
func RuleFunctions() *rules.FunctionRegistry {
	registry := rules.NewFunctionRegistry()
	registry.MustRegister("version", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("version expects one argument, got %d", len(args))
		}
		text, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("version expects a string, got %T", args[0])
		}
		v, err := ParseVersion(text)
		if err != nil {
			return nil, err
		}
		return int64(v), nil
	})
	return registry
}
