package agent

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Parse builds a Config from a description such as
// "rmcts:k=1.4,meta=2,budget=iterations,limit=200" or
// "rhea:horizon=8,crossover=one_point,seed_policy=greedy,shift".
//
// The algorithm name comes before the colon, followed by a comma-separated
// list of parameters with optional values. Parameters not given keep their
// value from base. A boolean parameter without a value is taken as true.
func Parse(description string, base Config) (Config, error) {
	cfg := base
	name, rest, _ := strings.Cut(strings.TrimSpace(description), ":")
	if err := cfg.Kind.UnmarshalText([]byte(name)); err != nil {
		return cfg, errors.Errorf("unknown AI player %q", name)
	}

	params := splitConfigString(rest)
	if label, ok := params["name"]; ok {
		cfg.Name = label
		delete(params, "name")
	}
	steps := []error{
		popInto(params, "seed", &cfg.Seed),
		popInto(params, "limit", &cfg.Budget.Limit),
		popInto(params, "break_ms", &cfg.Budget.BreakMS),
		popText(params, "budget", &cfg.Budget.Kind),
	}
	switch cfg.Kind {
	case MCTS:
		steps = append(steps,
			popInto(params, "k", &cfg.K),
			popInto(params, "rollout", &cfg.RolloutLength),
			popInto(params, "depth", &cfg.MaxTreeDepth),
			popInto(params, "epsilon", &cfg.Epsilon),
			popInto(params, "meta", &cfg.MetaLevel),
			popInto(params, "iterations", &cfg.ReflexiveIterations),
			popInto(params, "calls", &cfg.ReflexiveCalls),
			popInto(params, "opponent", &cfg.ReflexiveInOpponent),
			popInto(params, "round", &cfg.CurrentRound),
			popText(params, "accounting", &cfg.ReflexiveAccounting),
		)
	case RHEA:
		steps = append(steps,
			popInto(params, "horizon", &cfg.Horizon),
			popInto(params, "discount", &cfg.Discount),
			popInto(params, "population", &cfg.PopulationSize),
			popInto(params, "elites", &cfg.EliteCount),
			popInto(params, "children", &cfg.ChildCount),
			popInto(params, "mutations", &cfg.MutationCount),
			popInto(params, "tournament", &cfg.TournamentSize),
			popInto(params, "shift", &cfg.ShiftLeft),
			popInto(params, "seed_iterations", &cfg.SeedIterations),
			popInto(params, "seed_rollout", &cfg.SeedRolloutLength),
			popText(params, "selection", &cfg.Selection),
			popText(params, "crossover", &cfg.Crossover),
			popText(params, "seed_policy", &cfg.SeedPolicy),
		)
	}
	for _, err := range steps {
		if err != nil {
			return cfg, errors.WithMessagef(err, "failed to create AI player %q", name)
		}
	}
	if len(params) > 0 {
		keys := make([]string, 0, len(params))
		for key := range params {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		return cfg, errors.Errorf("unknown parameters for AI player %q: %s", name, strings.Join(keys, ", "))
	}
	return cfg, errors.WithMessagef(cfg.Validate(), "invalid AI player %q", description)
}

// splitConfigString splits "a=1,b,c=x" into its keys and values. Keys
// without a value map to the empty string.
func splitConfigString(config string) map[string]string {
	params := make(map[string]string)
	for _, part := range strings.Split(config, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		params[key] = value
	}
	return params
}

// GetParamOr parses the parameter under key to T if present, or returns
// defaultValue if not.
//
// For bool types, a key without a value is interpreted as true.
func GetParamOr[T interface{ bool | int | uint64 | float64 }](params map[string]string, key string, defaultValue T) (T, error) {
	var t T
	toT := func(v any) T { return v.(T) }
	value, exists := params[key]
	if !exists {
		return defaultValue, nil
	}
	switch any(defaultValue).(type) {
	case int:
		if value == "" {
			return defaultValue, nil
		}
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return t, errors.Wrapf(err, "failed to parse configuration %s=%q to int", key, value)
		}
		return toT(parsed), nil
	case uint64:
		if value == "" {
			return defaultValue, nil
		}
		parsed, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return t, errors.Wrapf(err, "failed to parse configuration %s=%q to uint64", key, value)
		}
		return toT(parsed), nil
	case float64:
		if value == "" {
			return defaultValue, nil
		}
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return t, errors.Wrapf(err, "failed to parse configuration %s=%q to float", key, value)
		}
		return toT(parsed), nil
	case bool:
		switch strings.ToLower(value) {
		case "", "true", "1":
			return toT(true), nil
		case "false", "0":
			return toT(false), nil
		}
		return defaultValue, errors.Errorf("failed to parse configuration %s=%q to bool", key, value)
	}
	return defaultValue, nil
}

// PopParamOr is like GetParamOr but it also deletes the parameter from params.
func PopParamOr[T interface{ bool | int | uint64 | float64 }](params map[string]string, key string, defaultValue T) (T, error) {
	value, err := GetParamOr(params, key, defaultValue)
	if err != nil {
		return value, err
	}
	delete(params, key)
	return value, nil
}

func popInto[T interface{ bool | int | uint64 | float64 }](params map[string]string, key string, target *T) error {
	value, err := PopParamOr(params, key, *target)
	if err != nil {
		return err
	}
	*target = value
	return nil
}

type textUnmarshaler interface {
	UnmarshalText(text []byte) error
}

// popText decodes a named option such as a budget kind or crossover.
func popText(params map[string]string, key string, target textUnmarshaler) error {
	value, exists := params[key]
	if !exists {
		return nil
	}
	if err := target.UnmarshalText([]byte(value)); err != nil {
		return errors.Wrapf(err, "failed to parse configuration %s=%q", key, value)
	}
	delete(params, key)
	return nil
}
