package strategy

import (
	"encoding/json"
	"fmt"

	"github.com/KNICEX/forex-bot/internal/entity"
)

const (
	TypeMACrossover = "ma_crossover"
)

// FromEntity 根据持久化的策略定义构造策略实例
// Params 中的 type 字段决定策略种类，缺省为双均线
func FromEntity(def entity.Strategy) (Strategy, error) {
	var head struct {
		Type string `json:"type"`
	}
	if def.Params != "" {
		if err := json.Unmarshal([]byte(def.Params), &head); err != nil {
			return nil, fmt.Errorf("strategy %s: invalid params: %w", def.Name, err)
		}
	}

	switch head.Type {
	case TypeMACrossover, "":
		var params MACrossoverParams
		if err := json.Unmarshal([]byte(def.Params), &params); err != nil {
			return nil, fmt.Errorf("strategy %s: invalid ma params: %w", def.Name, err)
		}
		return NewMACrossover(def.Name, params)
	default:
		return nil, fmt.Errorf("strategy %s: unsupported type %q", def.Name, head.Type)
	}
}
