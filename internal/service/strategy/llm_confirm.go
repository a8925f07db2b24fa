package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KNICEX/forex-bot/internal/service/llm"
	"github.com/KNICEX/forex-bot/internal/service/terminal"
)

var _ Strategy = (*LLMConfirm)(nil)

// LLMConfirm 用 LLM 对基础策略的非空信号做二次确认
// LLM 否决则视为无信号；LLM 不可用时放行原信号，确认只做收紧不做放大
type LLMConfirm struct {
	base      Strategy
	llmSvc    llm.Service
	timeframe terminal.Timeframe
	count     int
}

func NewLLMConfirm(base Strategy, llmSvc llm.Service) *LLMConfirm {
	return &LLMConfirm{
		base:      base,
		llmSvc:    llmSvc,
		timeframe: terminal.TimeframeH1,
		count:     30,
	}
}

func (s *LLMConfirm) Name() string {
	return s.base.Name() + "+llm"
}

type llmVerdict struct {
	Approve    bool    `json:"approve"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

func (s *LLMConfirm) CheckSignal(ctx context.Context, session terminal.Session, symbol string) (Signal, error) {
	signal, err := s.base.CheckSignal(ctx, session, symbol)
	if err != nil || signal == SignalNone {
		return signal, err
	}

	klines, err := session.GetKlines(ctx, symbol, s.timeframe, s.count)
	if err != nil {
		slog.Warn("llm confirm skipped, no klines", "symbol", symbol, "error", err)
		return signal, nil
	}

	prompt := fmt.Sprintf("这是 %s 最近的 %s K线数据: \n%+v\n"+
		"均线策略刚给出了 %s 信号, 请结合K线走势判断该信号是否值得执行, "+
		"并给出 0-1 的置信度, 按如下json格式回复我: "+
		`{"approve": true | false, "confidence": 0-1, "reason": "判断原因"}`,
		symbol, s.timeframe.ToString(), klines, signal)

	answer, err := s.llmSvc.AskOnce(ctx, llm.Question{Content: prompt})
	if err != nil {
		slog.Warn("llm confirm unavailable", "symbol", symbol, "error", err)
		return signal, nil
	}

	var verdict llmVerdict
	if err = extractAnswer(answer, &verdict); err != nil {
		slog.Warn("llm confirm answer unparseable", "symbol", symbol, "error", err)
		return signal, nil
	}
	if !verdict.Approve {
		slog.Info("llm rejected signal", "symbol", symbol, "signal", signal, "reason", verdict.Reason)
		return SignalNone, nil
	}
	return signal, nil
}

// 去掉 markdown 代码块包裹后解析JSON
func extractAnswer(answer llm.Answer, v any) error {
	content := strings.TrimSpace(answer.Content)
	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		if len(lines) < 3 {
			return fmt.Errorf("invalid answer format")
		}
		content = strings.Join(lines[1:len(lines)-1], "\n")
	}
	return json.Unmarshal([]byte(content), v)
}
