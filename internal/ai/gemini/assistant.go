package gemini

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cyberxz2077/Startup-Hub/internal/ai"
	"github.com/cyberxz2077/Startup-Hub/internal/logger"
	"github.com/cyberxz2077/Startup-Hub/internal/metrics"
)

// Default apologies shown to end users. The product launched for a
// Chinese-speaking audience; override via AssistantOptions for other locales.
const (
	DefaultParseApology = "抱歉，我的思考模块产生了一些格式错误。不过我已经理解了你的意图，我们可以换种方式继续或者请你再说一遍。"
	DefaultErrorApology = "抱歉，AI 助手暂时无法响应。请检查网络连接或稍后再试。"
)

// AssistantOptions tune the user-visible fallback replies.
type AssistantOptions struct {
	// ParseApology replaces the reply when the model answers with text the
	// normalizer cannot decode. The raw output is discarded on purpose: it
	// may be half-formed JSON that would confuse the user.
	ParseApology string

	// ErrorApology replaces the reply when the model call itself fails.
	ErrorApology string

	// MaxLogLength truncates raw responses in log output.
	MaxLogLength int
}

// Assistant runs single turns of the onboarding conversation. Like Scorer it
// never errors past its boundary: the caller always receives a well-shaped
// TurnReply, possibly carrying an apology and no field updates.
type Assistant struct {
	invoker ai.Invoker
	logger  *zap.Logger
	opts    AssistantOptions
}

// NewAssistant creates an Assistant on top of any ai.Invoker.
func NewAssistant(invoker ai.Invoker, log *zap.Logger, opts AssistantOptions) *Assistant {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.ParseApology == "" {
		opts.ParseApology = DefaultParseApology
	}
	if opts.ErrorApology == "" {
		opts.ErrorApology = DefaultErrorApology
	}
	if opts.MaxLogLength <= 0 {
		opts.MaxLogLength = defaultMaxLogLength
	}
	return &Assistant{
		invoker: invoker,
		logger:  log,
		opts:    opts,
	}
}

// Reply implements ai.Assistant. The history is shaped before sending so the
// transport never sees a conversation starting or ending on a model turn.
func (a *Assistant) Reply(ctx context.Context, systemInstruction string, history []ai.Turn, content ai.Content) *ai.TurnReply {
	shaped := ai.ShapeHistory(history)

	start := time.Now()
	raw, err := a.invoker.Invoke(ctx, systemInstruction, shaped, content)
	metrics.ModelCallDuration.WithLabelValues("chat").Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ModelCalls.WithLabelValues("chat", metrics.OutcomeError).Inc()
		a.logger.Warn("assistant call failed", zap.Error(err))
		return &ai.TurnReply{
			Reply:   a.opts.ErrorApology,
			Updates: map[string]any{},
		}
	}
	metrics.ModelCalls.WithLabelValues("chat", metrics.OutcomeOK).Inc()

	reply, err := ai.DecodeTurnReply(raw)
	if err != nil {
		metrics.ParseFailures.WithLabelValues("chat").Inc()
		a.logger.Warn("assistant response rejected",
			zap.String("response", logger.TruncateForLog(raw, a.opts.MaxLogLength)),
			zap.Error(err),
		)
		return &ai.TurnReply{
			Reply:   a.opts.ParseApology,
			Updates: map[string]any{},
		}
	}

	return reply
}
