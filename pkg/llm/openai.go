package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"voiceqa-server/pkg/config"
	"voiceqa-server/pkg/metrics"
)

// scoringRetries is the number of extra attempts after a failed
// scoring call. Transient backend faults here are common and cheap to
// retry; no other pipeline step retries.
const scoringRetries = 2

const systemPrompt = "你是專業的客服對話品質分析師，擅長分析語音轉錄品質和客服服務品質。請提供準確、客觀的分析結果。"

// OpenAIScorer implements the Scorer interface with an OpenAI chat model
type OpenAIScorer struct {
	logger *logrus.Logger
	apiKey string
	config *config.LLMConfig
	client *openai.Client
}

// NewOpenAIScorer creates a new OpenAI scorer
func NewOpenAIScorer(logger *logrus.Logger, apiKey string, cfg *config.LLMConfig) *OpenAIScorer {
	return &OpenAIScorer{
		logger: logger,
		apiKey: apiKey,
		config: cfg,
	}
}

// Name returns the scorer name
func (s *OpenAIScorer) Name() string {
	return "openai"
}

// Initialize initializes the OpenAI client
func (s *OpenAIScorer) Initialize() error {
	if s.apiKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set in the environment")
	}
	s.client = openai.NewClient(s.apiKey)
	s.logger.WithField("model", s.config.Model).Info("OpenAI scorer initialized")
	return nil
}

// Analyze scores the semantic fidelity of transcribed against original
func (s *OpenAIScorer) Analyze(ctx context.Context, original, transcribed string) (*Analysis, error) {
	if strings.TrimSpace(original) == "" {
		return nil, ErrEmptyOriginal
	}
	if strings.TrimSpace(transcribed) == "" {
		return nil, ErrEmptyTranscript
	}

	normalizedOriginal := NormalizeText(original)
	normalizedTranscribed := NormalizeText(transcribed)

	prompt := buildAnalysisPrompt(normalizedOriginal, normalizedTranscribed)

	response, err := s.callWithRetry(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScoringBackend, err)
	}

	analysis := ParseAnalysis(response)
	s.logger.WithFields(logrus.Fields{
		"accuracy_score": analysis.AccuracyScore,
		"degraded":       analysis.Degraded,
	}).Info("Semantic analysis completed")

	return analysis, nil
}

func (s *OpenAIScorer) callWithRetry(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= scoringRetries; attempt++ {
		if attempt > 0 {
			metrics.ScoringRetry()
			s.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"max":     scoringRetries,
				"error":   lastErr,
			}).Warn("Scoring call failed, retrying")
		}

		response, err := s.call(ctx, prompt)
		if err == nil {
			return response, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}

func (s *OpenAIScorer) call(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0,
		MaxTokens:   s.config.MaxTokens,
		TopP:        0.9,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Ping performs a minimal completion round-trip
func (s *OpenAIScorer) Ping(ctx context.Context) error {
	if s.client == nil {
		return ErrNotInitialized
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "回答'測試成功'"},
		},
		MaxTokens: 10,
	})
	if err != nil {
		return err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return fmt.Errorf("empty completion response")
	}
	return nil
}

func buildAnalysisPrompt(original, transcribed string) string {
	return fmt.Sprintf(`你是專業、嚴謹的客服對話品質分析師。你的任務是嚴格按照以下規則，比較原始腳本與轉錄文字。

【分析目標】
你的唯一目標是判斷「轉錄文字」是否在「語意」上準確地還原了「原始腳本」。
你必須完全忽略任何角色標識（例如「客服:」）或格式上的差異。

【評分標準】
你必須嚴格遵守以下計分規則：
- **100分條件**: 如果轉錄文字在語意上與原始腳本完全一致，沒有任何意義上的偏差、
  扭曲或資訊遺漏，準確率分數 **必須** 為 100。即便兩者在用詞、語氣助詞
  （例如「喔」vs「哦」）或斷句上存在微小差異，只要不影響核心語意，分數就 **必須** 是 100。
- **扣分條件**: 只有在轉錄文字出現了 **語意錯誤、關鍵資訊遺漏、或新增了不相關的內容** 時，才應該扣分。根據錯誤的嚴重程度酌情給予 0-99 分。


【原始腳本】
%s

【轉錄文字】
%s

請嚴格按照上述規則，以 JSON 格式回傳分析結果，包含以下欄位：
- "accuracy_score": 準確率分數 (0-100)。
- "summary": 根據比對結果，生成一句話的簡潔摘要。
- "key_differences": 簡潔地列出兩者之間的主要 "語意" 差異點。如果沒有語意差異，請回傳空列表。
- "suggestions": 根據差異點，提供具體的改進建議。如果沒有差異，請回傳空列表。
- "reasoning": 解釋你為什麼嚴格根據評分標準給出這個準確率分數。

請只回傳 JSON 格式的分析結果：`, original, transcribed)
}

// ParseAnalysis decodes a scoring response leniently. Out-of-range
// scores are clamped and a malformed response yields a degraded default
// result rather than an error.
func ParseAnalysis(response string) *Analysis {
	var raw struct {
		AccuracyScore  json.Number `json:"accuracy_score"`
		Summary        string      `json:"summary"`
		KeyDifferences []string    `json:"key_differences"`
		Suggestions    []string    `json:"suggestions"`
		Reasoning      string      `json:"reasoning"`
	}

	if err := json.Unmarshal([]byte(strings.TrimSpace(response)), &raw); err != nil {
		return &Analysis{
			AccuracyScore:  0,
			Summary:        "analysis response could not be parsed",
			KeyDifferences: []string{},
			Suggestions:    []string{"check input data", "retry the analysis"},
			Reasoning:      fmt.Sprintf("unparseable scoring response: %v", err),
			Degraded:       true,
		}
	}

	score, err := raw.AccuracyScore.Float64()
	degraded := false
	if err != nil {
		score = 0
		degraded = raw.AccuracyScore.String() != ""
	}

	analysis := &Analysis{
		AccuracyScore:  ClampScore(score),
		Summary:        raw.Summary,
		KeyDifferences: raw.KeyDifferences,
		Suggestions:    raw.Suggestions,
		Reasoning:      raw.Reasoning,
		Degraded:       degraded,
	}

	if analysis.Summary == "" {
		analysis.Summary = "analysis completed"
	}
	if analysis.KeyDifferences == nil {
		analysis.KeyDifferences = []string{}
	}
	if analysis.Suggestions == nil {
		analysis.Suggestions = []string{}
	}

	return analysis
}
