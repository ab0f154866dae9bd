package chat_completions

import (
	"github.com/samvilian/gemini-proxy-panel3/internal/constant"
	"github.com/samvilian/gemini-proxy-panel3/internal/interfaces"
	"github.com/samvilian/gemini-proxy-panel3/internal/translator/translator"
)

func init() {
	translator.Register(
		constant.OpenAI,
		constant.Gemini,
		ConvertOpenAIRequestToGemini,
		interfaces.TranslateResponse{
			Stream:    ConvertGeminiResponseToOpenAI,
			NonStream: ConvertGeminiResponseToOpenAINonStream,
		},
	)
}
