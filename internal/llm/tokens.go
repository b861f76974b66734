package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encodings   = map[string]*tiktoken.Tiktoken{}
	encodingsMu sync.Mutex
)

// EstimateTokens approximates the token count of text for model. Models
// tiktoken does not know are counted with cl100k_base; if no encoding can
// be loaded the estimate is len/4.
func EstimateTokens(model, text string) int {
	enc := encodingFor(model)
	if enc == nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

func encodingFor(model string) *tiktoken.Tiktoken {
	encodingsMu.Lock()
	defer encodingsMu.Unlock()

	if enc, ok := encodings[model]; ok {
		return enc
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
	}
	if err != nil {
		enc = nil
	}
	// Failures are cached too so a missing BPE file is not refetched per call.
	encodings[model] = enc
	return enc
}
