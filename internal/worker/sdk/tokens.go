package sdk

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
)

// CountTokens counts tokens with the cl100k_base vocabulary. Used to
// price inference transcripts when the API omits usage figures. Falls
// back to the length/4 approximation if the vocabulary fails to load.
func CountTokens(text string) int64 {
	codecOnce.Do(func() {
		c, err := tokenizer.Get(tokenizer.Cl100kBase)
		if err == nil {
			codec = c
		}
	})
	if codec == nil {
		return int64((len(text) + 3) / 4)
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return int64((len(text) + 3) / 4)
	}
	return int64(len(ids))
}
