package tokens

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const (
	approximateCharactersPerToken        = 4.1
	approximateTokensPerWord             = 1.33
	fallbackEncodingNameConstant         = "cl100k_base"
	encodingResolutionErrorTemplateConst = "unable to resolve tokenizer encoding for model %s: %w"
	minimumNonEmptyTokenCountConstant    = 1
)

// TokenCounter measures the token total of a text body.
type TokenCounter interface {
	CountText(text string) int
	Method() CountMethod
}

// ApproximateTokenCounter estimates tokens from character and word counts.
//
// The blend takes the larger of runes/4.1 and words*1.33, matching typical
// repository text where many words map to more than one token.
type ApproximateTokenCounter struct{}

// NewApproximateTokenCounter constructs the heuristic counter.
func NewApproximateTokenCounter() *ApproximateTokenCounter {
	return &ApproximateTokenCounter{}
}

// CountText estimates the token total for the provided text.
func (counter *ApproximateTokenCounter) CountText(text string) int {
	if len(text) == 0 {
		return 0
	}

	runeCount := utf8.RuneCountInString(text)
	wordCount := len(strings.Fields(text))

	approximateByCharacters := int(math.Round(float64(runeCount) / approximateCharactersPerToken))
	if approximateByCharacters < minimumNonEmptyTokenCountConstant {
		approximateByCharacters = minimumNonEmptyTokenCountConstant
	}

	approximateByWords := int(math.Round(float64(wordCount) * approximateTokensPerWord))
	if approximateByWords < minimumNonEmptyTokenCountConstant {
		approximateByWords = minimumNonEmptyTokenCountConstant
	}

	if approximateByWords > approximateByCharacters {
		return approximateByWords
	}
	return approximateByCharacters
}

// Method identifies the counter as approximate.
func (counter *ApproximateTokenCounter) Method() CountMethod {
	return CountMethodApproximate
}

// ExactTokenCounter produces exact totals using a tiktoken encoding.
type ExactTokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewExactTokenCounter resolves the encoding for the model hint, falling back
// to cl100k_base for models tiktoken does not know.
func NewExactTokenCounter(modelName string) (*ExactTokenCounter, error) {
	encoding, modelError := tiktoken.EncodingForModel(modelName)
	if modelError == nil {
		return &ExactTokenCounter{encoding: encoding}, nil
	}

	encoding, fallbackError := tiktoken.GetEncoding(fallbackEncodingNameConstant)
	if fallbackError != nil {
		return nil, fmt.Errorf(encodingResolutionErrorTemplateConst, modelName, fallbackError)
	}
	return &ExactTokenCounter{encoding: encoding}, nil
}

// CountText returns the exact token total for the provided text.
func (counter *ExactTokenCounter) CountText(text string) int {
	if len(text) == 0 {
		return 0
	}
	return len(counter.encoding.Encode(text, nil, nil))
}

// Method identifies the counter as exact.
func (counter *ExactTokenCounter) Method() CountMethod {
	return CountMethodExact
}
