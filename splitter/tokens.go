// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package splitter

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter reports how many tokens a piece of text costs under some
// tokenization scheme.
type TokenCounter interface {
	Count(text string) int
}

// charsPerTokenDefault is the rough characters-per-token ratio for
// space-separated scripts. Logographic runes cost closer to one token each.
const charsPerTokenDefault = 4

// estimateCounter approximates token counts without a tokenizer model:
// one token per charsPerTokenDefault characters for alphabetic text, one
// token per rune for logographic text, with a minimum of one token per word.
type estimateCounter struct{}

func (estimateCounter) Count(text string) int {
	total := 0
	alpha := 0
	for _, r := range text {
		if isLogographic(r) {
			total++
			continue
		}
		alpha++
	}
	total += (alpha + charsPerTokenDefault - 1) / charsPerTokenDefault
	if total == 0 && strings.TrimSpace(text) != "" {
		total = 1
	}
	return total
}

// EstimateTokens approximates the token cost of text without loading a
// tokenizer. Useful for budget checks before sending content to a provider.
func EstimateTokens(text string) int {
	return estimateCounter{}.Count(text)
}

// WordCount reports the number of whitespace-separated words. Logographic
// text has no word boundaries, so runs of logographic runes count one word
// per rune instead.
func WordCount(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		if isLogographic(r) {
			count++
			inWord = false
			continue
		}
		if strings.ContainsRune(" \t\n\r", r) {
			inWord = false
			continue
		}
		if !inWord {
			count++
			inWord = true
		}
	}
	return count
}

// TiktokenCounter counts tokens with a real BPE tokenizer. Construction is
// expensive (the encoding tables are loaded once), so callers should reuse
// one counter across a run.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the tokenizer used by the given model name, e.g.
// "text-embedding-3-small".
func NewTiktokenCounter(model string) (*TiktokenCounter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, err
	}
	return &TiktokenCounter{enc: enc}, nil
}

func (c *TiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

var _ TokenCounter = (*TiktokenCounter)(nil)
var _ TokenCounter = estimateCounter{}
