package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// Extractor turns one message into the order items it mentions. Failures
// never leave the extractor: a bad reply only costs that message its items.
type Extractor struct {
	completer   Completer
	limiter     *rate.Limiter
	concurrency int
}

func NewExtractor(cfg Config) *Extractor {
	return newExtractor(NewCompleter(cfg), cfg.LLMRequestsPerSecond, cfg.LLMConcurrency)
}

func newExtractor(completer Completer, requestsPerSecond float64, concurrency int) *Extractor {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Extractor{
		completer:   completer,
		limiter:     rate.NewLimiter(limit, 1),
		concurrency: concurrency,
	}
}

func BuildExtractionPrompt(messageText string) string {
	return fmt.Sprintf(`Extract order items from the following message. Format the output as a JSON object with the structure:
{"items": [{"name": "item"}]}.

If no items are found in the message, return:
{"items": [{"name": ""}]}

Do not include any additional text, explanations, or markdown formatting (e.g., `+"```json"+`).

Message: %s`, messageText)
}

func (e *Extractor) Extract(ctx context.Context, messageText string) []ExtractedItem {
	if err := e.limiter.Wait(ctx); err != nil {
		log.Printf("llm extract skipped: rate limiter: %v", err)
		return []ExtractedItem{}
	}
	reply, err := e.completer.Complete(ctx, BuildExtractionPrompt(messageText))
	if err != nil {
		log.Printf("llm extract error: %v", err)
		return []ExtractedItem{}
	}
	items, err := parseExtractionResponse(reply)
	if err != nil {
		log.Printf("llm extract parse error: %v", err)
		return []ExtractedItem{}
	}
	return items
}

// ExtractAll runs Extract for every text with bounded concurrency.
// result[i] always belongs to texts[i].
func (e *Extractor) ExtractAll(ctx context.Context, texts []string) [][]ExtractedItem {
	results := make([][]ExtractedItem, len(texts))
	sem := make(chan struct{}, e.concurrency)

	var wg sync.WaitGroup
	for i, text := range texts {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, text string) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if p := recover(); p != nil {
					log.Printf("llm extract panic idx=%d: %v", idx, p)
					results[idx] = []ExtractedItem{}
				}
			}()
			results[idx] = e.Extract(ctx, text)
		}(i, text)
	}
	wg.Wait()

	log.Printf("llm extract complete messages=%d concurrency=%d", len(texts), e.concurrency)
	return results
}

type extractionResponse struct {
	Items *[]ExtractedItem `json:"items"`
}

func parseExtractionResponse(responseText string) ([]ExtractedItem, error) {
	responseText = strings.TrimSpace(responseText)
	responseText = strings.TrimPrefix(responseText, "```json")
	responseText = strings.TrimPrefix(responseText, "```")
	responseText = strings.TrimSuffix(responseText, "```")
	responseText = strings.TrimSpace(responseText)

	var parsed extractionResponse
	if err := json.Unmarshal([]byte(responseText), &parsed); err != nil {
		truncated := responseText
		if len(truncated) > 512 {
			truncated = truncated[:512] + fmt.Sprintf("... [truncated, total_length=%d]", len(responseText))
		}
		return nil, fmt.Errorf("parsing extraction response: %w (response: %s)", err, truncated)
	}
	if parsed.Items == nil {
		return nil, fmt.Errorf("extraction response has no items field")
	}

	items := make([]ExtractedItem, 0, len(*parsed.Items))
	for _, item := range *parsed.Items {
		items = append(items, ExtractedItem{Name: strings.TrimSpace(item.Name)})
	}
	return items, nil
}
