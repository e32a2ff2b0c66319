package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/wayBiggger/way-bigger-sub000/errs"
	"github.com/wayBiggger/way-bigger-sub000/models"
)

// rawCandidate mirrors one element of the model's JSON array. Pointers let
// us tell a missing key apart from an empty one.
type rawCandidate struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	TechStack   *string `json:"tech_stack"`
	Difficulty  *string `json:"difficulty"`
	Outcome     *string `json:"outcome"`
}

// stripCodeFence removes a leading ``` or ```json line and a trailing ```.
func stripCodeFence(text string) string {
	cleaned := strings.TrimSpace(text)
	if len(cleaned) >= 3 && cleaned[:3] == "```" {
		cleaned = cleaned[3:]
		if len(cleaned) >= 4 && strings.EqualFold(cleaned[:4], "json") {
			cleaned = cleaned[4:]
		}
		cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	}
	return strings.TrimSpace(cleaned)
}

// decodeArray tries the whole text first and, only when that is not valid
// JSON, the span between the first '[' and the last ']'. Valid JSON that is
// not an array is rejected rather than searched for an inner array.
func decodeArray(text string) ([]json.RawMessage, error) {
	data := []byte(text)
	if !json.Valid(data) {
		start := strings.Index(text, "[")
		end := strings.LastIndex(text, "]")
		if start < 0 || end <= start {
			return nil, errors.New("response is not JSON and holds no bracketed array")
		}
		data = data[start : end+1]
		if !json.Valid(data) {
			return nil, errors.New("bracketed span is not valid JSON")
		}
	}

	if data = bytes.TrimSpace(data); data[0] != '[' {
		return nil, errors.New("parsed value is not an array")
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode array: %w", err)
	}
	return items, nil
}

// ParseCandidates turns raw model output into candidates for domain.
// Every element must carry all five fields as non-blank strings; any
// violation rejects the whole batch.
func ParseCandidates(text string, domain models.Domain) ([]models.Candidate, error) {
	items, err := decodeArray(stripCodeFence(text))
	if err != nil {
		return nil, errs.NewMalformedResponseError("gemini", err)
	}

	candidates := make([]models.Candidate, 0, len(items))
	for i, item := range items {
		var raw rawCandidate
		dec := json.NewDecoder(bytes.NewReader(item))
		if err := dec.Decode(&raw); err != nil {
			return nil, errs.NewMalformedResponseError("gemini", fmt.Errorf("element %d: %w", i, err))
		}

		c := models.Candidate{
			Title:       trimmed(raw.Title),
			Description: trimmed(raw.Description),
			TechStack:   trimmed(raw.TechStack),
			Difficulty:  trimmed(raw.Difficulty),
			Outcome:     trimmed(raw.Outcome),
			Domain:      domain,
		}
		if !c.Valid() {
			return nil, errs.NewMalformedResponseError("gemini", fmt.Errorf("element %d: missing or blank field", i))
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
