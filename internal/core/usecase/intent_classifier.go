package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tshaffer/memorappy/internal/core/domain"
	"github.com/tshaffer/memorappy/internal/core/ports"
)

// QueryIntentClassifier asks the language model to classify a question and
// extract its structured parameters. Every call hits the model exactly once.
type QueryIntentClassifier struct {
	llm ports.LanguageModel
}

func NewQueryIntentClassifier(llm ports.LanguageModel) *QueryIntentClassifier {
	return &QueryIntentClassifier{llm: llm}
}

type rawDateRange struct {
	Start *string `json:"start"`
	End   *string `json:"end"`
}

type rawQueryParameters struct {
	Location       *string         `json:"location"`
	Radius         json.RawMessage `json:"radius"`
	RestaurantName *string         `json:"restaurantName"`
	DateRange      *rawDateRange   `json:"dateRange"`
	WouldReturn    json.RawMessage `json:"wouldReturn"`
	ItemsOrdered   json.RawMessage `json:"itemsOrdered"`
}

type rawParsedQuery struct {
	QueryType       *string             `json:"queryType"`
	QueryParameters *rawQueryParameters `json:"queryParameters"`
}

func (c *QueryIntentClassifier) Classify(ctx context.Context, query string) (domain.ParsedQuery, error) {
	if strings.TrimSpace(query) == "" {
		return domain.ParsedQuery{}, domain.WrapError(domain.ErrInvalidInput, "classify query", errors.New("query is empty"))
	}

	respText, err := c.llm.Complete(ctx, intentInstruction, query)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.ParsedQuery{}, ctxErr
		}
		return domain.ParsedQuery{}, domain.WrapError(domain.ErrLanguageModelUnavailable, "classify query", err)
	}

	return parseClassification(respText)
}

func parseClassification(respText string) (domain.ParsedQuery, error) {
	var raw rawParsedQuery
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &raw); err != nil {
		return domain.ParsedQuery{}, domain.WrapError(domain.ErrIntentClassification, "parse classification json", err)
	}

	if raw.QueryType == nil {
		return domain.ParsedQuery{}, fmt.Errorf("parse classification: %w: queryType is missing", domain.ErrInvalidQueryType)
	}
	queryType, err := domain.ParseQueryType(*raw.QueryType)
	if err != nil {
		return domain.ParsedQuery{}, fmt.Errorf("parse classification: %w", err)
	}

	params, err := normalizeParameters(raw.QueryParameters)
	if err != nil {
		return domain.ParsedQuery{}, domain.WrapError(domain.ErrIntentClassification, "normalize query parameters", err)
	}

	return domain.ParsedQuery{QueryType: queryType, Parameters: params}, nil
}

func normalizeParameters(raw *rawQueryParameters) (domain.QueryParameters, error) {
	var params domain.QueryParameters
	if raw == nil {
		return params, nil
	}

	params.Location = nonBlank(raw.Location)
	params.RestaurantName = nonBlank(raw.RestaurantName)

	radius, err := parseRadius(raw.Radius)
	if err != nil {
		return params, err
	}
	params.Radius = radius

	dateRange, err := parseDateRange(raw.DateRange)
	if err != nil {
		return params, err
	}
	params.DateRange = dateRange

	wouldReturn, err := parseWouldReturn(raw.WouldReturn)
	if err != nil {
		return params, err
	}
	params.WouldReturn = wouldReturn

	items, err := parseItems(raw.ItemsOrdered)
	if err != nil {
		return params, err
	}
	params.ItemsOrdered = items

	return params, nil
}

func nonBlank(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}

func isNullJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func parseRadius(raw json.RawMessage) (*float64, error) {
	if isNullJSON(raw) {
		return nil, nil
	}

	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		var text string
		if strErr := json.Unmarshal(raw, &text); strErr != nil {
			return nil, fmt.Errorf("radius must be a number: %w", err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, nil
		}
		parsed, parseErr := strconv.ParseFloat(text, 64)
		if parseErr != nil {
			return nil, fmt.Errorf("radius must be a number: %w", parseErr)
		}
		value = parsed
	}
	if value <= 0 {
		return nil, nil
	}
	return &value, nil
}

func parseDateRange(raw *rawDateRange) (*domain.DateRange, error) {
	if raw == nil {
		return nil, nil
	}
	start, err := parseOptionalDate(raw.Start)
	if err != nil {
		return nil, fmt.Errorf("dateRange.start: %w", err)
	}
	end, err := parseOptionalDate(raw.End)
	if err != nil {
		return nil, fmt.Errorf("dateRange.end: %w", err)
	}
	if start == nil && end == nil {
		return nil, nil
	}
	return &domain.DateRange{Start: start, End: end}, nil
}

func parseOptionalDate(raw *string) (*domain.Date, error) {
	s := nonBlank(raw)
	if s == nil {
		return nil, nil
	}
	d, err := domain.ParseDate(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseWouldReturn(raw json.RawMessage) (*domain.WouldReturnFilter, error) {
	if isNullJSON(raw) {
		return nil, nil
	}

	var filter domain.WouldReturnFilter
	var asBool bool
	var asString string
	var asList []string

	switch {
	case json.Unmarshal(raw, &asBool) == nil:
		filter.Yes = asBool
		filter.No = !asBool
	case json.Unmarshal(raw, &asString) == nil:
		if err := setWouldReturnFlag(&filter, asString); err != nil {
			return nil, err
		}
	case json.Unmarshal(raw, &asList) == nil:
		for _, v := range asList {
			if err := setWouldReturnFlag(&filter, v); err != nil {
				return nil, err
			}
		}
	default:
		if err := json.Unmarshal(raw, &filter); err != nil {
			return nil, fmt.Errorf("wouldReturn: %w", err)
		}
	}

	if filter.IsEmpty() {
		return nil, nil
	}
	return &filter, nil
}

func setWouldReturnFlag(filter *domain.WouldReturnFilter, value string) error {
	switch strings.ToLower(strings.Join(strings.Fields(value), "")) {
	case "":
	case "yes", "true":
		filter.Yes = true
	case "no", "false":
		filter.No = true
	case "notspecified", "unspecified", "null":
		filter.NotSpecified = true
	default:
		return fmt.Errorf("wouldReturn: unknown value %q", value)
	}
	return nil
}

func parseItems(raw json.RawMessage) ([]string, error) {
	if isNullJSON(raw) {
		return nil, nil
	}

	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		var single string
		if strErr := json.Unmarshal(raw, &single); strErr != nil {
			return nil, fmt.Errorf("itemsOrdered must be a list of strings: %w", err)
		}
		items = []string{single}
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func extractJSONArray(raw string) string {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
