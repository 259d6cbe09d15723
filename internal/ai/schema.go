package ai

import (
	"fmt"

	"google.golang.org/genai"
)

func str(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: desc}
}

func object(required []string, props map[string]*genai.Schema) *genai.Schema {
	return &genai.Schema{Type: genai.TypeObject, Properties: props, Required: required}
}

func verseLinks(desc, contextDesc string) *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeArray,
		Description: desc,
		Items: object([]string{"reference", "context"}, map[string]*genai.Schema{
			"reference": str("The verse reference, e.g. 'Isaiah 53:5'"),
			"context":   str(contextDesc),
		}),
	}
}

var studyRequired = []string{
	"explanation", "simplifiedText", "historicalContext", "keyMeaning",
	"practicalApplication", "relatedVerses", "similarVerses",
}

// studySchema builds the response schema for Analyze. kjvText is only
// requested when includeKJV is set and comparison only for comparisons.
func studySchema(includeKJV, comparison bool) *genai.Schema {
	props := map[string]*genai.Schema{
		"verseReference":           str(""),
		"originalLanguageText":     str(""),
		"originalLanguageAnalysis": str(""),
		"simplifiedText":           str("A vivid retelling of the passage in modern language, faithful to the text. Plain text only."),
		"explanation":              str(""),
		"historicalContext":        str(""),
		"keyMeaning":               str(""),
		"practicalApplication":     str(""),
		"relatedVerses":            verseLinks("5-6 direct cross-references or parallel passages.", "Brief reason for the connection"),
		"similarVerses":            verseLinks("3-5 verses sharing an underlying principle or an instructive contrast.", "Brief explanation of the broader connection"),
	}
	required := append([]string(nil), studyRequired...)

	if includeKJV {
		props["kjvText"] = str("The full text of the passage in the King James Version (KJV)")
	}
	if comparison {
		props["comparison"] = object(
			[]string{"secondReference", "similarities", "differences", "synthesis"},
			map[string]*genai.Schema{
				"secondReference": str("The reference of the second passage"),
				"similarities":    str("Key similarities between the two passages"),
				"differences":     str("Key differences or distinct emphases"),
				"synthesis":       str("How the passages work together"),
			})
		required = append(required, "comparison")
	}
	return object(required, props)
}

var searchSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: object([]string{"reference", "text", "relevance"}, map[string]*genai.Schema{
		"reference": str(""),
		"text":      str(""),
		"relevance": str(""),
	}),
}

var passageSchema = object([]string{"before", "after", "narrative", "historicalAnalysis"}, map[string]*genai.Schema{
	"before": object([]string{"reference", "text"}, map[string]*genai.Schema{
		"reference": str("e.g. 'John 3:13-15'"),
		"text":      str("The text of the preceding verses (KJV)"),
	}),
	"after": object([]string{"reference", "text"}, map[string]*genai.Schema{
		"reference": str("e.g. 'John 3:22-24'"),
		"text":      str("The text of the following verses (KJV)"),
	}),
	"narrative":          str("What leads to this moment?"),
	"historicalAnalysis": str("Historical context, social conditions and extra-biblical verification if available."),
})

var prayerSchema = object([]string{"character", "scenario", "content"}, map[string]*genai.Schema{
	"character": str("The Bible character selected"),
	"scenario":  str("The scenario or feeling being addressed"),
	"content": object([]string{"text", "affirmation"}, map[string]*genai.Schema{
		"text":        str("The unified, flowing prayer text."),
		"affirmation": str("A short, repeatable daily affirmation."),
	}),
})

// conform checks a decoded JSON value against schema: types must match and
// required object keys must be present. Unknown keys are allowed.
func conform(schema *genai.Schema, v any, path string) error {
	if schema == nil {
		return nil
	}
	switch schema.Type {
	case genai.TypeObject:
		obj, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: want object, got %T", pathOr(path), v)
		}
		for _, key := range schema.Required {
			if _, present := obj[key]; !present {
				return fmt.Errorf("%s: missing required field %q", pathOr(path), key)
			}
		}
		for key, prop := range schema.Properties {
			child, present := obj[key]
			if !present || child == nil {
				continue
			}
			if err := conform(prop, child, join(path, key)); err != nil {
				return err
			}
		}
	case genai.TypeArray:
		arr, ok := v.([]any)
		if !ok {
			return fmt.Errorf("%s: want array, got %T", pathOr(path), v)
		}
		for i, item := range arr {
			if err := conform(schema.Items, item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case genai.TypeString:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("%s: want string, got %T", pathOr(path), v)
		}
	}
	return nil
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func pathOr(path string) string {
	if path == "" {
		return "response"
	}
	return path
}
