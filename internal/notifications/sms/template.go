package sms

import (
	"sort"
	"strings"

	"github.com/abhinavuser/reflectometry/internal/types"
)

// Placeholder names understood by the default templates.
const (
	PlaceholderLocation    = "location"
	PlaceholderCoordinates = "coordinates"
	PlaceholderTimestamp   = "timestamp"
	PlaceholderError       = "error"
)

// AlertTemplate is the message body for one alert category. Body may hold
// {name} placeholders.
type AlertTemplate struct {
	Category types.AlertCategory
	Subject  string
	Body     string
}

// Templates maps a category to its template.
type Templates map[types.AlertCategory]AlertTemplate

const tamperBody = "🚨 ILLEGAL FENCE TAPPING DETECTED\n\n" +
	"Location: {location}\n" +
	"Coordinates: {coordinates}\n" +
	"Time: {timestamp}\n\n" +
	"Immediate inspection required.\n\n" +
	"SAS Electric Fence Monitor"

// DefaultTemplates returns the stock message set. Open circuit and illegal
// fence share the tapping text.
func DefaultTemplates() Templates {
	return Templates{
		types.AlertOpenCircuit: {
			Category: types.AlertOpenCircuit,
			Subject:  "ILLEGAL FENCE TAPPING DETECTED",
			Body:     tamperBody,
		},
		types.AlertIllegalFence: {
			Category: types.AlertIllegalFence,
			Subject:  "ILLEGAL FENCE TAPPING DETECTED",
			Body:     tamperBody,
		},
		types.AlertSystemError: {
			Category: types.AlertSystemError,
			Subject:  "SYSTEM ALERT: Monitoring System Error",
			Body: "🔧 SYSTEM ALERT: Monitoring System Error\n\n" +
				"Error: {error}\n" +
				"Time: {timestamp}\n" +
				"Location: {location}\n\n" +
				"System requires immediate attention.\n\n" +
				"SAS Electric Fence Monitor",
		},
		types.AlertTest: {
			Category: types.AlertTest,
			Subject:  "TEST MESSAGE",
			Body: "🧪 TEST MESSAGE\n\n" +
				"This is a test SMS from your SAS Electric Fence Monitoring System.\n\n" +
				"Time: {timestamp}\n" +
				"Status: SMS Service Active ✅\n\n" +
				"If you received this message, your SMS alerts are working correctly.\n\n" +
				"SAS Electric Fence Monitor",
		},
	}
}

// Format replaces every {key} in the template body with data[key] in a
// single pass, so a value that itself contains a placeholder is not expanded.
// Placeholders without a value stay in the text.
func Format(tmpl AlertTemplate, data map[string]string) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", data[k])
	}
	return strings.NewReplacer(pairs...).Replace(tmpl.Body)
}
