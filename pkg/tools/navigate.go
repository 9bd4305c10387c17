package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"starbroker/pkg/ai"
	"starbroker/pkg/domain"
)

// Navigation destinations accepted by the navigate tool.
const (
	DestinationStar     = "star"
	DestinationHomepage = "homepage"
)

var navigateSpec = ai.Tool{
	Name:        "navigate",
	Description: "Navigate the user to a star's detail page or back to the homepage gallery. Use after confirming which star the user wants to see.",
	Parameters: ai.Schema{
		Type: "object",
		Properties: map[string]ai.Schema{
			"destination": {
				Type:        "string",
				Enum:        []string{DestinationStar, DestinationHomepage},
				Description: "Where to send the user.",
			},
			"starId": {
				Type:        "number",
				Description: "ID of the star to open. Required when destination is \"star\".",
			},
		},
		Required: []string{"destination"},
	},
}

// newNavigateHandler validates arguments and produces a NavigationResult.
// It has no side effect: the browser performs the actual navigation after
// the user confirms.
func newNavigateHandler() Handler {
	return func(_ context.Context, raw json.RawMessage) (any, error) {
		args := map[string]any{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &args); err != nil {
				return Failure{Error: `navigate requires a destination of "star" or "homepage"`}, nil
			}
		}
		destination, _ := args["destination"].(string)
		switch destination {
		case DestinationHomepage:
			return domain.NavigationResult{
				Success:     true,
				Action:      "navigate",
				Destination: DestinationHomepage,
				URL:         "/",
				Message:     "Navigating to the homepage.",
			}, nil
		case DestinationStar:
			id, ok := positiveInt(args["starId"])
			if !ok {
				return Failure{Error: "Invalid star ID: starId must be a positive integer."}, nil
			}
			return domain.NavigationResult{
				Success:     true,
				Action:      "navigate",
				Destination: DestinationStar,
				URL:         fmt.Sprintf("/star/%d", id),
				Message:     fmt.Sprintf("Navigating to star %d.", id),
			}, nil
		default:
			return Failure{Error: fmt.Sprintf("unknown destination %q: must be \"star\" or \"homepage\"", destination)}, nil
		}
	}
}

func positiveInt(v any) (int64, bool) {
	f, ok := v.(float64)
	if !ok {
		return 0, false
	}
	if f <= 0 || f >= 1<<63 {
		return 0, false
	}
	if f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}
