package tools

import (
	"context"

	"github.com/seattleguide/seattleguide/internal/service"
)

var travelModes = []string{"driving", "walking", "bicycling", "transit"}

// DirectionsTool fetches a route between two places.
//
// Short place names like "Ballard" are ambiguous to the mapping service, so the
// configured region suffix is appended to origin and destination as-is. This is
// a known limitation: it is added even when the input already names a region,
// and it breaks routes that start or end outside the region.
func DirectionsTool(maps MapsClient, cfg Config) Tool {
	return Tool{
		Name:        GetDirections,
		Description: "Get step-by-step directions between two places in the Seattle area, including travel time.",
		Params: []Param{
			{Name: "origin", Type: String, Required: true,
				Description: "Starting place name or address, e.g. 'Ballard'"},
			{Name: "destination", Type: String, Required: true,
				Description: "Destination place name or address, e.g. 'Pike Place Market'"},
			{Name: "mode", Type: String, Default: cfg.DirectionsMode, Enum: travelModes,
				Description: "How to travel"},
		},
		Execute: func(ctx context.Context, args Args) (string, error) {
			return maps.Directions(ctx, service.DirectionsRequest{
				Origin:      withRegion(args.String("origin"), cfg.RegionSuffix),
				Destination: withRegion(args.String("destination"), cfg.RegionSuffix),
				Mode:        args.String("mode"),
			})
		},
	}
}

func withRegion(place, region string) string {
	if region == "" {
		return place
	}
	return place + ", " + region
}
